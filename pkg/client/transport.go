package client

import (
	"net/http"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
)

// reliableTransport — транспортный контур надёжности под слоем
// восстановления сессии: повторы и предохранитель применяются только
// к сетевым сбоям. Любой полученный HTTP-ответ, включая 401 и 500,
// отдаётся наверх без повторов — авторизационную логику ведёт do().
type reliableTransport struct {
	next http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

func newReliableTransport(next http.RoundTripper) *reliableTransport {
	if next == nil {
		next = http.DefaultTransport
	}

	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gallery-client",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &reliableTransport{next: next, cb: cb}
}

func (t *reliableTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.cb.Execute(func() (interface{}, error) {
		var resp *http.Response

		r := retry.New(
			retry.Context(req.Context()),
			retry.Attempts(3),
		)
		retryErr := r.Do(func() error {
			// Тело у запросов SDK всегда перематываемое (bytes.Reader
			// через GetBody), иначе повтор отправил бы пустое тело
			if req.Body != nil && req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return retry.Unrecoverable(err)
				}
				req.Body = body
			}

			var callErr error
			resp, callErr = t.next.RoundTrip(req)
			return callErr
		})

		return resp, retryErr
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}
