package auth

import (
	"errors"
	"net/http"

	"github.com/xela07ax/fractal-gallery/internal/token"
)

// Машиночитаемые коды ошибок в теле ответа. Клиент ветвится по коду,
// а не по тексту сообщения.
const (
	CodeTokenExpired        = "token_expired"
	CodeInvalidToken        = "invalid_token"
	CodeUnauthorized        = "unauthorized"
	CodeUserNotFound        = "user_not_found"
	CodeInvalidRefreshToken = "invalid_refresh_token"
	CodeWeakPassword        = "weak_password"
	CodeLoginTaken          = "login_taken"
	CodeBadRequest          = "bad_request"
	CodeNotFound            = "not_found"
	CodeInternal            = "internal_error"
)

// Classify сводит ошибку ядра к HTTP-статусу и коду.
// Порядок проверок важен: ErrInvalidRefreshToken оборачивает ошибки
// кодека, поэтому проверяется раньше них.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRefreshToken):
		return http.StatusUnauthorized, CodeInvalidRefreshToken
	case errors.Is(err, token.ErrExpired):
		return http.StatusUnauthorized, CodeTokenExpired
	case errors.Is(err, token.ErrInvalidFormat),
		errors.Is(err, token.ErrInvalidSignature),
		errors.Is(err, token.ErrMissingClaim):
		return http.StatusUnauthorized, CodeInvalidToken
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, ErrUserNotFound):
		return http.StatusUnauthorized, CodeUserNotFound
	case errors.Is(err, ErrLoginTaken):
		return http.StatusBadRequest, CodeLoginTaken
	default:
		var weak *WeakPasswordError
		if errors.As(err, &weak) {
			return http.StatusBadRequest, CodeWeakPassword
		}
		return http.StatusInternalServerError, CodeInternal
	}
}
