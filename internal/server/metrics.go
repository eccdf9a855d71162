package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xela07ax/fractal-gallery/internal/auth"
	"github.com/xela07ax/fractal-gallery/internal/token"
)

type Metrics struct {
	// Latency и Traffic всего HTTP-слоя
	RequestDuration *prometheus.HistogramVec

	// Результаты проверки access-токенов (ok / expired / invalid)
	TokenVerifications *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern — без регистра метрики летят в локальный,
	// никуда не подключенный
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gallery_request_duration_seconds",
			Help:    "Histogram of request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route", "status"}),

		TokenVerifications: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_token_verifications_total",
			Help: "Access token verification outcomes.",
		}, []string{"result"}),
	}
}

// meteredVerifier считает исходы проверки токена, не вмешиваясь в результат.
type meteredVerifier struct {
	next    auth.TokenVerifier
	metrics *Metrics
}

func (v *meteredVerifier) VerifyAccess(raw string) (token.Payload, error) {
	payload, err := v.next.VerifyAccess(raw)

	result := "ok"
	switch {
	case err == nil:
	case errorIsExpired(err):
		result = "expired"
	default:
		result = "invalid"
	}
	v.metrics.TokenVerifications.WithLabelValues(result).Inc()

	return payload, err
}

func errorIsExpired(err error) bool {
	_, code := auth.Classify(err)
	return code == auth.CodeTokenExpired
}
