// Package server собирает HTTP-слой галереи: маршруты, middleware,
// метрики и периметр bearer-авторизации.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/fractal-gallery/internal/auth"
	"github.com/xela07ax/fractal-gallery/internal/handler"
	"github.com/xela07ax/fractal-gallery/internal/infra"
)

type Server struct {
	router  *chi.Mux
	logger  *zap.Logger
	cfg     *infra.Config
	metrics *Metrics

	// Проверка access-токена для защищённого периметра
	verifier auth.TokenVerifier

	// Обработчики бизнес-доменов
	userHandler    *handler.UserHandler    // /user
	galleryHandler *handler.GalleryHandler // /gallery

	// Gatherer для /metrics; nil выключает эндпоинт
	gatherer prometheus.Gatherer
}

// New инициализирует сервер со всеми зависимостями и строит маршруты.
func New(
	cfg *infra.Config,
	logger *zap.Logger,
	metrics *Metrics,
	verifier auth.TokenVerifier,
	userH *handler.UserHandler,
	galleryH *handler.GalleryHandler,
	gatherer prometheus.Gatherer,
) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger.Named("gallery-api"),
		cfg:            cfg,
		metrics:        metrics,
		verifier:       &meteredVerifier{next: verifier, metrics: metrics},
		userHandler:    userH,
		galleryHandler: galleryH,
		gatherer:       gatherer,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(zapLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(httpMetrics(s.metrics))

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин прикрыт rate-limit от перебора паролей
		r.Group(func(r chi.Router) {
			r.Use(loginRateLimit(rate.NewLimiter(
				rate.Limit(s.cfg.Server.LoginRPS), s.cfg.Server.LoginBurst,
			)))
			r.Post("/user/login", s.userHandler.Login)
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/", s.userHandler.Me)       // Без токена — бутстрап анонима
			r.Post("/", s.userHandler.Create)  // Регистрация
			r.Post("/refresh", s.userHandler.Refresh)
			r.Get("/all", s.userHandler.All) // Только dev-режим
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.userHandler.FindOne)
				r.Patch("/", s.userHandler.Update)
				r.Delete("/", s.userHandler.Remove) // Только dev-режим
			})
		})

		// Чтение галереи публично
		r.Get("/gallery", s.galleryHandler.List)
		r.Get("/gallery/{id}", s.galleryHandler.FindOne)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		if s.gatherer != nil {
			r.Get("/metrics", promhttp.HandlerFor(
				s.gatherer, promhttp.HandlerOpts{},
			).ServeHTTP)
		}
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют access-токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.verifier, s.logger))

		r.Post("/gallery", s.galleryHandler.Create)
		r.Post("/gallery/{id}/like", s.galleryHandler.Like)
		r.Delete("/gallery/{id}", s.galleryHandler.Remove)
	})
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
