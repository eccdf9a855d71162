package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/fractal-gallery/internal/auth"
	"github.com/xela07ax/fractal-gallery/internal/gallery"
	"github.com/xela07ax/fractal-gallery/internal/handler"
	"github.com/xela07ax/fractal-gallery/internal/infra"
	"github.com/xela07ax/fractal-gallery/internal/repository/postgres"
	"github.com/xela07ax/fractal-gallery/internal/server"
	"github.com/xela07ax/fractal-gallery/internal/token"
)

func main() {
	// 1. Конфигурация и логгер. Ошибка конфига фатальна:
	// сервис с одним секретом из двух не должен подняться
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// 2. Инфраструктура и ресурсы
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := postgres.NewPool(ctx, cfg.Database)
	cancel()
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	defer pool.Close()

	// Redis опционален: без него кэш страниц выключен, всё идёт в Postgres
	var pageCache *gallery.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pageCache = gallery.NewCache(rdb, logger)
	}

	// 3. Инициализация слоев (Dependency Injection)
	users := postgres.NewUserRepo(pool)
	galleries := postgres.NewGalleryRepo(pool)

	authSvc := auth.NewService(users, token.NewCodec(), auth.Config{
		TokenKey:   cfg.Auth.TokenKey,
		RefreshKey: cfg.Auth.RefreshKey,
		TokenTTL:   cfg.Auth.TokenTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	gallerySvc := gallery.NewService(galleries, pageCache)

	// Метрики
	reg := prometheus.NewRegistry()
	metrics := server.NewMetrics(reg)

	srvHandler := server.New(
		cfg, logger, metrics, authSvc,
		handler.NewUserHandler(authSvc, users, logger, cfg.DevMode),
		handler.NewGalleryHandler(gallerySvc, logger),
		reg,
	)

	// 4. HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srvHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 5. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("gallery API started",
			zap.String("addr", srv.Addr), zap.Bool("dev_mode", cfg.DevMode))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("gallery API stopping")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}
	logger.Info("gallery API exited properly")
}
