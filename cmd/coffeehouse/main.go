// Package main запускает HTTP-сервер сервиса заказов кофейни.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/coffee-order-system/internal/cartstore"
	"github.com/mmeshcher/coffee-order-system/internal/config"
	"github.com/mmeshcher/coffee-order-system/internal/handler"
	"github.com/mmeshcher/coffee-order-system/internal/middleware"
	"github.com/mmeshcher/coffee-order-system/internal/notify"
	"github.com/mmeshcher/coffee-order-system/internal/repository"
	"github.com/mmeshcher/coffee-order-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	_ = godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var carts cartstore.Store
	if cfg.RedisAddress != "" {
		redisStore, err := cartstore.NewRedisStore(cfg.RedisAddress)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer redisStore.Close()
		carts = redisStore
	} else {
		sugar.Info("redis address not set, carts are stored in memory")
		carts = cartstore.NewMemoryStore()
	}

	var notifier *notify.TelegramNotifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		notifier, err = notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			sugar.Fatalw("telegram initialization error", "error", err.Error())
		}
	}

	svc := service.NewService(repo, carts, notifier)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фонового автозавершения готовых заказов
	g.Go(func() error {
		svc.StartAutoCompleteSweeper(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting coffee order server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
