// Package main запускает HTTP-сервер пунья-сервиса.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/config"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/gateway"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/handler"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/mailer"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/middleware"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/repository"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/ritual"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	// При пустых адресах клиенты остаются неактивными: создание заказов
	// завершается ошибкой, проверка подписи отклоняет всё, письма не уходят.
	gatewayClient := gateway.NewClient(cfg.GatewayAddress, cfg.GatewayClientID, cfg.GatewayClientSecret, cfg.GatewayWebhookSecret)
	mailClient := mailer.NewClient(cfg.MailerAddress, cfg.MailerAPIKey)

	sessions := ritual.NewStore(cfg.CompletionThreshold)

	svc := service.NewService(repo, gatewayClient, mailClient, sessions, logger)
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

	// Запуск фоновой сверки зависших подношений
	g.Go(func() error {
		svc.StartReconciliation(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting punya server", "addr", cfg.RunAddress)
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
