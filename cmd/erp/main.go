// Package main запускает HTTP-сервер текстильной ERP.
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

	"github.com/mmeshcher/textile-erp/internal/assistant"
	"github.com/mmeshcher/textile-erp/internal/config"
	"github.com/mmeshcher/textile-erp/internal/handler"
	"github.com/mmeshcher/textile-erp/internal/repository"
	"github.com/mmeshcher/textile-erp/internal/service"
	"github.com/mmeshcher/textile-erp/internal/store"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(repo, logger)
	if err := st.Load(ctx); err != nil {
		sugar.Fatalw("initial state load error", "error", err.Error())
	}

	if cfg.OpenAIAPIKey == "" {
		sugar.Info("assistant disabled: no OpenAI API key")
	}
	svc := service.NewService(st, assistant.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel))

	h := handler.NewHandler(svc, logger)
	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновое сохранение снимков агрегата
	g.Go(func() error {
		return st.Run(ctx)
	})

	// Подписка на изменения документа другими экземплярами
	g.Go(func() error {
		return st.Subscribe(ctx)
	})

	g.Go(func() error {
		sugar.Infow("starting erp server", "addr", cfg.RunAddress)
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
