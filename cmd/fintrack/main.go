package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/insights"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.DevMode {
		level = slog.LevelDebug
	}
	logger := applog.New(applog.Config{Level: level, Component: applog.ComponentApp})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The broker is optional for the API: without it records stay pending
	// and the worker's periodic scan picks them up.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	transactions := services.NewTransactionService(repo, publisher,
		core.CategorySet(cfg.IncomeCategories), core.CategorySet(cfg.ExpenseCategories))
	accounts := services.NewAccountService(repo, services.NewMemoryAssetStore(), transactions,
		services.WelcomePolicy{
			Enabled:    cfg.WelcomeIncomeEnabled,
			Cents:      cfg.WelcomeIncomeCents,
			AdminEmail: cfg.AdminEmail,
		})

	advisor := insights.NewAdvisor(cfg.OpenAIKey, cfg.OpenAIModel, cfg.AdvisorTimeout)
	if cfg.OpenAIKey == "" {
		logger.Info("LLM advisor disabled - tips served from rules only")
	}

	tokens := auth.NewTokenCodec(cfg.JWTSecret, cfg.TokenTTL)
	gate := auth.NewMiddleware(tokens, repo)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		DevMode:      cfg.DevMode,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		Accounts:     accounts,
		Transactions: transactions,
		Advisor:      advisor,
		Tokens:       tokens,
		Gate:         gate,
		Logger:       logger,
		Ready:        repo.Ping,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting fintrack server", "port", cfg.Port, "dev_mode", cfg.DevMode)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
