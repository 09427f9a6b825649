package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatepay/platform/internal/app"
	"github.com/gatepay/platform/internal/auth"
	"github.com/gatepay/platform/internal/cache"
	"github.com/gatepay/platform/internal/infra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	// Apply migrations
	if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Parse token expiry durations
	userExpiry, err := time.ParseDuration(cfg.JWTUserExpiry)
	if err != nil {
		return fmt.Errorf("parse user JWT expiry: %w", err)
	}
	paymentExpiry, err := time.ParseDuration(cfg.PaymentTokenExpiry)
	if err != nil {
		return fmt.Errorf("parse payment token expiry: %w", err)
	}

	// Token managers
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, userExpiry)
	tokenMgr := auth.NewPaymentTokenManager(
		cfg.PaymentTokenSecret, paymentExpiry, cfg.PaymentTokenIssuer, cfg.PaymentTokenAudience)

	// OTP storage and delivery. The log sender is a stand-in until an SMS or
	// email gateway is wired in.
	otpStore := cache.NewInMemoryStore()
	otpSender := &auth.LogSender{Logger: logger}

	// Router
	r, err := app.NewRouter(app.RouterDeps{
		Pool:      pool,
		Config:    cfg,
		JWTMgr:    jwtMgr,
		TokenMgr:  tokenMgr,
		OTPStore:  otpStore,
		OTPSender: otpSender,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	// Outbox publisher runs in-process when Kafka is enabled. The standalone
	// outbox-publisher binary covers deployments that want it separated.
	if cfg.KafkaEnabled {
		producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
		defer producer.Close()
		infra.NewOutboxPoller(pool, producer, logger).Start(ctx)
	}

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
