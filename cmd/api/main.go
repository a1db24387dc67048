// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/valera277/rag-converter-pro/internal/auth"
	"github.com/valera277/rag-converter-pro/internal/billing"
	"github.com/valera277/rag-converter-pro/internal/config"
	"github.com/valera277/rag-converter-pro/internal/converter"
	"github.com/valera277/rag-converter-pro/internal/core"
	"github.com/valera277/rag-converter-pro/internal/health"
	"github.com/valera277/rag-converter-pro/internal/middleware"
	"github.com/valera277/rag-converter-pro/internal/payment"
	"github.com/valera277/rag-converter-pro/internal/server"
	"github.com/valera277/rag-converter-pro/internal/usage"
	"github.com/valera277/rag-converter-pro/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized", "algorithm", "ES256")

	payments := payment.NewRegistryFromConfig(cfg.Payment, cfg.App.Environment)
	logger.Info("payment providers registered",
		"primary", payments.Primary(),
		"providers", payments.Providers(),
	)

	userSvc := user.NewService(user.NewRepository(db.DB))
	userHandler := user.NewHandler(userSvc)

	attempts := auth.NewRedisAttemptStore(redis, cfg.Auth, logger)
	authSvc := auth.NewService(jwtManager, userSvc, attempts, logger)
	authHandler := auth.NewHandler(authSvc)

	billingSvc := billing.NewService(
		billing.NewRepository(db.DB),
		payments,
		billing.ServiceConfig{
			Policies:      billing.PoliciesFromConfig(cfg.Billing.Policies),
			Price:         cfg.Billing.SubscriptionPrice,
			PublicURL:     cfg.Payment.PublicURL,
			ResultURL:     cfg.Payment.ResultURL,
			DashboardURL:  cfg.Billing.DashboardURL,
			CancelTimeout: cfg.Payment.CancelTimeout,
		},
		logger,
	)
	billingHandler := billing.NewHandler(
		billingSvc,
		payments,
		logger,
		cfg.Payment.MaxWebhookBytes,
	)

	usageSvc := usage.NewService(
		usage.NewRepository(db.DB),
		billingSvc,
		cfg.Billing.FreeLimit,
		logger,
	)
	usageHandler := usage.NewHandler(usageSvc)

	pipeline, err := converter.NewPipeline(cfg.Converter)
	if err != nil {
		return err
	}
	converterHandler := converter.NewHandler(
		pipeline,
		usageSvc,
		cfg.Converter.MaxUploadBytes,
		logger,
	)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			Prefix:   redis.Prefix,
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == config.EnvProduction))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(jwtManager)

	webhookLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit: middleware.PerMinute(
			cfg.RateLimit.WebhookRequests,
			cfg.RateLimit.WebhookBurst,
		),
		Prefix:   redis.Prefix,
		KeyFunc:  middleware.KeyByRoute,
		FailOpen: true,
	}).Handler

	convertLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(cfg.RateLimit.Requests, cfg.RateLimit.Burst),
		Prefix:   redis.Prefix + "convert:",
		KeyFunc:  middleware.KeyByUser,
		FailOpen: true,
	}).Handler

	billingHandler.RegisterRoutes(router, authenticator, webhookLimiter)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterRoutes(r, authenticator)
		usageHandler.RegisterRoutes(r, authenticator)
		converterHandler.RegisterRoutes(r, authenticator, convertLimiter)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
