// Package main is the entrypoint for the task manager API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jageshm/task-manager-api/internal/auth"
	"github.com/jageshm/task-manager-api/internal/cache"
	"github.com/jageshm/task-manager-api/internal/config"
	"github.com/jageshm/task-manager-api/internal/handler"
	"github.com/jageshm/task-manager-api/internal/metrics"
	"github.com/jageshm/task-manager-api/internal/middleware"
	"github.com/jageshm/task-manager-api/internal/repository"
	"github.com/jageshm/task-manager-api/internal/server"
	"github.com/jageshm/task-manager-api/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Redis is optional. Without it the service runs with rate
	// limiting disabled.
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		defer cacheClient.Close()
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set, rate limiting disabled")
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)

	metricsRecorder := metrics.NewNoop()
	authService := service.NewAuthService(repo, tokens, metricsRecorder)
	taskService := service.NewTaskService(repo, metricsRecorder)

	healthHandler := handler.NewHealthHandler(repo, healthCheckerOrNil(cacheClient))
	authHandler := handler.NewAuthHandler(authService, logger)
	taskHandler := handler.NewTaskHandler(taskService, logger)

	r := setupRouter(routerDeps{
		cfg:           cfg,
		logger:        logger,
		tokens:        tokens,
		cache:         cacheClient,
		healthHandler: healthHandler,
		authHandler:   authHandler,
		taskHandler:   taskHandler,
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// healthCheckerOrNil avoids handing the health handler a typed nil
// pointer wrapped in a non-nil interface.
func healthCheckerOrNil(c *cache.Cache) handler.HealthChecker {
	if c == nil {
		return nil
	}
	return c
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	cfg           *config.Config
	logger        *slog.Logger
	tokens        *auth.TokenService
	cache         *cache.Cache
	healthHandler *handler.HealthHandler
	authHandler   *handler.AuthHandler
	taskHandler   *handler.TaskHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      deps.cfg.IsDevelopment(),
		MaxRequestBodySize: deps.cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.MaxBodySize(deps.cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = deps.cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.healthHandler.Healthz)
	r.Get("/readyz", deps.healthHandler.Readyz)

	r.Get("/", handler.Root)

	authCfg := middleware.AuthConfig{
		Logger:   deps.logger,
		Verifier: deps.tokens,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  deps.logger,
		Cache:   deps.cache,
		Enabled: deps.cfg.RateLimitAuthEnabled,
		RPS:     deps.cfg.RateLimitAuthRPS,
		Burst:   deps.cfg.RateLimitAuthBurst,
	}

	// Public auth endpoints, rate limited per IP
	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimitIP(rateLimitCfg)).Post("/register", deps.authHandler.Register)
		r.With(middleware.RateLimitIP(rateLimitCfg)).Post("/login", deps.authHandler.Login)
		r.With(middleware.Auth(authCfg)).Get("/me", deps.authHandler.Me)
	})

	// Task routes, all behind the auth gate
	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))

		r.Post("/", deps.taskHandler.Create)
		r.Get("/", deps.taskHandler.List)
		r.Put("/{id}", deps.taskHandler.Update)
		r.Delete("/{id}", deps.taskHandler.Delete)
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// redactURL strips credentials from connection URLs before logging.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// sanitizeError removes secrets from error messages before logging.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
