// Package main is the entry point for the crisma API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lcs002/nsp-crisma-app/internal/auth"
	"github.com/Lcs002/nsp-crisma-app/internal/config"
	"github.com/Lcs002/nsp-crisma-app/internal/health"
	"github.com/Lcs002/nsp-crisma-app/internal/middleware"
	"github.com/Lcs002/nsp-crisma-app/internal/observability"
	"github.com/Lcs002/nsp-crisma-app/internal/server"
	"github.com/Lcs002/nsp-crisma-app/internal/store"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	gin.SetMode(gin.ReleaseMode)

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(flags.configPath, logger)
	app := initApplication(cfg, logger)

	run(app, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("CRISMA_CONFIG_PATH", "configs/crisma.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("CRISMA_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("CRISMA_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("crisma-api version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadConfig loads and validates the configuration.
func loadConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting crisma-api",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.String("addr", cfg.Server.Addr),
		observability.Bool("metrics", cfg.Metrics.Enabled),
	)

	return cfg
}

// application holds all application components.
type application struct {
	server       *server.Server
	usersWatcher *config.UsersWatcher
	redisStore   *store.RedisStore
	loginRate    *middleware.RateLimiter
	metrics      *auth.Metrics
	config       *config.Config
}

// initApplication wires the credential store, both authenticators, and the
// HTTP server.
func initApplication(cfg *config.Config, logger observability.Logger) *application {
	metrics := auth.NewMetrics("crisma")

	app := &application{
		metrics: metrics,
		config:  cfg,
	}

	credStore, healthCheck := initStore(cfg, app, logger)

	sessions := auth.NewSessionAuthenticator(
		credStore,
		auth.NewSessionTokenCodec([]byte(cfg.Auth.SessionSecret)),
		auth.NewSessionCookieCodec(cfg.Server.SecureCookies()),
		auth.WithSessionLogger(logger),
		auth.WithSessionMetrics(metrics),
	)

	bearer := auth.NewBearerAuthenticator(
		auth.NewKeySetCache(
			auth.NewHTTPFetcherWithClient(&http.Client{Timeout: cfg.Auth.JWKSTimeout}),
			auth.WithKeySetLogger(logger),
			auth.WithKeySetMetrics(metrics),
		),
		auth.WithBearerLogger(logger),
		auth.WithBearerMetrics(metrics),
	)

	healthHandler := health.NewHandler(logger)
	if healthCheck != nil {
		healthHandler.AddCheck(healthCheck)
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithHealthHandler(healthHandler),
	}

	if cfg.Auth.LoginRateLimit > 0 {
		app.loginRate = middleware.NewRateLimiter(
			cfg.Auth.LoginRateLimit,
			cfg.Auth.LoginRateBurst,
			middleware.WithRateLimiterLogger(logger),
		)
		app.loginRate.StartAutoCleanup()
		opts = append(opts, server.WithLoginRateLimiter(app.loginRate))
	}

	app.server = server.New(
		cfg.Server,
		auth.NewAuthenticator(sessions, bearer, logger),
		opts...,
	)

	return app
}

// initStore builds the configured credential store and an optional readiness
// check for it.
func initStore(cfg *config.Config, app *application, logger observability.Logger) (store.Store, health.Check) {
	if cfg.Users.Redis != nil {
		rs, err := store.NewRedisStore(context.Background(), *cfg.Users.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", observability.Error(err))
		}
		app.redisStore = rs

		check := health.NewCheckFunc("redis", func(ctx context.Context) error {
			_, err := rs.Get(ctx, "__health__")
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		})
		return rs, check
	}

	memStore := store.NewMemoryStore(nil)
	watcher, err := config.NewUsersWatcher(cfg.Users.File, memStore.Replace,
		config.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to create users watcher", observability.Error(err))
	}
	if err := watcher.Start(context.Background()); err != nil {
		logger.Fatal("failed to load users file", observability.Error(err))
	}
	app.usersWatcher = watcher

	check := health.NewCheckFunc("users", func(context.Context) error {
		if memStore.Len() == 0 {
			return fmt.Errorf("no credentials loaded")
		}
		return nil
	})
	return memStore, check
}

// run starts the servers and blocks until shutdown.
func run(app *application, logger observability.Logger) {
	if app.config.Metrics.Enabled {
		go startMetricsServer(app.config.Metrics.Addr, app.metrics, logger)
	}

	go func() {
		if err := app.server.Start(); err != nil {
			logger.Fatal("http server failed", observability.Error(err))
		}
	}()

	waitForShutdown(app, logger)
}

// waitForShutdown waits for a shutdown signal and performs graceful
// shutdown.
func waitForShutdown(app *application, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if app.usersWatcher != nil {
		_ = app.usersWatcher.Stop()
	}

	if app.loginRate != nil {
		app.loginRate.Stop()
	}

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to stop http server gracefully", observability.Error(err))
	}

	if app.redisStore != nil {
		if err := app.redisStore.Close(); err != nil {
			logger.Error("failed to close redis connection", observability.Error(err))
		}
	}

	logger.Info("crisma-api stopped")
}

// startMetricsServer serves the Prometheus endpoint on its own listener.
func startMetricsServer(addr string, metrics *auth.Metrics, logger observability.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	logger.Info("starting metrics server",
		observability.String("address", addr),
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", observability.Error(err))
	}
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
