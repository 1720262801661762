// Package server wires the HTTP surface of the crisma API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lcs002/nsp-crisma-app/internal/auth"
	"github.com/Lcs002/nsp-crisma-app/internal/config"
	"github.com/Lcs002/nsp-crisma-app/internal/health"
	"github.com/Lcs002/nsp-crisma-app/internal/middleware"
	"github.com/Lcs002/nsp-crisma-app/internal/observability"
)

// Server is the crisma API HTTP server.
type Server struct {
	cfg       config.ServerConfig
	engine    *gin.Engine
	handlers  *Handlers
	auth      *auth.Authenticator
	health    *health.Handler
	loginRate *middleware.RateLimiter
	logger    observability.Logger
	httpSrv   *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHealthHandler sets the health handler.
func WithHealthHandler(h *health.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithLoginRateLimiter sets the rate limiter protecting the login endpoint.
func WithLoginRateLimiter(rl *middleware.RateLimiter) Option {
	return func(s *Server) {
		s.loginRate = rl
	}
}

// New creates the server and registers all routes.
func New(cfg config.ServerConfig, authenticator *auth.Authenticator, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		auth:   authenticator,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.health == nil {
		s.health = health.NewHandler(s.logger)
	}
	s.handlers = NewHandlers(authenticator, s.logger)

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(s.logger),
		middleware.Logging(s.logger),
	)

	s.registerRoutes(engine)
	s.engine = engine

	return s
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	s.health.RegisterRoutes(engine)

	api := engine.Group("/api")

	authGroup := api.Group("/auth")
	{
		login := authGroup.Group("")
		if s.loginRate != nil {
			login.Use(s.loginRate.Middleware())
		}
		login.POST("/login", s.handlers.Login)

		authGroup.POST("/logout", s.handlers.Logout)
		authGroup.GET("/me", s.auth.Middleware(auth.ModeSession), s.handlers.Me)
	}

	admin := api.Group("/admin", s.auth.Middleware(auth.ModeBearer))
	{
		admin.GET("/ping", s.handlers.AdminPing)
	}
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start begins serving. It blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("http server starting",
		observability.String("addr", s.cfg.Addr),
	)

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.httpSrv.Shutdown(shutdownCtx)
}
