// Package health provides liveness and readiness endpoints for the crisma
// API.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lcs002/nsp-crisma-app/internal/observability"
)

// DefaultProbeTimeout bounds a single readiness probe run.
const DefaultProbeTimeout = 5 * time.Second

// Check is a named readiness check.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to the Check interface.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCheckFunc creates a named check from a function.
func NewCheckFunc(name string, fn func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name returns the check name.
func (f *CheckFunc) Name() string { return f.name }

// Check runs the check.
func (f *CheckFunc) Check(ctx context.Context) error { return f.fn(ctx) }

// Status is the readiness probe response body.
type Status struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Uptime    string                  `json:"uptime,omitempty"`
	Checks    map[string]*CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Handler serves the health endpoints.
type Handler struct {
	checks       []Check
	logger       observability.Logger
	mu           sync.RWMutex
	startTime    time.Time
	probeTimeout time.Duration
}

// NewHandler creates a health handler.
func NewHandler(logger observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handler{
		logger:       logger,
		startTime:    time.Now(),
		probeTimeout: DefaultProbeTimeout,
	}
}

// AddCheck registers a readiness check.
func (h *Handler) AddCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// LivenessHandler reports that the process is running. It never runs checks.
func (h *Handler) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	}
}

// ReadinessHandler runs all registered checks and reports 503 when any
// fails.
func (h *Handler) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.probeTimeout)
		defer cancel()

		status := h.runChecks(ctx)
		status.Uptime = time.Since(h.startTime).String()

		statusCode := http.StatusOK
		if status.Status != "ok" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, status)
	}
}

// runChecks runs all checks concurrently and aggregates the results.
func (h *Handler) runChecks(ctx context.Context) *Status {
	h.mu.RLock()
	checks := make([]Check, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := &Status{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]*CheckResult),
	}

	if len(checks) == 0 {
		return status
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, check := range checks {
		wg.Add(1)
		go func(c Check) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			duration := time.Since(start)

			result := &CheckResult{
				Status:   "ok",
				Duration: duration.String(),
			}

			if err != nil {
				result.Status = "error"
				result.Error = err.Error()

				mu.Lock()
				status.Status = "error"
				mu.Unlock()

				h.logger.Warn("health check failed",
					observability.String("check", c.Name()),
					observability.Error(err),
					observability.Duration("duration", duration),
				)
			}

			mu.Lock()
			status.Checks[c.Name()] = result
			mu.Unlock()
		}(check)
	}

	wg.Wait()
	return status
}

// RegisterRoutes registers the health endpoints on a gin engine.
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", h.LivenessHandler())
	engine.GET("/readyz", h.ReadinessHandler())
}
