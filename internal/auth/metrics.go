package auth

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for authentication operations.
type Metrics struct {
	loginTotal          *prometheus.CounterVec
	loginDuration       *prometheus.HistogramVec
	verifyTotal         *prometheus.CounterVec
	verifyDuration      *prometheus.HistogramVec
	keySetLookupTotal   *prometheus.CounterVec
	keySetFetchTotal    *prometheus.CounterVec
	keySetFetchDuration prometheus.Histogram
	registry            *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "crisma"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.loginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_total",
			Help:      "Total number of login attempts",
		},
		[]string{"status"},
	)

	m.loginDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_duration_seconds",
			Help:      "Login duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"status"},
	)

	m.verifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "verify_total",
			Help:      "Total number of token verification attempts",
		},
		[]string{"mode", "status"},
	)

	m.verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "verify_duration_seconds",
			Help:      "Token verification duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"mode", "status"},
	)

	m.keySetLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "keyset_lookup_total",
			Help:      "Total number of key set cache lookups",
		},
		[]string{"issuer", "result"},
	)

	m.keySetFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "keyset_fetch_total",
			Help:      "Total number of JWKS discovery fetches",
		},
		[]string{"issuer", "status"},
	)

	m.keySetFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "keyset_fetch_duration_seconds",
			Help:      "JWKS discovery fetch duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	m.registry.MustRegister(
		m.loginTotal,
		m.loginDuration,
		m.verifyTotal,
		m.verifyDuration,
		m.keySetLookupTotal,
		m.keySetFetchTotal,
		m.keySetFetchDuration,
	)

	return m
}

// RecordLogin records a login attempt.
func (m *Metrics) RecordLogin(success bool, duration time.Duration) {
	status := statusLabel(success)
	m.loginTotal.WithLabelValues(status).Inc()
	m.loginDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordVerify records a token verification attempt for the given mode.
func (m *Metrics) RecordVerify(mode string, success bool, duration time.Duration) {
	status := statusLabel(success)
	m.verifyTotal.WithLabelValues(mode, status).Inc()
	m.verifyDuration.WithLabelValues(mode, status).Observe(duration.Seconds())
}

// RecordKeySetLookup records a key set cache lookup.
func (m *Metrics) RecordKeySetLookup(issuer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.keySetLookupTotal.WithLabelValues(issuer, result).Inc()
}

// RecordKeySetFetch records a JWKS discovery fetch.
func (m *Metrics) RecordKeySetFetch(issuer string, success bool, duration time.Duration) {
	m.keySetFetchTotal.WithLabelValues(issuer, statusLabel(success)).Inc()
	m.keySetFetchDuration.Observe(duration.Seconds())
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
// It uses Register (not MustRegister) to gracefully handle duplicate
// registration when components are recreated on config reload.
// AlreadyRegisteredError is silently ignored.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	for _, c := range []prometheus.Collector{
		m.loginTotal,
		m.loginDuration,
		m.verifyTotal,
		m.verifyDuration,
		m.keySetLookupTotal,
		m.keySetFetchTotal,
		m.keySetFetchDuration,
	} {
		if err := registry.Register(c); err != nil {
			if !isAlreadyRegistered(err) {
				panic(err)
			}
		}
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// isAlreadyRegistered returns true if the error indicates the
// collector was already registered with the registry.
func isAlreadyRegistered(err error) bool {
	var are prometheus.AlreadyRegisteredError
	return errors.As(err, &are)
}
