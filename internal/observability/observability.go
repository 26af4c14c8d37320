// Package observability provides metrics collection and the Prometheus endpoint.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/screener/screener-go/internal/logging"
	metricspkg "github.com/screener/screener-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	Motion     *metricspkg.MotionMetrics
	Switcher   *metricspkg.SwitcherMetrics
	Transition *metricspkg.TransitionMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	motionMetrics, err := metricspkg.NewMotionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create motion metrics: %w", err)
	}

	switcherMetrics, err := metricspkg.NewSwitcherMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create switcher metrics: %w", err)
	}

	transitionMetrics, err := metricspkg.NewTransitionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create transition metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		Motion:     motionMetrics,
		Switcher:   switcherMetrics,
		Transition: transitionMetrics,
	}, nil
}

// Registry exposes the underlying registry, primarily for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Endpoint serves the /metrics endpoint for Prometheus scrapes.
type Endpoint struct {
	server *http.Server
}

// NewEndpoint builds an HTTP server exposing metrics at /metrics on listenAddr.
func NewEndpoint(listenAddr string, m *Metrics) *Endpoint {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return &Endpoint{
		server: &http.Server{
			Addr:         listenAddr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start serves until the server is shut down; it blocks.
func (e *Endpoint) Start() error {
	logging.ForService("observability").Info("metrics endpoint listening", "addr", e.server.Addr)
	if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the endpoint gracefully.
func (e *Endpoint) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
