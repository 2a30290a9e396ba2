// Package metrics exposes per-operation Prometheus metrics for the
// mounted filesystem.
package metrics

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config represents metrics configuration.
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// Collector records filesystem operation metrics and serves them over
// HTTP. A disabled collector is a no-op and safe to call.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorCounter      *prometheus.CounterVec

	server *http.Server
}

// NewCollector creates a metrics collector.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:   true,
			Port:      8080,
			Path:      "/metrics",
			Namespace: "fusevfs",
		}
	}
	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	registry := prometheus.NewRegistry()
	c := &Collector{
		config:   config,
		registry: registry,
		operationCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "operations_total",
			Help:      "Total number of filesystem operations",
		}, []string{"operation"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Filesystem operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		errorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "operation_errors_total",
			Help:      "Total number of failed filesystem operations",
		}, []string{"operation"}),
	}

	for _, col := range []prometheus.Collector{
		c.operationCounter, c.operationDuration, c.errorCounter,
	} {
		if err := registry.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return c, nil
}

// RecordOperation records one dispatched filesystem operation.
func (c *Collector) RecordOperation(op string, duration time.Duration, success bool) {
	if c.registry == nil {
		return
	}
	c.operationCounter.WithLabelValues(op).Inc()
	c.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
	if !success {
		c.errorCounter.WithLabelValues(op).Inc()
	}
}

// Start serves the metrics endpoint in the background.
func (c *Collector) Start() error {
	if c.registry == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	c.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", c.config.Port),
		Handler: mux,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()
	return nil
}

// Stop shuts the metrics endpoint down.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}
