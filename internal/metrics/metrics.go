// Package metrics exposes Prometheus counters for descriptor validation.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"

	shutdownTimeout = 5 * time.Second
)

// Metrics holds the validation collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	Validations   *prometheus.CounterVec
	LastValidated prometheus.Gauge
	Valid         prometheus.Gauge
}

// New registers the validation collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitecfg_validations_total",
			Help: "Descriptor file validations by result",
		}, []string{"result"}),
		LastValidated: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sitecfg_last_validation_timestamp_seconds",
			Help: "Unix time of the last descriptor file validation",
		}),
		Valid: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sitecfg_descriptor_valid",
			Help: "1 if the last validation succeeded, 0 otherwise",
		}),
	}
}

// Observe records one validation outcome.
func (m *Metrics) Observe(err error, at time.Time) {
	m.LastValidated.Set(float64(at.Unix()))
	if err != nil {
		m.Validations.WithLabelValues(ResultInvalid).Inc()
		m.Valid.Set(0)
		return
	}
	m.Validations.WithLabelValues(ResultOK).Inc()
	m.Valid.Set(1)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes Handler on addr under /metrics until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
