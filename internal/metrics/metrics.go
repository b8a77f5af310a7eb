// Package metrics exposes playback counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pink-tools/pink-otel"

	"github.com/pink-tools/se-player/internal/playback"
)

type Metrics struct {
	reg *prometheus.Registry

	started   *prometheus.CounterVec
	stopped   *prometheus.CounterVec
	completed *prometheus.CounterVec
	active    prometheus.Gauge
	rejected  *prometheus.CounterVec
	reroutes  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "se_player",
			Name:      "plays_started_total",
			Help:      "Playbacks started, by sound.",
		}, []string{"sound"}),
		stopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "se_player",
			Name:      "plays_stopped_total",
			Help:      "Playbacks stopped before the end, by sound.",
		}, []string{"sound"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "se_player",
			Name:      "plays_completed_total",
			Help:      "Playbacks that reached the end, by sound.",
		}, []string{"sound"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "se_player",
			Name:      "active_playbacks",
			Help:      "Playbacks currently in the active set.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "se_player",
			Name:      "plays_rejected_total",
			Help:      "Play requests that did not start, by reason.",
		}, []string{"reason"}),
		reroutes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "se_player",
			Name:      "reroutes_total",
			Help:      "Output device changes, by result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(m.started, m.stopped, m.completed, m.active, m.rejected, m.reroutes)
	return m
}

// Observe is a playback.Observer.
func (m *Metrics) Observe(ev playback.Event) {
	id := string(ev.Handle.Sound)
	switch ev.Kind {
	case playback.Started:
		m.started.WithLabelValues(id).Inc()
		m.active.Inc()
	case playback.Stopped:
		m.stopped.WithLabelValues(id).Inc()
		m.active.Dec()
	case playback.Completed:
		m.completed.WithLabelValues(id).Inc()
		m.active.Dec()
	}
}

func (m *Metrics) Rejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Rerouted(err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.reroutes.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", healthcheck)
	return mux
}

func healthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Serve runs the metrics listener until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	otel.Info(ctx, "metrics listening", map[string]any{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
