// Package metrics exposes prometheus collectors for the game bot.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/cpgamebot/core/logger"
)

// Metrics groups the bot collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Submissions *prometheus.CounterVec
	Commands    *prometheus.CounterVec
	OCRDuration prometheus.Histogram
	OCRFailures prometheus.Counter
	Games       *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpgame_submissions_total",
				Help: "Evaluated chat messages by verdict and reject reason",
			},
			[]string{"verdict", "reason"},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpgame_commands_total",
				Help: "Game commands by name and outcome",
			},
			[]string{"command", "outcome"},
		),
		OCRDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cpgame_ocr_duration_seconds",
			Help:    "Time spent extracting a number from one image",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
		OCRFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cpgame_ocr_failures_total",
			Help: "Images that could not be decoded or recognized",
		}),
		Games: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpgame_games_total",
				Help: "Game lifecycle transitions",
			},
			[]string{"event"},
		),
	}
	m.Registry.MustRegister(
		m.Submissions,
		m.Commands,
		m.OCRDuration,
		m.OCRFailures,
		m.Games,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSubmission counts one evaluated message. Safe on a nil receiver.
func (m *Metrics) ObserveSubmission(verdict, reason string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(verdict, reason).Inc()
}

// ObserveCommand counts one command invocation. Safe on a nil receiver.
func (m *Metrics) ObserveCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
}

// ObserveOCR records one extraction. Safe on a nil receiver.
func (m *Metrics) ObserveOCR(took time.Duration, err error) {
	if m == nil {
		return
	}
	m.OCRDuration.Observe(took.Seconds())
	if err != nil {
		m.OCRFailures.Inc()
	}
}

// ObserveGame counts a lifecycle event such as started or completed. Safe on a nil receiver.
func (m *Metrics) ObserveGame(event string) {
	if m == nil {
		return
	}
	m.Games.WithLabelValues(event).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on listen until ctx is done.
func (m *Metrics) Serve(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info(ctx, "metrics", "metrics.listen",
		slog.String("status", "ok"),
		slog.String("listen", listen),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
