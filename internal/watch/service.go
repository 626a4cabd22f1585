// Package watch implements continuous rebuilds: file-change and periodic
// triggers are debounced into full pipeline runs, with metrics and build
// events exposed for long-running use.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/fwbuild/internal/config"
	fwerrors "git.home.luguber.info/inful/fwbuild/internal/errors"
	"git.home.luguber.info/inful/fwbuild/internal/events"
	"git.home.luguber.info/inful/fwbuild/internal/history"
	"git.home.luguber.info/inful/fwbuild/internal/logfields"
	"git.home.luguber.info/inful/fwbuild/internal/metrics"
	"git.home.luguber.info/inful/fwbuild/internal/pipeline"
	"git.home.luguber.info/inful/fwbuild/internal/retry"
)

// Service owns the watch-mode rebuild loop and its supporting machinery.
type Service struct {
	cfg       *config.Config
	builder   *pipeline.Builder
	hist      history.Store     // optional
	publisher *events.Publisher // nil-safe
	registry  *prom.Registry
	policy    retry.Policy
	debouncer *Debouncer
}

// NewService assembles a watch service around a ready builder.
// hist may be nil; publisher may be nil.
func NewService(cfg *config.Config, builder *pipeline.Builder, hist history.Store, publisher *events.Publisher, registry *prom.Registry) *Service {
	return &Service{
		cfg:       cfg,
		builder:   builder,
		hist:      hist,
		publisher: publisher,
		registry:  registry,
		policy:    retry.FromConfig(cfg.Retry),
		debouncer: NewDebouncer(cfg.Watch.Debounce.Duration(), cfg.Watch.MaxDelay.Duration()),
	}
}

// Run blocks until the context is canceled. An initial build runs before
// any watching starts, so a freshly started watcher always leaves valid
// appbins behind.
func (s *Service) Run(ctx context.Context) error {
	watcher, err := NewSourceWatcher(s.cfg.Apps, s.debouncer)
	if err != nil {
		return fwerrors.WatchError("start watcher", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Warn("Failed to close file watcher", logfields.Error(err))
		}
	}()

	var scheduler *Scheduler
	if interval := s.cfg.Watch.Interval.Duration(); interval > 0 {
		scheduler, err = NewScheduler(interval, s.debouncer)
		if err != nil {
			return fwerrors.WatchError("start scheduler", err)
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				slog.Warn("Failed to stop scheduler", logfields.Error(err))
			}
		}()
	}

	if s.cfg.Monitoring.Enabled {
		s.serveMetrics(ctx)
	}

	go s.debouncer.Run(ctx)
	go watcher.Run(ctx)

	slog.Info("Watch mode started",
		"apps", len(s.cfg.Apps),
		"debounce", s.cfg.Watch.Debounce.Duration().String(),
		"interval", s.cfg.Watch.Interval.Duration().String())

	// Initial build; failures are reported but watch mode keeps running so
	// the next source change can fix the build.
	s.rebuild(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch mode stopping")
			return nil
		case trigger := <-s.debouncer.Triggers():
			slog.Info("Rebuild triggered", "reason", trigger.Reason, "changes", trigger.Changes)
			s.rebuild(ctx, trigger.Reason)
		}
	}
}

// rebuild runs the full pipeline for all apps. Retryable infrastructure
// errors are retried per policy; tool failures are terminal for this
// trigger and wait for the next change.
func (s *Service) rebuild(ctx context.Context, reason string) {
	for attempt := 0; ; attempt++ {
		reports, err := s.builder.BuildAll(ctx)
		s.recordReports(ctx, reports)

		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if !fwerrors.IsRetryable(err) {
			slog.Error("Build failed, waiting for next change",
				"reason", reason, logfields.Error(err))
			return
		}
		if attempt >= s.policy.MaxRetries {
			slog.Error("Build failed, retries exhausted",
				"reason", reason, "attempts", attempt+1, logfields.Error(err))
			return
		}

		delay := s.policy.Delay(attempt + 1)
		slog.Warn("Build failed with retryable error, backing off",
			"delay", delay.String(), logfields.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Service) recordReports(ctx context.Context, reports []*pipeline.Report) {
	for _, report := range reports {
		if report == nil || report.Manifest == nil {
			continue
		}
		if s.hist != nil {
			if err := s.hist.Record(ctx, history.FromManifest(report.Manifest)); err != nil {
				slog.Warn("Failed to record build history", logfields.Error(err))
			}
		}
		s.publisher.PublishManifest(report.Manifest)
	}
}

// serveMetrics exposes /metrics for the lifetime of the context.
func (s *Service) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(s.registry))

	server := &http.Server{
		Addr:              s.cfg.Monitoring.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Metrics endpoint listening", "addr", s.cfg.Monitoring.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics endpoint failed", logfields.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
