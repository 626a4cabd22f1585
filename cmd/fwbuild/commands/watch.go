package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/fwbuild/internal/events"
	"git.home.luguber.info/inful/fwbuild/internal/history"
	"git.home.luguber.info/inful/fwbuild/internal/logfields"
	"git.home.luguber.info/inful/fwbuild/internal/metrics"
	"git.home.luguber.info/inful/fwbuild/internal/watch"
)

// WatchCmd implements the 'watch' command: continuous rebuilds on change.
type WatchCmd struct{}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var registry *prom.Registry
	if cfg.Monitoring.Enabled {
		registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	builder, _, err := newBuilder(cfg, recorder)
	if err != nil {
		return err
	}

	publisher, err := events.NewPublisher(cfg.Events)
	if err != nil {
		slog.Warn("Build events disabled", logfields.Error(err))
	}
	defer publisher.Close()

	var hist history.Store
	if cfg.History.Path != "" {
		hist, err = history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			slog.Warn("Build history disabled", logfields.Error(err))
			hist = nil
		} else {
			defer func() {
				_ = hist.Close()
			}()
		}
	}

	service := watch.NewService(cfg, builder, hist, publisher, registry)
	return service.Run(ctx)
}
