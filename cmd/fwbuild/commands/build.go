package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/fwbuild/internal/artifact"
	"git.home.luguber.info/inful/fwbuild/internal/events"
	"git.home.luguber.info/inful/fwbuild/internal/history"
	"git.home.luguber.info/inful/fwbuild/internal/logfields"
	"git.home.luguber.info/inful/fwbuild/internal/metrics"
	"git.home.luguber.info/inful/fwbuild/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	App string `short:"a" help:"Build a single app by name (default: all configured apps)"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	builder, _, err := newBuilder(cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	publisher, err := events.NewPublisher(cfg.Events)
	if err != nil {
		// Event publishing is auxiliary; a broken broker must not block builds.
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

	var reports []*pipeline.Report
	var buildErr error
	if b.App != "" {
		app := cfg.AppByName(b.App)
		if app == nil {
			return fmt.Errorf("app %q not found in configuration", b.App)
		}
		var report *pipeline.Report
		report, buildErr = builder.BuildApp(ctx, *app)
		if report != nil {
			reports = append(reports, report)
		}
	} else {
		reports, buildErr = builder.BuildAll(ctx)
	}

	for _, report := range reports {
		if report == nil || report.Manifest == nil {
			continue
		}
		if hist != nil {
			if err := hist.Record(ctx, history.FromManifest(report.Manifest)); err != nil {
				slog.Warn("Failed to record build history", logfields.Error(err))
			}
		}
		publisher.PublishManifest(report.Manifest)
		printReport(report)
	}

	if buildErr != nil {
		return buildErr
	}
	return nil
}

func printReport(report *pipeline.Report) {
	m := report.Manifest
	if m.Outcome != artifact.OutcomeSuccess {
		fmt.Printf("%s: %s\n", m.App, m.Outcome)
		return
	}
	installed, ok := m.Artifacts["installed"]
	if !ok {
		fmt.Printf("%s: built (nothing installed)\n", m.App)
		return
	}
	fmt.Printf("%s: %s (%d bytes, sha256 %.12s)\n", m.App, installed.Path, installed.Size, installed.SHA256)
}
