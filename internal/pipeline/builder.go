package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/fwbuild/internal/artifact"
	"git.home.luguber.info/inful/fwbuild/internal/config"
	fwerrors "git.home.luguber.info/inful/fwbuild/internal/errors"
	"git.home.luguber.info/inful/fwbuild/internal/logfields"
	"git.home.luguber.info/inful/fwbuild/internal/metrics"
	"git.home.luguber.info/inful/fwbuild/internal/toolchain"
	"git.home.luguber.info/inful/fwbuild/internal/workspace"
)

// Report is the outcome of building one app.
type Report struct {
	Manifest *artifact.Manifest
	Stages   []StageResult
}

// Builder runs the full four-stage pipeline for configured apps.
type Builder struct {
	cfg      *config.Config
	tc       *toolchain.Toolchain
	recorder metrics.Recorder
	pipeline *Pipeline
	plan     *Plan
}

// NewBuilder wires the standard stage registry and middleware.
func NewBuilder(cfg *config.Config, tc *toolchain.Toolchain, recorder metrics.Recorder) (*Builder, error) {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	tc.Observe = recorder.ObserveToolDuration

	registry := NewRegistry(CompileStage{}, LinkStage{}, ExtractStage{}, InstallStage{})
	p := New(registry, WithMiddleware(DefaultMiddleware()...))

	plan, err := p.BuildPlan([]StageName{StageInstall})
	if err != nil {
		return nil, fwerrors.InternalError("build stage plan", err)
	}

	return &Builder{cfg: cfg, tc: tc, recorder: recorder, pipeline: p, plan: plan}, nil
}

// BuildAll builds every configured app sequentially, stopping at the first
// failing app. Reports for completed (and the failed) apps are returned.
func (b *Builder) BuildAll(ctx context.Context) ([]*Report, error) {
	ws := workspace.NewManager(b.cfg.Output.Workspace)
	if err := ws.Create(); err != nil {
		return nil, fwerrors.WorkspaceError("create", err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to cleanup workspace", logfields.Error(err))
		}
	}()

	reports := make([]*Report, 0, len(b.cfg.Apps))
	for _, app := range b.cfg.Apps {
		scratch, err := ws.AppDir(app.Name)
		if err != nil {
			return reports, fwerrors.WorkspaceError("app dir", err)
		}
		report, err := b.buildAppIn(ctx, app, scratch)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// BuildApp builds a single app in its own ephemeral workspace.
func (b *Builder) BuildApp(ctx context.Context, app config.App) (*Report, error) {
	ws := workspace.NewManager(b.cfg.Output.Workspace)
	if err := ws.Create(); err != nil {
		return nil, fwerrors.WorkspaceError("create", err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to cleanup workspace", logfields.Error(err))
		}
	}()

	return b.buildAppIn(ctx, app, ws.Path())
}

func (b *Builder) buildAppIn(ctx context.Context, app config.App, scratchDir string) (*Report, error) {
	sourceDir, err := resolveSourceDir(app)
	if err != nil {
		return nil, err
	}

	revision := artifact.Revision(sourceDir)
	manifest := artifact.NewManifest(app.Name, revision)

	bc := &BuildContext{
		Config:     b.cfg,
		App:        app,
		Toolchain:  b.tc,
		SourceDir:  sourceDir,
		ScratchDir: scratchDir,
		Paths: ArtifactPaths{
			Object:  filepath.Join(scratchDir, app.Name+".o"),
			Image:   filepath.Join(scratchDir, app.Name+".elf"),
			MapFile: filepath.Join(scratchDir, app.Name+".map"),
			Binary:  filepath.Join(scratchDir, app.Name+".bin"),
		},
		Manifest: manifest,
		Recorder: b.recorder,
	}

	slog.Info("Building app",
		logfields.App(app.Name),
		logfields.BuildID(manifest.BuildID),
		logfields.Revision(revision),
		logfields.Path(scratchDir))

	start := time.Now()
	results, execErr := b.pipeline.Execute(ctx, bc, b.plan)
	b.recorder.ObserveBuildDuration(app.Name, time.Since(start))

	outcome := artifact.OutcomeSuccess
	switch {
	case execErr == nil:
	case ctx.Err() != nil:
		outcome = artifact.OutcomeCanceled
	default:
		outcome = artifact.OutcomeFailed
	}
	manifest.Finish(outcome, execErr)
	b.recorder.IncBuildOutcome(string(outcome))

	report := &Report{Manifest: manifest, Stages: results}
	if execErr != nil {
		return report, execErr
	}

	slog.Info("App built",
		logfields.App(app.Name),
		logfields.BuildID(manifest.BuildID),
		logfields.Outcome(string(outcome)),
		logfields.DurationMS(float64(manifest.Duration.Microseconds())/1000.0))
	return report, nil
}

// resolveSourceDir returns the absolute directory the app's inputs and
// relative output paths are resolved against.
func resolveSourceDir(app config.App) (string, error) {
	dir := filepath.Dir(app.Source)
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fwerrors.WorkspaceError("resolve source dir", err)
	}
	if _, err := os.Stat(filepath.Join(abs, filepath.Base(app.Source))); err != nil {
		return "", fwerrors.ValidationFailed("source", err.Error()).
			WithContext("app", app.Name)
	}
	return abs, nil
}
