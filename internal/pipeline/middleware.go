package pipeline

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/fwbuild/internal/logfields"
	"git.home.luguber.info/inful/fwbuild/internal/metrics"
)

// StageFunc is the execution signature middleware wraps.
type StageFunc func(ctx context.Context, bc *BuildContext) error

// Middleware decorates a stage execution.
type Middleware func(name StageName, next StageFunc) StageFunc

// LoggingMiddleware logs stage start/finish with durations.
func LoggingMiddleware() Middleware {
	return func(name StageName, next StageFunc) StageFunc {
		return func(ctx context.Context, bc *BuildContext) error {
			slog.Debug("Stage starting", logfields.Stage(string(name)), logfields.App(bc.App.Name))
			start := time.Now()
			err := next(ctx, bc)
			ms := float64(time.Since(start).Microseconds()) / 1000.0
			if err != nil {
				slog.Error("Stage failed",
					logfields.Stage(string(name)),
					logfields.App(bc.App.Name),
					logfields.DurationMS(ms),
					logfields.Error(err))
				return err
			}
			slog.Info("Stage completed",
				logfields.Stage(string(name)),
				logfields.App(bc.App.Name),
				logfields.DurationMS(ms))
			return nil
		}
	}
}

// MetricsMiddleware records stage durations and results on the recorder.
func MetricsMiddleware() Middleware {
	return func(name StageName, next StageFunc) StageFunc {
		return func(ctx context.Context, bc *BuildContext) error {
			if bc.Recorder == nil {
				return next(ctx, bc)
			}
			start := time.Now()
			err := next(ctx, bc)
			bc.Recorder.ObserveStageDuration(string(name), time.Since(start))
			switch {
			case err == nil:
				bc.Recorder.IncStageResult(string(name), metrics.ResultSuccess)
			case ctx.Err() != nil:
				bc.Recorder.IncStageResult(string(name), metrics.ResultCanceled)
			default:
				bc.Recorder.IncStageResult(string(name), metrics.ResultFatal)
			}
			return err
		}
	}
}

// DefaultMiddleware is the standard chain: logging outermost, then metrics.
func DefaultMiddleware() []Middleware {
	return []Middleware{LoggingMiddleware(), MetricsMiddleware()}
}
