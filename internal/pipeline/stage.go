package pipeline

import (
	"context"
	"time"

	"git.home.luguber.info/inful/fwbuild/internal/artifact"
	"git.home.luguber.info/inful/fwbuild/internal/config"
	"git.home.luguber.info/inful/fwbuild/internal/metrics"
	"git.home.luguber.info/inful/fwbuild/internal/toolchain"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StageCompile StageName = "compile"
	StageLink    StageName = "link"
	StageExtract StageName = "extract"
	StageInstall StageName = "install"
)

// Stage is one step of the firmware build pipeline. Stages declare their
// dependencies; the pipeline guarantees a dependent never executes after a
// dependency failed.
type Stage interface {
	Name() StageName
	Dependencies() []StageName
	Execute(ctx context.Context, bc *BuildContext) error
}

// ArtifactPaths are the fixed per-app file names, all rooted in the
// per-invocation scratch directory so concurrent builds cannot collide.
type ArtifactPaths struct {
	Object  string // <scratch>/<app>.o
	Image   string // <scratch>/<app>.elf
	MapFile string // <scratch>/<app>.map
	Binary  string // <scratch>/<app>.bin
}

// BuildContext carries everything stages need for one app build.
type BuildContext struct {
	Config    *config.Config
	App       config.App
	Toolchain *toolchain.Toolchain

	// SourceDir is the directory the app's source, linker script and
	// libraries are resolved against (where the tools also run, so
	// relative includes keep working).
	SourceDir string

	// ScratchDir is this build's private intermediate directory.
	ScratchDir string

	Paths    ArtifactPaths
	Manifest *artifact.Manifest
	Recorder metrics.Recorder
}

// StageResult records how a single stage ended.
type StageResult struct {
	Stage    StageName
	Result   metrics.ResultLabel
	Duration time.Duration
	Err      error
}
