package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/fwbuild/internal/config"
	"git.home.luguber.info/inful/fwbuild/internal/metrics"
	"git.home.luguber.info/inful/fwbuild/internal/pipeline"
	"git.home.luguber.info/inful/fwbuild/internal/toolchain"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"fwbuild.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Build firmware apps and install binaries into the appbins directory"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
	Discover DiscoverCmd `cmd:"" help:"Show configured apps and the resolved toolchain without building"`
	Clean    CleanCmd    `cmd:"" help:"Remove preserved artifacts and leftover scratch directories"`
	History  HistoryCmd  `cmd:"" help:"Show recorded build history"`
	Watch    WatchCmd    `cmd:"" help:"Rebuild continuously on source changes"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads and validates the configuration named by the root flags.
func loadConfig(root *CLI) (*config.Config, error) {
	return config.Load(root.Config)
}

// newBuilder resolves the toolchain and assembles a pipeline builder.
func newBuilder(cfg *config.Config, recorder metrics.Recorder) (*pipeline.Builder, *toolchain.Toolchain, error) {
	tc, err := toolchain.Resolve(cfg.Toolchain)
	if err != nil {
		return nil, nil, err
	}
	builder, err := pipeline.NewBuilder(cfg, tc, recorder)
	if err != nil {
		return nil, nil, err
	}
	return builder, tc, nil
}
