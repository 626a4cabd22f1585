package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/fwbuild/internal/logfields"
	"git.home.luguber.info/inful/fwbuild/internal/toolchain"
)

// DiscoverCmd implements the 'discover' command: show what a build would do
// without invoking any stage.
type DiscoverCmd struct{}

func (d *DiscoverCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	tc, err := toolchain.Resolve(cfg.Toolchain)
	if err != nil {
		return err
	}

	fmt.Printf("compiler:  %s\n", tc.CC)
	fmt.Printf("objcopy:   %s\n", tc.Objcopy)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if version, err := tc.Version(ctx); err == nil {
		fmt.Printf("version:   %s\n", version)
	} else {
		slog.Debug("Compiler version probe failed", logfields.Error(err))
	}

	fmt.Printf("target:    %s / %s float", cfg.Target.CPU, cfg.Target.FloatABI)
	if cfg.Target.FPU != "" {
		fmt.Printf(" (%s)", cfg.Target.FPU)
	}
	fmt.Println()
	fmt.Printf("appbins:   %s\n", cfg.Output.AppbinsDir)
	fmt.Printf("apps (%d):\n", len(cfg.Apps))
	for _, app := range cfg.Apps {
		fmt.Printf("  %s: %s -> %s.bin (script %s, %d libs)\n",
			app.Name, app.Source, app.Name, app.LinkerScript, len(app.Libraries))
	}
	return nil
}
