package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/fwbuild/internal/logfields"
	"git.home.luguber.info/inful/fwbuild/internal/pipeline"
)

// CleanCmd implements the 'clean' command: removes the preserved-artifacts
// directory and any leftover fwbuild scratch directories. Installed appbins
// are never touched; they belong to the kernel build.
type CleanCmd struct{}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Artifacts dirs resolve against each app's source directory, exactly
	// as the install stage resolves them when preserving diagnostics. When
	// no artifacts dir is configured, diagnostics sit next to the sources
	// and are not clean's to remove.
	if cfg.Output.ArtifactsDir != "" {
		seen := make(map[string]bool)
		for _, app := range cfg.Apps {
			dir, err := pipeline.DiagnosticsDir(cfg, app)
			if err != nil {
				return err
			}
			if seen[dir] {
				continue
			}
			seen[dir] = true
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("remove artifacts dir: %w", err)
			}
			fmt.Printf("Removed %s\n", dir)
		}
	}

	base := cfg.Output.Workspace
	if base == "" {
		base = os.TempDir()
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return fmt.Errorf("read workspace base: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "fwbuild-") {
			continue
		}
		path := filepath.Join(base, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("Failed to remove scratch dir", logfields.Path(path), logfields.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		fmt.Printf("Removed %d leftover scratch directories\n", removed)
	}
	return nil
}
