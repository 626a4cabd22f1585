package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/fwbuild/internal/config"
	"git.home.luguber.info/inful/fwbuild/internal/logfields"
)

// watchedExtensions are the file suffixes a change notification cares about:
// C sources/headers, linker scripts, and static archives.
var watchedExtensions = []string{".c", ".h", ".x", ".ld", ".a"}

// SourceWatcher monitors the directories holding app inputs and forwards
// relevant changes to the debouncer.
type SourceWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
}

// NewSourceWatcher creates a watcher over every directory that contains an
// app source, linker script, or static library. Watching directories rather
// than files survives editor rename-and-replace saves.
func NewSourceWatcher(apps []config.App, debouncer *Debouncer) (*SourceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dirs := make(map[string]bool)
	addDir := func(p string) error {
		dir, err := filepath.Abs(filepath.Dir(p))
		if err != nil {
			return err
		}
		if dirs[dir] {
			return nil
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
		return nil
	}

	for _, app := range apps {
		inputs := append([]string{app.Source, app.LinkerScript}, app.Libraries...)
		for _, input := range inputs {
			if input == "" {
				continue
			}
			if err := addDir(input); err != nil {
				_ = watcher.Close()
				return nil, err
			}
		}
	}

	slog.Info("Watching source directories", "count", len(dirs))
	return &SourceWatcher{watcher: watcher, debouncer: debouncer}, nil
}

// Run forwards events until the context is canceled.
func (w *SourceWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			slog.Debug("Source change detected", logfields.Path(event.Name), "op", event.Op.String())
			w.debouncer.Notify(filepath.Base(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *SourceWatcher) Close() error {
	return w.watcher.Close()
}

func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, want := range watchedExtensions {
		if ext == want {
			return true
		}
	}
	return false
}
