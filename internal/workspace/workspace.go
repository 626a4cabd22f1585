package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/fwbuild/internal/logfields"
)

// Manager handles scratch directory lifecycle (both ephemeral and persistent).
// Each build gets its own directory, so fixed intermediate filenames
// (app.o, app.elf, app.map) cannot race across invocations.
type Manager struct {
	baseDir    string
	scratchDir string
	persistent bool // If true, use scratchDir directly and skip removal
}

// NewManager creates a workspace manager with ephemeral timestamped directories.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{
		baseDir:    baseDir,
		persistent: false,
	}
}

// NewPersistentManager creates a workspace manager that uses a persistent
// directory. The directory is fixed (baseDir/subdirName) and not removed on
// Cleanup().
func NewPersistentManager(baseDir, subdirName string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if subdirName == "" {
		subdirName = "working"
	}
	return &Manager{
		baseDir:    baseDir,
		scratchDir: filepath.Join(baseDir, subdirName),
		persistent: true,
	}
}

// Create creates the scratch directory.
// For ephemeral mode: creates a timestamped directory with a uniqueness suffix.
// For persistent mode: ensures the fixed directory exists.
func (m *Manager) Create() error {
	if m.persistent {
		if err := os.MkdirAll(m.scratchDir, 0o750); err != nil {
			return fmt.Errorf("failed to create persistent workspace directory: %w", err)
		}
		slog.Info("Using persistent workspace", logfields.Path(m.scratchDir))
		return nil
	}

	timestamp := time.Now().Format("20060102-150405")
	// MkdirTemp appends a random suffix, so two builds starting in the same
	// second still get distinct directories.
	scratchDir, err := os.MkdirTemp(m.baseDir, fmt.Sprintf("fwbuild-%s-", timestamp))
	if err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.scratchDir = scratchDir
	slog.Info("Created workspace", logfields.Path(scratchDir))
	return nil
}

// Path returns the path to the scratch directory.
func (m *Manager) Path() string {
	return m.scratchDir
}

// AppDir creates (if needed) and returns a per-app subdirectory, so multiple
// apps built in one invocation keep their intermediates apart.
func (m *Manager) AppDir(name string) (string, error) {
	if m.scratchDir == "" {
		return "", fmt.Errorf("workspace not created")
	}

	dir := filepath.Join(m.scratchDir, name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}

	return dir, nil
}

// Cleanup removes the scratch directory.
// For persistent mode: does nothing (keeps intermediates for inspection).
// For ephemeral mode: removes the directory tree.
func (m *Manager) Cleanup() error {
	if m.scratchDir == "" {
		return nil
	}

	if m.persistent {
		slog.Debug("Skipping cleanup for persistent workspace", logfields.Path(m.scratchDir))
		return nil
	}

	if err := os.RemoveAll(m.scratchDir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}

	slog.Info("Cleaned up workspace", logfields.Path(m.scratchDir))
	m.scratchDir = ""
	return nil
}
