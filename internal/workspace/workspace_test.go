package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_EphemeralLifecycle(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	require.NoError(t, m.Create())
	dir := m.Path()
	require.NotEmpty(t, dir)
	assert.True(t, strings.HasPrefix(filepath.Base(dir), "fwbuild-"))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, m.Cleanup())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, m.Path())
}

func TestManager_ConcurrentCreatesGetDistinctDirs(t *testing.T) {
	base := t.TempDir()

	a := NewManager(base)
	b := NewManager(base)
	require.NoError(t, a.Create())
	require.NoError(t, b.Create())
	defer a.Cleanup() //nolint:errcheck
	defer b.Cleanup() //nolint:errcheck

	assert.NotEqual(t, a.Path(), b.Path())
}

func TestManager_DefaultsToTempDir(t *testing.T) {
	m := NewManager("")
	require.NoError(t, m.Create())
	defer m.Cleanup() //nolint:errcheck

	assert.True(t, strings.HasPrefix(m.Path(), os.TempDir()))
}

func TestManager_AppDir(t *testing.T) {
	m := NewManager(t.TempDir())
	require.NoError(t, m.Create())
	defer m.Cleanup() //nolint:errcheck

	dir, err := m.AppDir("blinker")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Path(), "blinker"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Repeated calls are idempotent.
	again, err := m.AppDir("blinker")
	require.NoError(t, err)
	assert.Equal(t, dir, again)
}

func TestManager_AppDirBeforeCreate(t *testing.T) {
	m := NewManager(t.TempDir())
	_, err := m.AppDir("test")
	require.Error(t, err)
}

func TestManager_PersistentSurvivesCleanup(t *testing.T) {
	base := t.TempDir()
	m := NewPersistentManager(base, "working")

	require.NoError(t, m.Create())
	assert.Equal(t, filepath.Join(base, "working"), m.Path())

	marker := filepath.Join(m.Path(), "test.o")
	require.NoError(t, os.WriteFile(marker, []byte("obj"), 0o644))

	require.NoError(t, m.Cleanup())
	_, err := os.Stat(marker)
	assert.NoError(t, err, "persistent workspace must keep intermediates")
}

func TestManager_CleanupWithoutCreate(t *testing.T) {
	m := NewManager(t.TempDir())
	assert.NoError(t, m.Cleanup())
}
