package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fwbuild/internal/config"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"c source write", fsnotify.Event{Name: "test.c", Op: fsnotify.Write}, true},
		{"header create", fsnotify.Event{Name: "board.h", Op: fsnotify.Create}, true},
		{"linker script rename", fsnotify.Event{Name: "link.x", Op: fsnotify.Rename}, true},
		{"ld script write", fsnotify.Event{Name: "app.ld", Op: fsnotify.Write}, true},
		{"archive remove", fsnotify.Event{Name: "libc_userspace.a", Op: fsnotify.Remove}, true},
		{"uppercase extension", fsnotify.Event{Name: "TEST.C", Op: fsnotify.Write}, true},
		{"chmod only", fsnotify.Event{Name: "test.c", Op: fsnotify.Chmod}, false},
		{"editor swap file", fsnotify.Event{Name: "test.c.swp", Op: fsnotify.Write}, false},
		{"object file", fsnotify.Event{Name: "test.o", Op: fsnotify.Create}, false},
		{"no extension", fsnotify.Event{Name: "Makefile", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.event))
		})
	}
}

func TestSourceWatcher_NotifiesOnSourceChange(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "test.c")
	require.NoError(t, os.WriteFile(source, []byte("int main(void){return 0;}\n"), 0o644))

	apps := []config.App{{Name: "test", Source: source, LinkerScript: filepath.Join(dir, "link.x")}}
	d := NewDebouncer(50*time.Millisecond, time.Second)

	w, err := NewSourceWatcher(apps, d)
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	go w.Run(ctx)

	// Give the watcher goroutine a moment to start draining events.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(source, []byte("int main(void){return 1;}\n"), 0o644))

	select {
	case trig := <-d.Triggers():
		assert.Equal(t, "test.c", trig.Reason)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a rebuild trigger after source change")
	}
}

func TestSourceWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "test.c")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0o644))

	apps := []config.App{{Name: "test", Source: source}}
	d := NewDebouncer(50*time.Millisecond, time.Second)

	w, err := NewSourceWatcher(apps, d)
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case trig := <-d.Triggers():
		t.Fatalf("unexpected trigger for unrelated file: %+v", trig)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewSourceWatcher_DeduplicatesDirectories(t *testing.T) {
	dir := t.TempDir()
	apps := []config.App{
		{
			Name:         "test",
			Source:       filepath.Join(dir, "test.c"),
			LinkerScript: filepath.Join(dir, "link.x"),
			Libraries:    []string{filepath.Join(dir, "libc_userspace.a")},
		},
	}
	d := NewDebouncer(50*time.Millisecond, time.Second)

	w, err := NewSourceWatcher(apps, d)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
