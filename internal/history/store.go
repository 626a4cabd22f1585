// Package history persists build outcomes in SQLite so past builds can be
// inspected via the history command.
package history

import (
	"context"
	"time"

	"git.home.luguber.info/inful/fwbuild/internal/artifact"
)

// Record is one finished app build.
type Record struct {
	BuildID    string
	App        string
	Outcome    artifact.Outcome
	Revision   string
	BinarySHA  string
	BinarySize int64
	DurationMS int64
	StartedAt  time.Time
	Error      string
}

// FromManifest converts a build manifest into a history record.
func FromManifest(m *artifact.Manifest) Record {
	rec := Record{
		BuildID:    m.BuildID,
		App:        m.App,
		Outcome:    m.Outcome,
		Revision:   m.Revision,
		DurationMS: m.Duration.Milliseconds(),
		StartedAt:  m.StartedAt,
		Error:      m.Error,
	}
	if bin, ok := m.Artifacts["binary"]; ok {
		rec.BinarySHA = bin.SHA256
		rec.BinarySize = bin.Size
	}
	return rec
}

// Store defines the interface for persisting and retrieving build records.
type Store interface {
	// Record appends a finished build.
	Record(ctx context.Context, rec Record) error

	// Recent retrieves the most recent builds, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// ByApp retrieves the most recent builds for one app, newest first.
	ByApp(ctx context.Context, app string, limit int) ([]Record, error)

	// Close closes the store and releases resources.
	Close() error
}
