// Package events publishes build-completed events to NATS so downstream
// tooling (flash stations, kernel CI) can react to fresh appbins.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/fwbuild/internal/artifact"
	"git.home.luguber.info/inful/fwbuild/internal/config"
	"git.home.luguber.info/inful/fwbuild/internal/logfields"
)

// BuildEvent is the JSON payload published per finished app build.
type BuildEvent struct {
	BuildID    string           `json:"build_id"`
	App        string           `json:"app"`
	Outcome    artifact.Outcome `json:"outcome"`
	Revision   string           `json:"revision,omitempty"`
	BinarySHA  string           `json:"binary_sha,omitempty"`
	BinarySize int64            `json:"binary_size,omitempty"`
	DurationMS int64            `json:"duration_ms"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Publisher emits build events. A nil Publisher is a no-op, so callers can
// hold one unconditionally.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS per config. Returns (nil, nil) when events
// are not configured.
func NewPublisher(cfg config.EventsConfig) (*Publisher, error) {
	if cfg.NATSURL == "" {
		return nil, nil
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("fwbuild"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS publisher initialized", "url", cfg.NATSURL, "subject", cfg.Subject)
	return &Publisher{conn: conn, subject: cfg.Subject}, nil
}

// PublishManifest emits a BuildEvent derived from a finished manifest.
// Publish failures are logged, not propagated: events are best-effort and
// must never fail a build that already produced its binary.
func (p *Publisher) PublishManifest(m *artifact.Manifest) {
	if p == nil || p.conn == nil {
		return
	}

	event := BuildEvent{
		BuildID:    m.BuildID,
		App:        m.App,
		Outcome:    m.Outcome,
		Revision:   m.Revision,
		DurationMS: m.Duration.Milliseconds(),
		FinishedAt: m.StartedAt.Add(m.Duration),
	}
	if bin, ok := m.Artifacts["binary"]; ok {
		event.BinarySHA = bin.SHA256
		event.BinarySize = bin.Size
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("Failed to marshal build event", logfields.Error(err))
		return
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		slog.Warn("Failed to publish build event", logfields.Error(err), logfields.App(m.App))
	}
}

// Close flushes and closes the connection. Safe on nil.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Flush(); err != nil {
		slog.Warn("Failed to flush NATS connection", logfields.Error(err))
	}
	p.conn.Close()
}
