package artifact

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal state of one app build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Manifest records what one app build produced and where it came from.
type Manifest struct {
	BuildID   string              `json:"build_id"`
	App       string              `json:"app"`
	Revision  string              `json:"revision,omitempty"`
	Outcome   Outcome             `json:"outcome"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
	Artifacts map[string]Artifact `json:"artifacts,omitempty"` // keyed by role: object|image|map|binary|installed
	Error     string              `json:"error,omitempty"`
}

// NewManifest starts a manifest for an app build with a fresh build ID.
func NewManifest(app, revision string) *Manifest {
	return &Manifest{
		BuildID:   uuid.NewString(),
		App:       app,
		Revision:  revision,
		StartedAt: time.Now(),
		Artifacts: make(map[string]Artifact),
	}
}

// Add records an artifact under a role name, hashing it on the way in.
func (m *Manifest) Add(role, path string) error {
	art, err := Describe(path)
	if err != nil {
		return err
	}
	m.Artifacts[role] = art
	return nil
}

// Finish stamps the outcome and duration.
func (m *Manifest) Finish(outcome Outcome, err error) {
	m.Outcome = outcome
	m.Duration = time.Since(m.StartedAt)
	if err != nil {
		m.Error = err.Error()
	}
}
