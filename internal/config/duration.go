package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// DurationValue wraps time.Duration so YAML values like "2s" or "500ms"
// parse directly.
type DurationValue time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *DurationValue) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = DurationValue(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d DurationValue) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d DurationValue) Duration() time.Duration { return time.Duration(d) }
