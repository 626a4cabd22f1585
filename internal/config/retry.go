package config

import "time"

// RetryBackoffMode enumerates supported backoff growth modes.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// RetryConfig tunes watch-mode retries of retryable (non-tool) failures.
// Compiler, linker and objcopy failures are never retried.
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode,omitempty"`
	Initial    DurationValue    `yaml:"initial,omitempty"`
	Max        DurationValue    `yaml:"max,omitempty"`
	MaxRetries *int             `yaml:"max_retries,omitempty"`
}

func (r *RetryConfig) applyDefaults() {
	if r.Mode == "" {
		r.Mode = RetryBackoffLinear
	}
	if r.Initial.Duration() <= 0 {
		r.Initial = DurationValue(time.Second)
	}
	if r.Max.Duration() <= 0 {
		r.Max = DurationValue(30 * time.Second)
	}
	if r.MaxRetries == nil {
		retries := 2
		r.MaxRetries = &retries
	}
}
