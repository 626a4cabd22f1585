package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for structural problems. Defaults are
// assumed to be applied already.
func (c *Config) Validate() error {
	if len(c.Apps) == 0 {
		return fmt.Errorf("config: at least one app must be defined")
	}

	seen := make(map[string]bool, len(c.Apps))
	for i, app := range c.Apps {
		if app.Name == "" {
			return fmt.Errorf("config: apps[%d]: name is required", i)
		}
		if strings.ContainsAny(app.Name, "/\\") {
			return fmt.Errorf("config: apps[%d]: name %q must not contain path separators", i, app.Name)
		}
		if seen[app.Name] {
			return fmt.Errorf("config: duplicate app name %q", app.Name)
		}
		seen[app.Name] = true
		if app.Source == "" {
			return fmt.Errorf("config: app %q: source is required", app.Name)
		}
		if app.LinkerScript == "" {
			return fmt.Errorf("config: app %q: linker_script is required", app.Name)
		}
	}

	if c.Output.AppbinsDir == "" {
		return fmt.Errorf("config: output.appbins_dir is required")
	}
	if c.Watch.Debounce.Duration() > c.Watch.MaxDelay.Duration() {
		return fmt.Errorf("config: watch.debounce must not exceed watch.max_delay")
	}

	switch c.Retry.Mode {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		return fmt.Errorf("config: retry.mode %q is not one of fixed|linear|exponential", c.Retry.Mode)
	}

	return nil
}

// AppByName returns the app with the given name, or nil.
func (c *Config) AppByName(name string) *App {
	for i := range c.Apps {
		if c.Apps[i].Name == name {
			return &c.Apps[i]
		}
	}
	return nil
}
