package config

import "time"

// Default values mirroring the historical build script's fixed profile.
const (
	DefaultToolchainPrefix = "arm-none-eabi-"
	DefaultCPU             = "cortex-m4"
	DefaultFloatABI        = "hard"
	DefaultFPU             = "fpv4-sp-d16"
	DefaultStd             = "c99"
	DefaultLinkerScript    = "link.x"
	DefaultAppbinsDir      = "../../kernel/appbins"
	DefaultEventSubject    = "fwbuild.builds"
	DefaultMetricsAddr     = ":9402"
)

// ApplyDefaults fills zero-valued fields with defaults. It is idempotent.
func (c *Config) ApplyDefaults() {
	if c.Toolchain.Prefix == "" && c.Toolchain.CC == "" {
		c.Toolchain.Prefix = DefaultToolchainPrefix
	}
	if c.Target.CPU == "" {
		c.Target.CPU = DefaultCPU
	}
	if c.Target.FloatABI == "" {
		c.Target.FloatABI = DefaultFloatABI
	}
	if c.Target.FPU == "" {
		c.Target.FPU = DefaultFPU
	}
	if c.Target.Std == "" {
		c.Target.Std = DefaultStd
	}
	if c.Target.Thumb == nil {
		thumb := true
		c.Target.Thumb = &thumb
	}

	for i := range c.Apps {
		app := &c.Apps[i]
		if app.Source == "" && app.Name != "" {
			app.Source = app.Name + ".c"
		}
		if app.LinkerScript == "" {
			app.LinkerScript = DefaultLinkerScript
		}
	}

	if c.Output.AppbinsDir == "" {
		c.Output.AppbinsDir = DefaultAppbinsDir
	}

	if c.Watch.Debounce.Duration() <= 0 {
		c.Watch.Debounce = DurationValue(2 * time.Second)
	}
	if c.Watch.MaxDelay.Duration() <= 0 {
		c.Watch.MaxDelay = DurationValue(10 * time.Second)
	}

	if c.Events.NATSURL != "" && c.Events.Subject == "" {
		c.Events.Subject = DefaultEventSubject
	}
	if c.Monitoring.Enabled && c.Monitoring.ListenAddr == "" {
		c.Monitoring.ListenAddr = DefaultMetricsAddr
	}

	c.Retry.applyDefaults()
}
