package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Toolchain  ToolchainConfig  `yaml:"toolchain"`
	Target     TargetConfig     `yaml:"target"`
	Apps       []App            `yaml:"apps"`
	Output     OutputConfig     `yaml:"output"`
	Watch      WatchConfig      `yaml:"watch,omitempty"`
	Monitoring MonitoringConfig `yaml:"monitoring,omitempty"`
	Events     EventsConfig     `yaml:"events,omitempty"`
	History    HistoryConfig    `yaml:"history,omitempty"`
	Retry      RetryConfig      `yaml:"retry,omitempty"`
}

// ToolchainConfig selects the cross toolchain binaries. Explicit paths win
// over prefix-derived names.
type ToolchainConfig struct {
	Prefix  string `yaml:"prefix,omitempty"`  // e.g. arm-none-eabi-
	CC      string `yaml:"cc,omitempty"`      // overrides <prefix>gcc
	Objcopy string `yaml:"objcopy,omitempty"` // overrides <prefix>objcopy
}

// TargetConfig is the fixed target-architecture profile passed to the compiler.
type TargetConfig struct {
	CPU         string   `yaml:"cpu,omitempty"`       // -mcpu
	FloatABI    string   `yaml:"float_abi,omitempty"` // -mfloat-abi
	FPU         string   `yaml:"fpu,omitempty"`       // -mfpu
	Std         string   `yaml:"std,omitempty"`       // -std
	Thumb       *bool    `yaml:"thumb,omitempty"`     // -mthumb (default true)
	ExtraCFlags []string `yaml:"extra_cflags,omitempty"`
}

// App represents one firmware application to build and install.
type App struct {
	Name         string   `yaml:"name"`
	Source       string   `yaml:"source,omitempty"`        // defaults to <name>.c
	LinkerScript string   `yaml:"linker_script,omitempty"` // defaults to link.x
	Libraries    []string `yaml:"libraries,omitempty"`     // static archives, link order preserved
	ExtraCFlags  []string `yaml:"extra_cflags,omitempty"`
	ExtraLDFlags []string `yaml:"extra_ldflags,omitempty"`
}

// OutputConfig controls where finished and diagnostic artifacts land.
type OutputConfig struct {
	AppbinsDir   string `yaml:"appbins_dir"`             // downstream kernel build input, must exist
	ArtifactsDir string `yaml:"artifacts_dir,omitempty"` // optional, for preserved elf/map
	KeepMap      bool   `yaml:"keep_map"`
	KeepELF      bool   `yaml:"keep_elf"`
	Workspace    string `yaml:"workspace,omitempty"` // base dir for scratch dirs, defaults to os.TempDir
}

// WatchConfig controls watch mode rebuilds.
type WatchConfig struct {
	Debounce DurationValue `yaml:"debounce,omitempty"` // quiet window after a change
	MaxDelay DurationValue `yaml:"max_delay,omitempty"`
	Interval DurationValue `yaml:"interval,omitempty"` // periodic rebuild, 0 disables
}

// MonitoringConfig exposes Prometheus metrics in watch mode.
type MonitoringConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// EventsConfig publishes build-completed events to NATS when set.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// HistoryConfig records build outcomes in a SQLite database when set.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"` // empty disables history
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env.local/.env independently; either may be absent, and
	// existing env vars are not overridden.
	for _, envFile := range []string{".env.local", ".env"} {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err == nil {
			fmt.Fprintln(os.Stderr, "Loaded environment variables from "+envFile)
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	return os.WriteFile(configPath, []byte(exampleConfig), 0o644)
}

const exampleConfig = `# fwbuild configuration
toolchain:
  prefix: arm-none-eabi-

target:
  cpu: cortex-m4
  float_abi: hard
  fpu: fpv4-sp-d16
  std: c99

apps:
  - name: test
    source: test.c
    linker_script: link.x
    libraries:
      - libc_userspace.a

output:
  appbins_dir: ../../kernel/appbins
  keep_map: true

# history:
#   path: fwbuild.db

# events:
#   nats_url: nats://localhost:4222
#   subject: fwbuild.builds

# monitoring:
#   enabled: true
#   listen_addr: :9402
`
