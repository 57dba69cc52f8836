// Package config loads the host configuration.
//
// The configuration file is YAML, named by the --config flag or the
// ASI_HOST_CONFIG environment variable. Fields missing from the file keep
// their defaults, and command-line flags override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/caffeineduck/asi/control"
	"github.com/caffeineduck/asi/hostfunc"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "ASI_HOST_CONFIG"

// Config is the host configuration.
type Config struct {
	// SocketPath is the control socket. Default: asi.sock
	SocketPath string `yaml:"socket_path"`

	// MaxPayload bounds the payload of one control request.
	MaxPayload uint64 `yaml:"max_payload"`

	// HandleSignals turns SIGINT and SIGTERM into a shutdown request.
	HandleSignals bool `yaml:"handle_signals"`

	Log     LogConfig     `yaml:"log"`
	Runtime RuntimeConfig `yaml:"runtime"`
	KV      KVConfig      `yaml:"kv"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error or trace.
	Level string `yaml:"level"`

	// Format is text or json. Ignored when Journal is set.
	Format string `yaml:"format"`

	// Journal sends records to the systemd journal.
	Journal bool `yaml:"journal"`
}

type RuntimeConfig struct {
	// MemoryLimitPages caps module memory in 64KiB pages. 0 means no limit.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`

	// CacheDir enables the compilation cache in this directory.
	CacheDir string `yaml:"cache_dir"`
}

type KVConfig struct {
	MaxKeySize   int `yaml:"max_key_size"`
	MaxValueSize int `yaml:"max_value_size"`
	MaxEntries   int `yaml:"max_entries"`
}

// Store returns the per-instance store limits.
func (k KVConfig) Store() hostfunc.KVConfig {
	return hostfunc.KVConfig{
		MaxKeySize:   k.MaxKeySize,
		MaxValueSize: k.MaxValueSize,
		MaxEntries:   k.MaxEntries,
	}
}

func Default() *Config {
	kv := hostfunc.DefaultKVConfig()
	return &Config{
		SocketPath:    "asi.sock",
		MaxPayload:    control.MaxPayload,
		HandleSignals: true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		KV: KVConfig{
			MaxKeySize:   kv.MaxKeySize,
			MaxValueSize: kv.MaxValueSize,
			MaxEntries:   kv.MaxEntries,
		},
	}
}

// Load loads the file named by ASI_HOST_CONFIG, or returns the defaults when
// it is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.SocketPath = expandVars(c.SocketPath)
	c.Runtime.CacheDir = expandVars(c.Runtime.CacheDir)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.SocketPath == "" {
		errs = append(errs, errors.New("socket_path is required"))
	}
	if c.MaxPayload == 0 {
		errs = append(errs, errors.New("max_payload must be positive"))
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log.level: %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log.format: %q", c.Log.Format))
	}
	if c.KV.MaxKeySize < 0 || c.KV.MaxValueSize < 0 || c.KV.MaxEntries < 0 {
		errs = append(errs, errors.New("kv limits must not be negative"))
	}

	return errors.Join(errs...)
}
