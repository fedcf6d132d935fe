// Package config handles configuration loading, validation, and hot reload
// for timestampus.
//
// The configuration file is optional. Without one every setting has a
// default that reproduces the classic behavior: the "timestampus"
// keyword, local time, the "f" flag as fallback and a 100ms settle pause.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"timestampus/internal/keystroke"
	"timestampus/internal/timestamp"
	"timestampus/internal/trigger"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Trigger controls what typed text starts a replacement.
	Trigger TriggerConfig `toml:"trigger" json:"trigger" yaml:"trigger"`

	// Format controls how typed dates become tokens.
	Format FormatConfig `toml:"format" json:"format" yaml:"format"`

	// Actuation controls the replacement key sequence.
	Actuation ActuationConfig `toml:"actuation" json:"actuation" yaml:"actuation"`

	// Input selects the keyboard source.
	Input InputConfig `toml:"input" json:"input" yaml:"input"`

	// Notify controls desktop notifications.
	Notify NotifyConfig `toml:"notify" json:"notify" yaml:"notify"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// TriggerConfig holds trigger recognition settings.
type TriggerConfig struct {
	// Keyword starts a trigger. Letters and digits, matched
	// case-insensitively.
	Keyword string `toml:"keyword" json:"keyword" yaml:"keyword"`

	// MaxBuffer is how many typed characters are remembered.
	MaxBuffer int `toml:"max_buffer" json:"max_buffer" yaml:"max_buffer"`
}

// FormatConfig holds token formatting settings.
type FormatConfig struct {
	// DefaultFlag replaces unrecognized flags.
	DefaultFlag string `toml:"default_flag" json:"default_flag" yaml:"default_flag"`

	// Timezone is the IANA zone typed times are read in. Empty means the
	// system zone.
	Timezone string `toml:"timezone" json:"timezone" yaml:"timezone"`
}

// ActuationConfig holds replacement timing settings.
type ActuationConfig struct {
	SettleMs         int  `toml:"settle_ms" json:"settle_ms" yaml:"settle_ms"`
	KeyDelayMs       int  `toml:"key_delay_ms" json:"key_delay_ms" yaml:"key_delay_ms"`
	RestoreClipboard bool `toml:"restore_clipboard" json:"restore_clipboard" yaml:"restore_clipboard"`
	RestoreDelayMs   int  `toml:"restore_delay_ms" json:"restore_delay_ms" yaml:"restore_delay_ms"`
}

// InputConfig selects the keyboard source.
type InputConfig struct {
	// Source is "auto", "hook" or "evdev".
	Source string `toml:"source" json:"source" yaml:"source"`

	// Device overrides evdev keyboard discovery, e.g. /dev/input/event3.
	Device string `toml:"device" json:"device" yaml:"device"`
}

// NotifyConfig controls desktop notifications.
type NotifyConfig struct {
	// OnFailure shows a notification when a trigger cannot be formatted.
	OnFailure bool `toml:"on_failure" json:"on_failure" yaml:"on_failure"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is used when Output includes a file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	MaxSizeMB  int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Trigger: TriggerConfig{
			Keyword:   trigger.DefaultKeyword,
			MaxBuffer: trigger.DefaultMaxLen,
		},
		Format: FormatConfig{
			DefaultFlag: timestamp.DefaultFlag.String(),
		},
		Actuation: ActuationConfig{
			SettleMs:       100,
			KeyDelayMs:     10,
			RestoreDelayMs: 100,
		},
		Input: InputConfig{
			Source: keystroke.SourceAuto,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return DefaultConfigPath()
}

// Override adjusts a loaded configuration before it is validated, for
// example with command line flags.
type Override func(*Config)

// Load reads the configuration at path, applies environment overrides and
// then overrides, and validates the result. An empty path searches the
// standard locations; a missing file yields the defaults.
func Load(path string, overrides ...Override) (*Config, error) {
	if path == "" {
		path = FindConfigFile()
	}
	return load(path, overrides)
}

func load(path string, overrides []Override) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		cfg, err = readFile(path)
		if err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies TIMESTAMPUS_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TIMESTAMPUS_KEYWORD"); v != "" {
		c.Trigger.Keyword = v
	}
	if v, ok := os.LookupEnv("TIMESTAMPUS_TIMEZONE"); ok {
		c.Format.Timezone = v
	}
	if v := os.Getenv("TIMESTAMPUS_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TIMESTAMPUS_INPUT_SOURCE"); v != "" {
		c.Input.Source = strings.ToLower(v)
	}
}

// Location loads the configured zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Format.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Format.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Format.Timezone, err)
	}
	return loc, nil
}

// DefaultFlag returns the configured fallback flag.
func (c *Config) DefaultFlag() timestamp.Flag {
	f, err := timestamp.ParseFlag(c.Format.DefaultFlag)
	if err != nil {
		return timestamp.DefaultFlag
	}
	return f
}

// NewBuffer builds the trigger buffer for the configured keyword and size.
func (c *Config) NewBuffer() (*trigger.Buffer, error) {
	g, err := trigger.NewGrammar(c.Trigger.Keyword)
	if err != nil {
		return nil, err
	}
	return trigger.NewBuffer(g, c.Trigger.MaxBuffer)
}

// Settle is the pause before the replacement key sequence.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.Actuation.SettleMs) * time.Millisecond
}

// KeyDelay is the pause after each injected key.
func (c *Config) KeyDelay() time.Duration {
	return time.Duration(c.Actuation.KeyDelayMs) * time.Millisecond
}

// RestoreDelay is the pause before the clipboard is restored.
func (c *Config) RestoreDelay() time.Duration {
	return time.Duration(c.Actuation.RestoreDelayMs) * time.Millisecond
}

func decodeJSON(data []byte, cfg *Config) error {
	return json.Unmarshal(data, cfg)
}

func decodeYAML(data []byte, cfg *Config) error {
	return yaml.Unmarshal(data, cfg)
}
