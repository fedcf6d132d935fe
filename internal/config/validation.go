package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"timestampus/internal/keystroke"
	"timestampus/internal/timestamp"
	"timestampus/internal/trigger"
)

// ErrInvalidConfig is matched by every ValidationErrors via errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
	Warning bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// IsWarning returns true if this is a non-fatal validation issue.
func (e *ValidationError) IsWarning() bool {
	return e.Warning
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is reports ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Warnings returns only warning-level validation errors.
func (e ValidationErrors) Warnings() ValidationErrors {
	var warnings ValidationErrors
	for _, err := range e {
		if err.IsWarning() {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Errors returns only error-level validation errors.
func (e ValidationErrors) Errors() ValidationErrors {
	var errs ValidationErrors
	for _, err := range e {
		if !err.IsWarning() {
			errs = append(errs, err)
		}
	}
	return errs
}

// HasErrors returns true if there are any non-warning errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// ValidateConfig returns the error-level problems of c, or nil.
func ValidateConfig(c *Config) error {
	if errs := Check(c).Errors(); len(errs) > 0 {
		return errs
	}
	return nil
}

// Check returns every problem with c, warnings included.
func Check(c *Config) ValidationErrors {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateTrigger(&c.Trigger)...)
	errs = append(errs, validateFormat(&c.Format)...)
	errs = append(errs, validateActuation(&c.Actuation)...)
	errs = append(errs, validateInput(&c.Input)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	return errs
}

func validateTrigger(t *TriggerConfig) ValidationErrors {
	var errs ValidationErrors

	g, err := trigger.NewGrammar(t.Keyword)
	if err != nil {
		errs = append(errs, ValidationError{
			Field:   "trigger.keyword",
			Message: err.Error(),
		})
		return errs
	}

	if t.MaxBuffer < g.Len() {
		errs = append(errs, ValidationError{
			Field:   "trigger.max_buffer",
			Message: fmt.Sprintf("must be at least %d to hold %q", g.Len(), g.Pattern()),
		})
	}

	return errs
}

func validateFormat(f *FormatConfig) ValidationErrors {
	var errs ValidationErrors

	if _, err := timestamp.ParseFlag(f.DefaultFlag); err != nil {
		errs = append(errs, ValidationError{
			Field:   "format.default_flag",
			Message: err.Error(),
		})
	}

	if f.Timezone != "" {
		if _, err := time.LoadLocation(f.Timezone); err != nil {
			errs = append(errs, ValidationError{
				Field:   "format.timezone",
				Message: fmt.Sprintf("unknown timezone %q", f.Timezone),
			})
		}
	}

	return errs
}

func validateActuation(a *ActuationConfig) ValidationErrors {
	var errs ValidationErrors

	delays := []struct {
		field string
		ms    int
	}{
		{"actuation.settle_ms", a.SettleMs},
		{"actuation.key_delay_ms", a.KeyDelayMs},
		{"actuation.restore_delay_ms", a.RestoreDelayMs},
	}
	for _, d := range delays {
		if d.ms < 0 {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: "delay cannot be negative",
			})
		}
	}

	if a.SettleMs > 5000 {
		errs = append(errs, ValidationError{
			Field:   "actuation.settle_ms",
			Message: "settle pause above 5s makes replacements feel broken",
			Warning: true,
		})
	}

	return errs
}

func validateInput(i *InputConfig) ValidationErrors {
	var errs ValidationErrors

	if !slices.Contains(keystroke.SourceKinds(), i.Source) {
		errs = append(errs, ValidationError{
			Field:   "input.source",
			Message: fmt.Sprintf("invalid source: %s (valid: %s)", i.Source, strings.Join(keystroke.SourceKinds(), ", ")),
		})
	}

	if i.Device != "" {
		if _, err := os.Stat(i.Device); err != nil {
			errs = append(errs, ValidationError{
				Field:   "input.device",
				Message: fmt.Sprintf("device %s not present yet", i.Device),
				Warning: true,
			})
		}
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	if l.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_age_days",
			Message: "max age cannot be negative",
		})
	}

	return errs
}
