package config

import (
	"errors"
	"fmt"
	"strings"

	"vigenere/internal/alphabet"
)

// ErrInvalidConfig is returned by Validate through ValidationErrors.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Fields returns the names of the offending fields.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for _, err := range e {
		fields = append(fields, err.Field)
	}
	return fields
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateAnalysis(&c.Analysis)...)
	errs = append(errs, validateCipher(&c.Cipher)...)
	errs = append(errs, validateStorage(&c.Storage)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateMetrics(&c.Metrics)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateAnalysis(a *AnalysisConfig) ValidationErrors {
	var errs ValidationErrors

	if a.MinGroupLen < 1 {
		errs = append(errs, *RangeError("analysis.min_group_len", 1, "any"))
	}
	if a.MinKeyLen < 1 {
		errs = append(errs, *RangeError("analysis.min_key_len", 1, "any"))
	}
	if a.MaxKeyLen <= a.MinKeyLen {
		errs = append(errs, ValidationError{
			Field:   "analysis.max_key_len",
			Message: fmt.Sprintf("must be greater than min_key_len (%d)", a.MinKeyLen),
		})
	}
	if a.Workers < 0 {
		errs = append(errs, ValidationError{
			Field:   "analysis.workers",
			Message: "workers cannot be negative",
		})
	}

	return errs
}

func validateCipher(c *CipherConfig) ValidationErrors {
	if _, err := alphabet.New(c.Alphabet); err != nil {
		return ValidationErrors{{
			Field:   "cipher.alphabet",
			Message: err.Error(),
		}}
	}
	return nil
}

func validateStorage(s *StorageConfig) ValidationErrors {
	var errs ValidationErrors

	if s.Enabled && s.Path == "" {
		errs = append(errs, *RequiredFieldError("storage.path"))
	}
	if s.RetentionDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.retention_days",
			Message: "retention cannot be negative",
		})
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
	case "file":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output is 'file'",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %q (valid: stdout, stderr, file)", l.Output),
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

func validateMetrics(m *MetricsConfig) ValidationErrors {
	var errs ValidationErrors

	if m.Enabled && m.Path == "" {
		errs = append(errs, *RequiredFieldError("metrics.path"))
	}
	switch m.Format {
	case "prometheus", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "metrics.format",
			Message: fmt.Sprintf("invalid metrics format: %s (valid: prometheus, json)", m.Format),
		})
	}

	return errs
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
