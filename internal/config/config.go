// Package config handles configuration loading, validation, and management
// for the vigenere tool.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete tool configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Analysis configures the Kasiski and Friedman tests.
	Analysis AnalysisConfig `toml:"analysis" json:"analysis" yaml:"analysis"`

	// Cipher configures the alphabet used by the cipher and the tests.
	Cipher CipherConfig `toml:"cipher" json:"cipher" yaml:"cipher"`

	// Languages configures the language reference store.
	Languages LanguagesConfig `toml:"languages" json:"languages" yaml:"languages"`

	// Storage configures the analysis history.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Metrics configures the metrics export.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`

	// mu protects concurrent access to the config.
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// AnalysisConfig holds key-length analysis parameters.
type AnalysisConfig struct {
	// MinGroupLen is the shortest repeated sequence the Kasiski examination
	// considers.
	MinGroupLen int `toml:"min_group_len" json:"min_group_len" yaml:"min_group_len"`

	// MinKeyLen and MaxKeyLen bound the Friedman test, half-open.
	MinKeyLen int `toml:"min_key_len" json:"min_key_len" yaml:"min_key_len"`
	MaxKeyLen int `toml:"max_key_len" json:"max_key_len" yaml:"max_key_len"`

	// Workers per test. 0 uses every CPU.
	Workers int `toml:"workers" json:"workers" yaml:"workers"`

	// DefaultLanguage is used when analyze is given no language.
	DefaultLanguage string `toml:"default_language" json:"default_language" yaml:"default_language"`

	// Verbose lists every candidate and result, not only the conclusions.
	Verbose bool `toml:"verbose" json:"verbose" yaml:"verbose"`
}

// CipherConfig holds alphabet configuration.
type CipherConfig struct {
	// Alphabet lists the symbols in rank order.
	Alphabet string `toml:"alphabet" json:"alphabet" yaml:"alphabet"`

	// FoldAccents maps accented letters to their base letter before ranking.
	FoldAccents bool `toml:"fold_accents" json:"fold_accents" yaml:"fold_accents"`
}

// LanguagesConfig holds language reference store configuration.
type LanguagesConfig struct {
	// StorePath is a JSON, YAML or TOML store. Empty uses the built-in table.
	StorePath string `toml:"store_path" json:"store_path" yaml:"store_path"`
}

// StorageConfig holds analysis history configuration.
type StorageConfig struct {
	// Enabled records every successful analysis.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the path to the SQLite database.
	Path string `toml:"path" json:"path" yaml:"path"`

	// RetentionDays prunes older analyses on open. 0 keeps everything.
	RetentionDays int `toml:"retention_days" json:"retention_days" yaml:"retention_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr" or "file".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output is "file").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is the maximum age of log files in days.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress determines whether to compress rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// MetricsConfig holds metrics export configuration.
type MetricsConfig struct {
	// Enabled writes the metrics file after every command.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the Prometheus textfile the metrics are written to.
	Path string `toml:"path" json:"path" yaml:"path"`

	// Format of the metrics command output: "prometheus" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	dir := DataDir()

	return &Config{
		Version: Version,
		Analysis: AnalysisConfig{
			MinGroupLen:     3,
			MinKeyLen:       3,
			MaxKeyLen:       50,
			Workers:         0,
			DefaultLanguage: "English",
		},
		Cipher: CipherConfig{
			Alphabet: "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "history.db"),
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(dir, "vigenere.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Path:    filepath.Join(dir, "vigenere.prom"),
			Format:  "prometheus",
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	if found := FindConfigFile(); found != "" {
		return found
	}
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories of every configured file.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Storage.Path),
		filepath.Dir(c.Logging.FilePath),
		filepath.Dir(c.Metrics.Path),
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Variables are prefixed with VIGENERE_.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Analysis overrides
	if v := os.Getenv("VIGENERE_LANGUAGE"); v != "" {
		c.Analysis.DefaultLanguage = v
	}
	if v := os.Getenv("VIGENERE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Analysis.Workers = n
		}
	}

	// Cipher overrides
	if v := os.Getenv("VIGENERE_ALPHABET"); v != "" {
		c.Cipher.Alphabet = v
	}

	// Language store overrides
	if v := os.Getenv("VIGENERE_LANGS_PATH"); v != "" {
		c.Languages.StorePath = v
	}

	// Storage overrides
	if v := os.Getenv("VIGENERE_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("VIGENERE_HISTORY"); v != "" {
		c.Storage.Enabled = parseBool(v, c.Storage.Enabled)
	}

	// Logging overrides
	if v := os.Getenv("VIGENERE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VIGENERE_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
		c.Logging.Output = "file"
	}

	// Metrics overrides
	if v := os.Getenv("VIGENERE_METRICS_PATH"); v != "" {
		c.Metrics.Path = v
		c.Metrics.Enabled = true
	}
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Version:   c.Version,
		Analysis:  c.Analysis,
		Cipher:    c.Cipher,
		Languages: c.Languages,
		Storage:   c.Storage,
		Logging:   c.Logging,
		Metrics:   c.Metrics,
	}
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return toml.NewEncoder(w).Encode(c)
}
