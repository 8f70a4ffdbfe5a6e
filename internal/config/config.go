// Package config loads fcmirror settings from defaults, YAML files and the
// environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/fcmirror/internal/logging"
)

// ProjectFileName is the per-directory configuration file.
const ProjectFileName = ".fcmirror.yaml"

// Config represents the complete fcmirror configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Remote   RemoteConfig   `yaml:"remote" json:"remote"`
	Download DownloadConfig `yaml:"download" json:"download"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	History  HistoryConfig  `yaml:"history" json:"history"`
}

// RemoteConfig configures access to the document server.
type RemoteConfig struct {
	// BaseURL resolves relative collection and page URLs, e.g.
	// "https://docs.example.org". Absolute URLs ignore it.
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Timeout bounds a single HTTP request (default: "60s").
	Timeout string `yaml:"timeout" json:"timeout"`
	// UserAgent overrides the default "fcmirror/<version>" header.
	UserAgent string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// DownloadConfig configures the collection downloader.
type DownloadConfig struct {
	// Destination is the local directory to mirror into. Empty means
	// ask interactively.
	Destination string `yaml:"destination" json:"destination"`
	// MaxDepth bounds sub-collection nesting (default: 64).
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
	// Confirm asks for confirmation before writing to Destination.
	Confirm bool `yaml:"confirm" json:"confirm"`
	// UI selects the progress display: auto, tui or plain.
	UI string `yaml:"ui" json:"ui"`
}

// SearchConfig configures the search worker.
type SearchConfig struct {
	// BatchSize is the number of matches per response message (default: 20).
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// CacheSize is the number of query results kept by the worker.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
	// InboxSize is the worker's request buffer.
	InboxSize int `yaml:"inbox_size" json:"inbox_size"`
	// ContextChars is the snippet width shown around each match.
	ContextChars int `yaml:"context_chars" json:"context_chars"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// HistoryConfig configures the download history database.
type HistoryConfig struct {
	Path     string `yaml:"path" json:"path"`
	Disabled bool   `yaml:"disabled" json:"disabled"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Remote: RemoteConfig{
			Timeout: "60s",
		},
		Download: DownloadConfig{
			MaxDepth: 64,
			UI:       "auto",
		},
		Search: SearchConfig{
			BatchSize:    20,
			CacheSize:    128,
			InboxSize:    16,
			ContextChars: 40,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		History: HistoryConfig{
			Path: filepath.Join(logging.StateDir(), "history.db"),
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/fcmirror/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/fcmirror/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fcmirror", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "fcmirror", "config.yaml")
	}
	return filepath.Join(home, ".config", "fcmirror", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the working directory dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/fcmirror/config.yaml)
//  3. Project config (.fcmirror.yaml in dir)
//  4. Environment variables (FCMIRROR_*)
func Load(dir string) (*Config, error) {
	return LoadFrom(dir, "")
}

// LoadFrom is Load with an explicit config file replacing the project
// file. An explicit file must exist.
//
// Each file is decoded over the values gathered so far, so a key present
// in a file wins even when its value is zero, and absent keys keep their
// earlier value.
func LoadFrom(dir, explicit string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config from %s: %w", userPath, err)
		}
	}

	if explicit != "" {
		if err := cfg.loadYAML(explicit); err != nil {
			return nil, err
		}
	} else if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadUserConfig loads the user configuration file on its own, without
// defaults. Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var parsed Config
	if err := parsed.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return &parsed, nil
}

// loadFromFile loads .fcmirror.yaml (or .fcmirror.yml) from dir if present.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{ProjectFileName, ".fcmirror.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML decodes path over c. Only keys present in the file change c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies FCMIRROR_* environment variable overrides.
// Malformed numeric values are ignored and left to the file/default value.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FCMIRROR_BASE_URL"); v != "" {
		c.Remote.BaseURL = v
	}
	if v := os.Getenv("FCMIRROR_TIMEOUT"); v != "" {
		c.Remote.Timeout = v
	}
	if v := os.Getenv("FCMIRROR_DEST"); v != "" {
		c.Download.Destination = v
	}
	if v := os.Getenv("FCMIRROR_UI"); v != "" {
		c.Download.UI = v
	}
	if v := os.Getenv("FCMIRROR_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Download.MaxDepth = n
		}
	}
	if v := os.Getenv("FCMIRROR_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.BatchSize = n
		}
	}
	if v := os.Getenv("FCMIRROR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FCMIRROR_HISTORY"); v != "" {
		c.History.Disabled = !parseBool(v)
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// RequestTimeout returns Remote.Timeout as a duration. Validate guarantees
// it parses.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Remote.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Remote.BaseURL != "" {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("remote.base_url must be an absolute http(s) URL, got %q", c.Remote.BaseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("remote.base_url must use http or https, got %q", u.Scheme)
		}
	}

	d, err := time.ParseDuration(c.Remote.Timeout)
	if err != nil {
		return fmt.Errorf("remote.timeout must be a duration like \"60s\", got %q", c.Remote.Timeout)
	}
	if d <= 0 {
		return fmt.Errorf("remote.timeout must be positive, got %s", d)
	}

	if c.Download.MaxDepth < 1 {
		return fmt.Errorf("download.max_depth must be at least 1, got %d", c.Download.MaxDepth)
	}
	switch strings.ToLower(c.Download.UI) {
	case "auto", "tui", "plain":
	default:
		return fmt.Errorf("download.ui must be 'auto', 'tui' or 'plain', got %s", c.Download.UI)
	}

	if c.Search.BatchSize < 1 {
		return fmt.Errorf("search.batch_size must be at least 1, got %d", c.Search.BatchSize)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}
	if c.Search.InboxSize < 0 {
		return fmt.Errorf("search.inbox_size must be non-negative, got %d", c.Search.InboxSize)
	}
	if c.Search.ContextChars < 0 {
		return fmt.Errorf("search.context_chars must be non-negative, got %d", c.Search.ContextChars)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 1 || c.Logging.MaxFiles < 1 {
		return fmt.Errorf("logging.max_size_mb and logging.max_files must be positive")
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file, creating the parent
// directory if needed.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
