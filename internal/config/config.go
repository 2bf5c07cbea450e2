// Package config handles the persistent configuration for chatclient.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/diogo/chatclient/internal/models"
)

// Environment overrides
const (
	EnvHost = "CHATCLIENT_HOST"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	// Host is the backend base URL, without the /chat or /stream path.
	Host string `json:"host"`
	// Stream selects streamed replies by default.
	Stream bool `json:"stream"`
	// TimeoutSeconds bounds a whole request including the body.
	// Zero disables the timeout.
	TimeoutSeconds int `json:"timeout_seconds"`
	// Verbose enables the request log.
	Verbose bool `json:"verbose"`
	// LogFile overrides the log location. Setting it also enables logging.
	LogFile         string         `json:"log_file,omitempty"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	TUITheme        string         `json:"tui_theme,omitempty"` // TUI color theme
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Host:            models.DefaultHost,
		Stream:          false,
		TimeoutSeconds:  0,
		Verbose:         false,
		CopyToClipboard: false,
		TUITheme:        "tokyonight",
		Markdown:        DefaultMarkdownConfig(),
	}
}

// Timeout returns TimeoutSeconds as a duration
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoggingEnabled reports whether a log file should be written
func (c Config) LoggingEnabled() bool {
	return c.Verbose || c.LogFile != ""
}

// ApplyEnv overlays environment overrides on cfg
func ApplyEnv(cfg Config) Config {
	if host := strings.TrimSpace(os.Getenv(EnvHost)); host != "" {
		cfg.Host = host
	}
	return cfg
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".chatclient")
	return configDir, nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetLogPath returns the log file location for cfg
func GetLogPath(cfg Config) (string, error) {
	if cfg.LogFile != "" {
		return cfg.LogFile, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "chatclient.log"), nil
}

// LoadConfig loads the configuration from disk
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if config doesn't exist
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Host == "" {
		cfg.Host = models.DefaultHost
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setters maps a config key to the function that parses and stores it
var setters = map[string]func(cfg *Config, value string) error{
	"host": func(cfg *Config, v string) error {
		v = strings.TrimRight(strings.TrimSpace(v), "/")
		if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			return fmt.Errorf("host must start with http:// or https://, got %q", v)
		}
		cfg.Host = v
		return nil
	},
	"stream":            boolSetter(func(c *Config) *bool { return &c.Stream }),
	"verbose":           boolSetter(func(c *Config) *bool { return &c.Verbose }),
	"copy_to_clipboard": boolSetter(func(c *Config) *bool { return &c.CopyToClipboard }),
	"timeout_seconds": func(cfg *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return fmt.Errorf("timeout_seconds must be a non-negative integer, got %q", v)
		}
		cfg.TimeoutSeconds = n
		return nil
	},
	"log_file": func(cfg *Config, v string) error {
		cfg.LogFile = strings.TrimSpace(v)
		return nil
	},
	"tui_theme": func(cfg *Config, v string) error {
		cfg.TUITheme = strings.TrimSpace(v)
		return nil
	},
	"markdown.style": func(cfg *Config, v string) error {
		cfg.Markdown.Style = strings.TrimSpace(v)
		return nil
	},
	"markdown.enable_emoji":       boolSetter(func(c *Config) *bool { return &c.Markdown.EnableEmoji }),
	"markdown.preserve_newlines":  boolSetter(func(c *Config) *bool { return &c.Markdown.PreserveNewLines }),
	"markdown.table_wrap":         boolSetter(func(c *Config) *bool { return &c.Markdown.TableWrap }),
	"markdown.inline_table_links": boolSetter(func(c *Config) *bool { return &c.Markdown.InlineTableLinks }),
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", v)
		}
		*field(cfg) = b
		return nil
	}
}

// Keys returns the settable config keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value and stores it under key
func (c *Config) Set(key, value string) error {
	set, ok := setters[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	if err := set(c, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}
