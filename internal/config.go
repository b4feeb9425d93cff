package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultListenAddr is the HTTP server's default bind address.
const DefaultListenAddr = "127.0.0.1:8211"

// Config holds the optional file-based configuration. Every field has a
// sensible zero value; a missing config file is not an error. Environment
// overrides beat these values, which beat platform defaults.
type Config struct {
	CursorPath   string `yaml:"cursor_path"`
	ClaudePath   string `yaml:"claude_path"`
	OpenCodePath string `yaml:"opencode_path"`
	LogLevel     string `yaml:"log_level"`
	Listen       string `yaml:"listen"`
}

// DefaultConfigPath returns ~/.aichat-history.yaml, or empty when the home
// directory cannot be determined.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aichat-history.yaml")
}

// LoadConfig reads a YAML config file. An empty path falls back to
// DefaultConfigPath. A missing file yields an empty config; a file that
// exists but does not parse is an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the configured bind address or the default.
func (c *Config) ListenAddr() string {
	if c != nil && c.Listen != "" {
		return c.Listen
	}
	return DefaultListenAddr
}

func (c *Config) pathFor(source string) string {
	if c == nil {
		return ""
	}
	switch source {
	case SourceCursor:
		return c.CursorPath
	case SourceClaude:
		return c.ClaudePath
	case SourceOpenCode:
		return c.OpenCodePath
	}
	return ""
}
