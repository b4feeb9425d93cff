package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `cursor_path: /data/cursor/workspaceStorage
claude_path: /data/claude/projects
opencode_path: /data/opencode/storage
log_level: debug
listen: 0.0.0.0:9000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.CursorPath != "/data/cursor/workspaceStorage" {
		t.Errorf("CursorPath = %v, want /data/cursor/workspaceStorage", cfg.CursorPath)
	}
	if cfg.ClaudePath != "/data/claude/projects" {
		t.Errorf("ClaudePath = %v, want /data/claude/projects", cfg.ClaudePath)
	}
	if cfg.OpenCodePath != "/data/opencode/storage" {
		t.Errorf("OpenCodePath = %v, want /data/opencode/storage", cfg.OpenCodePath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.ListenAddr() != "0.0.0.0:9000" {
		t.Errorf("ListenAddr() = %v, want 0.0.0.0:9000", cfg.ListenAddr())
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil for missing file", err)
	}
	if cfg.CursorPath != "" || cfg.Listen != "" {
		t.Errorf("missing file should yield empty config, got %+v", cfg)
	}
	if cfg.ListenAddr() != DefaultListenAddr {
		t.Errorf("ListenAddr() = %v, want default %v", cfg.ListenAddr(), DefaultListenAddr)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cursor_path: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() expected error for invalid YAML")
	}
}

func TestConfigPathFor(t *testing.T) {
	cfg := &Config{
		CursorPath:   "/a",
		ClaudePath:   "/b",
		OpenCodePath: "/c",
	}

	tests := []struct {
		source string
		want   string
	}{
		{SourceCursor, "/a"},
		{SourceClaude, "/b"},
		{SourceOpenCode, "/c"},
		{"vscode", ""},
	}

	for _, tt := range tests {
		if got := cfg.pathFor(tt.source); got != tt.want {
			t.Errorf("pathFor(%s) = %v, want %v", tt.source, got, tt.want)
		}
	}
}
