package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Environment overrides, one per source. An override skips platform-default
// detection entirely; it is not checked for existence here. Each points at
// the source's content directory: Cursor's workspaceStorage, Claude Code's
// projects dir, OpenCode's storage dir.
const (
	EnvCursorPath   = "AICHAT_CURSOR_PATH"
	EnvClaudePath   = "AICHAT_CLAUDE_PATH"
	EnvOpenCodePath = "AICHAT_OPENCODE_PATH"
)

// ResolvePath returns the base directory for a source: the environment
// override when set, a config-file override when provided, otherwise the
// platform default for the running OS. It never checks that the directory
// exists; that is the backend's Available responsibility.
func ResolvePath(source string, cfg *Config) (string, error) {
	if p := os.Getenv(envFor(source)); p != "" {
		return p, nil
	}
	if cfg != nil {
		if p := cfg.pathFor(source); p != "" {
			return p, nil
		}
	}
	return defaultPath(source)
}

// CursorGlobalDBPath derives the global-storage database path from the
// workspaceStorage directory: globalStorage sits alongside it under the same
// Cursor User dir.
func CursorGlobalDBPath(workspaceStorage string) string {
	return filepath.Join(filepath.Dir(workspaceStorage), "globalStorage", "state.vscdb")
}

func envFor(source string) string {
	switch source {
	case SourceCursor:
		return EnvCursorPath
	case SourceClaude:
		return EnvClaudePath
	case SourceOpenCode:
		return EnvOpenCodePath
	}
	return ""
}

func defaultPath(source string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", &PathError{Source: source, Err: fmt.Errorf("%w: no home directory: %v", ErrNotConfigured, err)}
	}

	switch source {
	case SourceCursor:
		switch runtime.GOOS {
		case "darwin":
			return filepath.Join(home, "Library", "Application Support", "Cursor", "User", "workspaceStorage"), nil
		case "windows":
			if appData := os.Getenv("APPDATA"); appData != "" {
				return filepath.Join(appData, "Cursor", "User", "workspaceStorage"), nil
			}
			return filepath.Join(home, "AppData", "Roaming", "Cursor", "User", "workspaceStorage"), nil
		default:
			return filepath.Join(home, ".config", "Cursor", "User", "workspaceStorage"), nil
		}
	case SourceClaude:
		return filepath.Join(home, ".claude", "projects"), nil
	case SourceOpenCode:
		return filepath.Join(home, ".local", "share", "opencode", "storage"), nil
	}
	return "", &PathError{Source: source, Err: fmt.Errorf("%w: unknown source %q", ErrNotConfigured, source)}
}
