package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// Canonical identifiers shared by fixtures and the tests built on them.
const (
	CursorWorkspaceHash = "abc123hash"
	CursorFolderURI     = "file:///Users/testuser/dev/my-project"
	CursorGlobalTabID   = "global-tab-001"
	ClaudeProjectDir    = "-Users-testuser-dev-myapp"
	OpenCodeProjectDir  = "proj1"
	OpenCodeSessionID   = "ses_001"
)

// Canonical fixture timestamps. Sessions are ordered so activity-based
// sorting has a deterministic expected order.
var (
	CursorCreated  = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	CursorUpdated  = time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC)
	CursorUpdated2 = time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)

	OpenCodeCreated = time.Date(2025, 1, 22, 8, 0, 0, 0, time.UTC)
	OpenCodeUpdated = time.Date(2025, 1, 22, 8, 30, 0, 0, time.UTC)
)

// CreateStateDB creates a state.vscdb at dbPath with Cursor's ItemTable
// schema and the given key/value rows.
func CreateStateDB(t *testing.T, dbPath string, items map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	schema := []string{
		"CREATE TABLE IF NOT EXISTS ItemTable (key TEXT UNIQUE ON CONFLICT REPLACE, value BLOB)",
		"CREATE TABLE IF NOT EXISTS cursorDiskKV (key TEXT UNIQUE ON CONFLICT REPLACE, value BLOB)",
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	for key, value := range items {
		if _, err := db.Exec("INSERT INTO ItemTable (key, value) VALUES (?, ?)", key, value); err != nil {
			t.Fatalf("Failed to insert item %s: %v", key, err)
		}
	}
}

// CreateCursorWorkspace creates one workspace directory under
// workspaceStorage with a workspace.json (unless folderURI is empty) and a
// state.vscdb holding items. Returns the workspace directory.
func CreateCursorWorkspace(t *testing.T, workspaceStorage, hash, folderURI string, items map[string]string) string {
	t.Helper()
	wsDir := filepath.Join(workspaceStorage, hash)
	if err := os.MkdirAll(wsDir, 0755); err != nil {
		t.Fatalf("Failed to create workspace directory: %v", err)
	}

	if folderURI != "" {
		WriteJSONFile(t, filepath.Join(wsDir, "workspace.json"), map[string]string{"folder": folderURI})
	}
	CreateStateDB(t, filepath.Join(wsDir, "state.vscdb"), items)
	return wsDir
}

// CursorWorkspaceItems returns the canonical ItemTable rows for a workspace
// store: two composers, three prompts, and three generations inside the
// composers' activity windows.
func CursorWorkspaceItems(t *testing.T) map[string]string {
	t.Helper()
	nowMs := CursorCreated.UnixMilli()
	laterMs := CursorUpdated.UnixMilli()
	muchLaterMs := CursorUpdated2.UnixMilli()

	composerData := map[string]any{
		"allComposers": []map[string]any{
			{
				"composerId":    "comp-uuid-001",
				"name":          "Fix auth bug",
				"createdAt":     nowMs,
				"lastUpdatedAt": laterMs,
				"unifiedMode":   "agent",
				"isArchived":    false,
			},
			{
				"composerId":    "comp-uuid-002",
				"name":          "Add dark mode",
				"createdAt":     laterMs + 1000,
				"lastUpdatedAt": muchLaterMs,
				"unifiedMode":   "chat",
				"isArchived":    false,
			},
		},
		"selectedComposerIds": []string{"comp-uuid-001"},
	}

	prompts := []map[string]any{
		{"text": "Fix the login authentication bug in auth.ts", "commandType": 4},
		{"text": "Now add error handling for expired tokens", "commandType": 4},
		{"text": "Add dark mode support to the app", "commandType": 4},
	}

	generations := []map[string]any{
		{
			"unixMs":          nowMs + 5000,
			"generationUUID":  "gen-001",
			"type":            "composer",
			"textDescription": "Fixed authentication bug by updating token validation",
		},
		{
			"unixMs":          nowMs + 30000,
			"generationUUID":  "gen-002",
			"type":            "composer",
			"textDescription": "Added try-catch for expired token handling",
		},
		{
			"unixMs":          laterMs + 60000,
			"generationUUID":  "gen-003",
			"type":            "composer",
			"textDescription": "Implemented dark mode toggle with CSS variables",
		},
	}

	return map[string]string{
		"composer.composerData": string(JSONMarshal(t, composerData)),
		"aiService.prompts":     string(JSONMarshal(t, prompts)),
		"aiService.generations": string(JSONMarshal(t, generations)),
	}
}

// CursorGlobalItems returns the canonical global chat panel row: one tab
// with four bubbles.
func CursorGlobalItems(t *testing.T) map[string]string {
	t.Helper()
	chatdata := map[string]any{
		"tabs": []map[string]any{
			{
				"tabId": CursorGlobalTabID,
				"bubbles": []map[string]string{
					{"type": "user", "text": "What is Python?"},
					{"type": "ai", "text": "Python is a high-level programming language."},
					{"type": "user", "text": "Show me an example"},
					{"type": "ai", "text": "Here is a hello world example:\n```python\nprint('hello')\n```"},
				},
			},
		},
	}
	return map[string]string{
		"workbench.panel.aichat.view.aichat.chatdata": string(JSONMarshal(t, chatdata)),
	}
}

// CreateCursorFixture builds a synthetic Cursor data directory:
//
//	<base>/workspaceStorage/abc123hash/{workspace.json, state.vscdb}
//	<base>/globalStorage/state.vscdb
//
// Returns the workspaceStorage path.
func CreateCursorFixture(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	workspaceStorage := filepath.Join(base, "workspaceStorage")
	CreateCursorWorkspace(t, workspaceStorage, CursorWorkspaceHash, CursorFolderURI, CursorWorkspaceItems(t))
	CreateStateDB(t, filepath.Join(base, "globalStorage", "state.vscdb"), CursorGlobalItems(t))
	return workspaceStorage
}

// CreateClaudeFixture builds a synthetic Claude Code projects directory with
// one project holding a two-entry sessions-index.json and the transcript for
// the first session. Returns the projects path.
func CreateClaudeFixture(t *testing.T) string {
	t.Helper()
	projects := filepath.Join(t.TempDir(), "projects")
	projectDir := filepath.Join(projects, ClaudeProjectDir)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		t.Fatalf("Failed to create project directory: %v", err)
	}

	index := []map[string]any{
		{
			"sessionId":    "session-001",
			"firstPrompt":  "Help me refactor the auth module",
			"summary":      "Refactored auth module",
			"messageCount": 5,
			"created":      "2025-01-20T10:00:00Z",
			"modified":     "2025-01-20T11:30:00Z",
			"projectPath":  "/Users/testuser/dev/myapp",
		},
		{
			"sessionId":    "session-002",
			"firstPrompt":  "Write tests for the API",
			"summary":      "API test suite",
			"messageCount": 3,
			"created":      "2025-01-21T09:00:00Z",
			"modified":     "2025-01-21T09:45:00Z",
			"projectPath":  "/Users/testuser/dev/myapp",
		},
	}
	WriteJSONFile(t, filepath.Join(projectDir, "sessions-index.json"), index)

	WriteClaudeTranscript(t, projectDir, "session-001", []string{
		`{"type":"human","message":{"content":[{"type":"text","text":"Help me refactor the auth module"}]},"timestamp":"2025-01-20T10:00:00Z"}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"I'll help you refactor the auth module. Let me start by reading the current code."}]},"timestamp":"2025-01-20T10:00:30Z"}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/src/auth.ts"}}]},"timestamp":"2025-01-20T10:00:35Z"}`,
		`{"type":"file-history-snapshot","files":[{"path":"/src/auth.ts"}]}`,
		`{"type":"human","message":{"content":[{"type":"text","text":"Looks good, now split it into separate files"}]},"timestamp":"2025-01-20T10:05:00Z"}`,
	})

	return projects
}

// WriteClaudeTranscript writes a .jsonl transcript with the given lines.
func WriteClaudeTranscript(t *testing.T, projectDir, stem string, lines []string) {
	t.Helper()
	WriteFile(t, filepath.Join(projectDir, stem+".jsonl"), []byte(strings.Join(lines, "\n")+"\n"))
}

// CreateOpenCodeFixture builds a synthetic OpenCode storage tree with one
// session, two messages, and one text part per message. Returns the storage
// path.
func CreateOpenCodeFixture(t *testing.T) string {
	t.Helper()
	storage := filepath.Join(t.TempDir(), "storage")

	WriteJSONFile(t, filepath.Join(storage, "session", OpenCodeProjectDir, OpenCodeSessionID+".json"), map[string]any{
		"id":        OpenCodeSessionID,
		"title":     "Debug API endpoint",
		"directory": "/Users/testuser/dev/api-server",
		"time": map[string]int64{
			"created": OpenCodeCreated.UnixMilli(),
			"updated": OpenCodeUpdated.UnixMilli(),
		},
	})

	WriteJSONFile(t, filepath.Join(storage, "message", OpenCodeSessionID, "msg_001.json"), map[string]any{
		"id":   "msg_001",
		"role": "user",
		"time": map[string]int64{"created": OpenCodeCreated.UnixMilli()},
	})
	WriteJSONFile(t, filepath.Join(storage, "message", OpenCodeSessionID, "msg_002.json"), map[string]any{
		"id":   "msg_002",
		"role": "assistant",
		"time": map[string]int64{"created": OpenCodeCreated.Add(30 * time.Second).UnixMilli()},
	})
	WriteJSONFile(t, filepath.Join(storage, "message", OpenCodeSessionID, "msg_003.json"), map[string]any{
		"id":   "msg_003",
		"role": "assistant",
		"time": map[string]int64{"created": OpenCodeCreated.Add(60 * time.Second).UnixMilli()},
	})

	WriteJSONFile(t, filepath.Join(storage, "part", "msg_001", "prt_001.json"), map[string]string{
		"type": "text",
		"text": "Why is the /api/users endpoint returning 500?",
	})
	WriteJSONFile(t, filepath.Join(storage, "part", "msg_002", "prt_001.json"), map[string]string{
		"type": "text",
		"text": "The error is in the database query. Let me check the logs.",
	})
	WriteJSONFile(t, filepath.Join(storage, "part", "msg_003", "prt_001.json"), map[string]string{
		"type": "step-start",
	})
	WriteJSONFile(t, filepath.Join(storage, "part", "msg_003", "prt_002.json"), map[string]any{
		"type": "tool",
		"tool": "grep",
		"state": map[string]any{
			"status": "completed",
			"input":  map[string]string{"pattern": "SELECT", "path": "src"},
			"output": `db.query("SELECT * FROM users WHERE id = ?")`,
		},
	})

	return storage
}
