package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OpenCodeProvider reads OpenCode's nested JSON storage: session metadata
// under storage/session/<project>/, message metadata under
// storage/message/<sessionID>/, and message content under
// storage/part/<messageID>/. v1.0 layouts have no part directories; content
// then degrades to session summaries.
type OpenCodeProvider struct {
	basePath string // storage directory
}

// NewOpenCodeProvider resolves the storage directory from the environment and
// config.
func NewOpenCodeProvider(cfg *Config) *OpenCodeProvider {
	base, err := ResolvePath(SourceOpenCode, cfg)
	if err != nil {
		LogDebug("opencode path not resolved: %v", err)
		return &OpenCodeProvider{}
	}
	return NewOpenCodeProviderAt(base)
}

// NewOpenCodeProviderAt builds a provider over an explicit storage directory.
func NewOpenCodeProviderAt(storageDir string) *OpenCodeProvider {
	return &OpenCodeProvider{basePath: storageDir}
}

// Source implements Provider.
func (p *OpenCodeProvider) Source() string { return SourceOpenCode }

// Label implements Provider.
func (p *OpenCodeProvider) Label() string { return "OpenCode" }

// Available reports whether the storage directory exists.
func (p *OpenCodeProvider) Available() bool {
	if p.basePath == "" {
		return false
	}
	info, err := os.Stat(p.basePath)
	return err == nil && info.IsDir()
}

// ListWorkspaces enumerates project directories under storage/session. The
// display path comes from the first readable session file's directory field.
func (p *OpenCodeProvider) ListWorkspaces() ([]Workspace, []string, error) {
	var warnings []string
	workspaces := []Workspace{}

	sessionRoot := filepath.Join(p.basePath, "session")
	entries, err := os.ReadDir(sessionRoot)
	if err != nil {
		return workspaces, warnings, nil
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		projectDir := filepath.Join(sessionRoot, entry.Name())

		files, err := filepath.Glob(filepath.Join(projectDir, "ses_*.json"))
		if err != nil || len(files) == 0 {
			continue
		}
		sort.Strings(files)

		displayPath := entry.Name()
		var lastActivity int64
		for _, f := range files {
			meta, warn := readOpenCodeSession(f)
			if warn != "" {
				warnings = append(warnings, warn)
				continue
			}
			if displayPath == entry.Name() && meta.Directory != "" {
				displayPath = meta.Directory
			}
			if ts := meta.Time.latest(); ts > lastActivity {
				lastActivity = ts
			}
		}

		workspaces = append(workspaces, Workspace{
			Source:       SourceOpenCode,
			Key:          entry.Name(),
			Name:         filepath.Base(displayPath),
			Path:         displayPath,
			SessionCount: len(files),
			LastActivity: TimestampFromMillis(lastActivity),
		})
	}

	sort.Slice(workspaces, func(i, j int) bool { return workspaces[i].Key < workspaces[j].Key })
	return workspaces, warnings, nil
}

// ListSessions lists sessions per project directory. A session file that
// fails to parse is skipped with a warning.
func (p *OpenCodeProvider) ListSessions(workspaceID string) ([]Session, []string, error) {
	var warnings []string
	sessions := []Session{}

	sessionRoot := filepath.Join(p.basePath, "session")
	var projectDirs []string
	if workspaceID != "" {
		projectDirs = []string{filepath.Join(sessionRoot, workspaceID)}
	} else {
		entries, err := os.ReadDir(sessionRoot)
		if err != nil {
			return sessions, warnings, nil
		}
		for _, entry := range entries {
			if entry.IsDir() {
				projectDirs = append(projectDirs, filepath.Join(sessionRoot, entry.Name()))
			}
		}
	}

	for _, projectDir := range projectDirs {
		if info, err := os.Stat(projectDir); err != nil || !info.IsDir() {
			continue
		}
		files, err := filepath.Glob(filepath.Join(projectDir, "ses_*.json"))
		if err != nil {
			continue
		}
		sort.Strings(files)

		projectName := filepath.Base(projectDir)
		for _, f := range files {
			meta, warn := readOpenCodeSession(f)
			if warn != "" {
				warnings = append(warnings, warn)
				continue
			}

			sesID := meta.ID
			if sesID == "" {
				sesID = strings.TrimSuffix(filepath.Base(f), ".json")
			}
			title := strings.TrimSpace(meta.Title)
			if title == "" {
				title = "Untitled"
			}

			sessions = append(sessions, Session{
				ID:           ComposeSessionID(SourceOpenCode, projectName, sesID),
				Source:       SourceOpenCode,
				WorkspaceKey: projectName,
				Title:        truncateTitle(title, 80),
				CreatedAt:    TimestampFromMillis(meta.Time.Created),
				UpdatedAt:    TimestampFromMillis(meta.Time.Updated),
				MessageCount: p.countMessages(sesID),
				ProjectPath:  meta.Directory,
			})
		}
	}

	SortSessionsByActivity(sessions)
	return sessions, warnings, nil
}

// SessionMessages joins the message and part levels for one session. A
// session whose message directory is missing yields an empty sequence, not an
// error: the two levels carry no referential integrity guarantee.
func (p *OpenCodeProvider) SessionMessages(sessionID string) ([]Message, error) {
	source, projectName, sesID, err := ParseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if source != SourceOpenCode {
		return nil, &NotFoundError{SessionID: sessionID}
	}

	sesPath := filepath.Join(p.basePath, "session", projectName, sesID+".json")
	if _, err := os.Stat(sesPath); err != nil {
		return nil, &NotFoundError{SessionID: sessionID}
	}

	msgDir := filepath.Join(p.basePath, "message", sesID)
	files, err := filepath.Glob(filepath.Join(msgDir, "msg_*.json"))
	if err != nil || len(files) == 0 {
		LogWarn("opencode: no message files for %s", sessionID)
		return []Message{}, nil
	}
	sort.Strings(files)

	messages := []Message{}
	for _, f := range files {
		msg, ok := p.parseMessageFile(f)
		if !ok {
			continue
		}
		messages = append(messages, msg)
	}

	// msg_ names are ULIDs, so file order is already causal order; a stable
	// sort by timestamp only reorders entries whose clocks disagree with it.
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i].Timestamp, messages[j].Timestamp
		if a == "" || b == "" {
			return false
		}
		return a < b
	})
	return messages, nil
}

type openCodeTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}

func (t openCodeTime) latest() int64 {
	if t.Updated > t.Created {
		return t.Updated
	}
	return t.Created
}

type openCodeSession struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Directory string       `json:"directory"`
	Version   string       `json:"version"`
	Time      openCodeTime `json:"time"`
}

type openCodeMessage struct {
	ID      string       `json:"id"`
	Role    string       `json:"role"`
	Time    openCodeTime `json:"time"`
	Summary struct {
		Title string `json:"title"`
	} `json:"summary"`
	Mode   string `json:"mode"`
	Finish string `json:"finish"`
}

type openCodePart struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Tool  string `json:"tool"`
	State struct {
		Status string         `json:"status"`
		Input  map[string]any `json:"input"`
		Output string         `json:"output"`
	} `json:"state"`
}

// readOpenCodeSession loads one ses_*.json. Unreadable or malformed files
// return a warning.
func readOpenCodeSession(path string) (*openCodeSession, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Sprintf("opencode: cannot read %s: %v", path, err)
	}
	var meta openCodeSession
	if err := json.Unmarshal(data, &meta); err != nil {
		LogWarn("Corrupt session file %s: %v", path, err)
		return nil, fmt.Sprintf("opencode: corrupt session file %s", path)
	}
	return &meta, ""
}

func (p *OpenCodeProvider) countMessages(sesID string) int {
	files, err := filepath.Glob(filepath.Join(p.basePath, "message", sesID, "msg_*.json"))
	if err != nil {
		return 0
	}
	return len(files)
}

// parseMessageFile assembles one message from its metadata file and part
// directory. Returns ok=false for unreadable metadata.
func (p *OpenCodeProvider) parseMessageFile(path string) (Message, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		LogWarn("Cannot read message file %s: %v", path, err)
		return Message{}, false
	}
	var meta openCodeMessage
	if err := json.Unmarshal(data, &meta); err != nil {
		LogWarn("Corrupt message file %s: %v", path, err)
		return Message{}, false
	}

	msgID := meta.ID
	if msgID == "" {
		msgID = strings.TrimSuffix(filepath.Base(path), ".json")
	}

	role := RoleUser
	switch meta.Role {
	case "", "user":
		role = RoleUser
	case "system":
		role = RoleSystem
	default:
		role = RoleAssistant
	}

	content, msgType, metadata := p.assembleParts(msgID)

	// v1.0 storage has no part directories; fall back to what the message
	// metadata itself carries.
	if content == "" {
		if meta.Summary.Title != "" {
			content = meta.Summary.Title
		} else if role == RoleAssistant {
			if meta.Mode != "" || meta.Finish != "" {
				var info []string
				if meta.Mode != "" {
					info = append(info, "mode: "+meta.Mode)
				}
				if meta.Finish != "" {
					info = append(info, "finish: "+meta.Finish)
				}
				content = "[" + strings.Join(info, ", ") + "]"
			} else {
				content = "[Assistant content not available (OpenCode v1.0 storage format)]"
			}
		}
	}

	return Message{
		Role:      role,
		Content:   content,
		Timestamp: TimestampFromMillis(meta.Time.Created),
		Type:      msgType,
		Metadata:  metadata,
	}, true
}

// assembleParts concatenates a message's prt_*.json files in filename order.
func (p *OpenCodeProvider) assembleParts(msgID string) (string, string, map[string]string) {
	partDir := filepath.Join(p.basePath, "part", msgID)
	files, err := filepath.Glob(filepath.Join(partDir, "prt_*.json"))
	if err != nil || len(files) == 0 {
		return "", MessageTypeText, nil
	}
	sort.Strings(files)

	var parts []string
	msgType := MessageTypeText
	var metadata map[string]string

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			LogDebug("Cannot read part file %s: %v", f, err)
			continue
		}
		var part openCodePart
		if err := json.Unmarshal(data, &part); err != nil {
			LogDebug("Corrupt part file %s: %v", f, err)
			continue
		}

		switch part.Type {
		case "text":
			if part.Text != "" {
				parts = append(parts, part.Text)
			}
		case "tool":
			toolName := part.Tool
			if toolName == "" {
				toolName = "unknown"
			}
			parts = append(parts, toolSummary(toolName, part.State.Input))
			if part.State.Output != "" {
				parts = append(parts, "```\n"+part.State.Output+"\n```")
			}
			msgType = MessageTypeToolCall
			if metadata == nil {
				metadata = map[string]string{}
			}
			metadata["tool_name"] = toolName
		case "patch":
			parts = append(parts, "[Patch/Edit]")
		case "step-start", "step-finish", "snapshot":
			// Lifecycle markers carry no conversation content.
		default:
			if part.Text != "" {
				parts = append(parts, part.Text)
			}
		}
	}

	return strings.Join(parts, "\n"), msgType, metadata
}

// toolSummary renders a compact one-line description of a tool invocation
// from its scalar inputs, e.g. [Tool: grep (pattern=SELECT, path=src)].
func toolSummary(toolName string, input map[string]any) string {
	var kvs []string
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := input[k].(type) {
		case string:
			if v != "" {
				kvs = append(kvs, fmt.Sprintf("%s=%s", k, v))
			}
		case bool:
			kvs = append(kvs, fmt.Sprintf("%s=%t", k, v))
		case float64:
			kvs = append(kvs, fmt.Sprintf("%s=%v", k, v))
		}
	}
	if len(kvs) == 0 {
		return fmt.Sprintf("[Tool: %s]", toolName)
	}
	return fmt.Sprintf("[Tool: %s (%s)]", toolName, strings.Join(kvs, ", "))
}
