package internal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Transcript lines hold full tool results and can get very large.
const claudeMaxLineSize = 10 * 1024 * 1024

// ClaudeProvider reads Claude Code transcripts: per-project directories under
// ~/.claude/projects, each with one .jsonl file per session and an optional
// sessions-index.json carrying metadata. Directory names encode the project
// path (-Users-foo-bar for /Users/foo/bar).
type ClaudeProvider struct {
	basePath string // projects directory
}

// NewClaudeProvider resolves the projects directory from the environment and
// config.
func NewClaudeProvider(cfg *Config) *ClaudeProvider {
	base, err := ResolvePath(SourceClaude, cfg)
	if err != nil {
		LogDebug("claude path not resolved: %v", err)
		return &ClaudeProvider{}
	}
	return NewClaudeProviderAt(base)
}

// NewClaudeProviderAt builds a provider over an explicit projects directory.
func NewClaudeProviderAt(projectsDir string) *ClaudeProvider {
	return &ClaudeProvider{basePath: projectsDir}
}

// Source implements Provider.
func (p *ClaudeProvider) Source() string { return SourceClaude }

// Label implements Provider.
func (p *ClaudeProvider) Label() string { return "Claude Code" }

// Available reports whether the projects directory exists.
func (p *ClaudeProvider) Available() bool {
	if p.basePath == "" {
		return false
	}
	info, err := os.Stat(p.basePath)
	return err == nil && info.IsDir()
}

// ListWorkspaces enumerates project directories. The display path comes from
// the index when present, otherwise it is derived from the encoded directory
// name.
func (p *ClaudeProvider) ListWorkspaces() ([]Workspace, []string, error) {
	var warnings []string
	workspaces := []Workspace{}

	entries, err := os.ReadDir(p.basePath)
	if err != nil {
		return workspaces, warnings, nil
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		projectDir := filepath.Join(p.basePath, entry.Name())
		displayPath := p.resolveDisplayPath(projectDir)

		index, warn := readClaudeIndex(projectDir)
		if warn != "" {
			warnings = append(warnings, warn)
		}

		ws := Workspace{
			Source: SourceClaude,
			Key:    entry.Name(),
			Name:   filepath.Base(displayPath),
			Path:   displayPath,
		}
		if index != nil {
			ws.SessionCount = len(index)
			ws.LastActivity = lastIndexActivity(index)
		} else {
			files, _ := filepath.Glob(filepath.Join(projectDir, "*.jsonl"))
			ws.SessionCount = len(files)
		}
		workspaces = append(workspaces, ws)
	}

	sort.Slice(workspaces, func(i, j int) bool { return workspaces[i].Key < workspaces[j].Key })
	return workspaces, warnings, nil
}

// ListSessions lists sessions per project from the index, falling back to a
// directory scan of the transcript files when no index exists.
func (p *ClaudeProvider) ListSessions(workspaceID string) ([]Session, []string, error) {
	var warnings []string
	sessions := []Session{}

	var projectDirs []string
	if workspaceID != "" {
		projectDirs = []string{filepath.Join(p.basePath, workspaceID)}
	} else {
		entries, err := os.ReadDir(p.basePath)
		if err != nil {
			return sessions, warnings, nil
		}
		for _, entry := range entries {
			if entry.IsDir() {
				projectDirs = append(projectDirs, filepath.Join(p.basePath, entry.Name()))
			}
		}
	}

	for _, projectDir := range projectDirs {
		if info, err := os.Stat(projectDir); err != nil || !info.IsDir() {
			continue
		}
		projSessions, warns := p.projectSessions(projectDir)
		warnings = append(warnings, warns...)
		sessions = append(sessions, projSessions...)
	}

	SortSessionsByActivity(sessions)
	return sessions, warnings, nil
}

// SessionMessages parses the session's transcript file line by line.
func (p *ClaudeProvider) SessionMessages(sessionID string) ([]Message, error) {
	source, projectName, sessionKey, err := ParseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if source != SourceClaude {
		return nil, &NotFoundError{SessionID: sessionID}
	}

	jsonlPath := filepath.Join(p.basePath, projectName, sessionKey+".jsonl")
	if _, err := os.Stat(jsonlPath); err != nil {
		// An indexed session whose transcript was removed still resolves,
		// with zero messages. Anything else is a lookup miss.
		entries, _ := readClaudeIndex(filepath.Join(p.basePath, projectName))
		for _, e := range entries {
			if e.SessionID == sessionKey {
				LogWarn("claude: transcript missing for indexed session %s", sessionID)
				return []Message{}, nil
			}
		}
		return nil, &NotFoundError{SessionID: sessionID}
	}
	return parseClaudeTranscript(jsonlPath)
}

type claudeIndexEntry struct {
	SessionID    string `json:"sessionId"`
	FirstPrompt  string `json:"firstPrompt"`
	Summary      string `json:"summary"`
	MessageCount int    `json:"messageCount"`
	Created      string `json:"created"`
	Modified     string `json:"modified"`
	ProjectPath  string `json:"projectPath"`
}

// readClaudeIndex loads sessions-index.json. Returns (nil, "") when absent
// and (nil, warning) when present but unreadable.
func readClaudeIndex(projectDir string) ([]claudeIndexEntry, string) {
	indexPath := filepath.Join(projectDir, "sessions-index.json")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ""
		}
		return nil, fmt.Sprintf("claude: cannot read %s: %v", indexPath, err)
	}
	var index []claudeIndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		LogWarn("Failed to parse sessions-index.json in %s: %v", projectDir, err)
		return nil, fmt.Sprintf("claude: corrupt sessions-index.json in %s", projectDir)
	}
	return index, ""
}

func lastIndexActivity(index []claudeIndexEntry) string {
	var last string
	for _, e := range index {
		ts := parseISOTimestamp(e.Modified)
		if ts == "" {
			ts = parseISOTimestamp(e.Created)
		}
		if ts > last {
			last = ts
		}
	}
	return last
}

// resolveDisplayPath prefers the index's projectPath, then decodes the
// directory name (-Users-foo-bar -> /Users/foo/bar).
func (p *ClaudeProvider) resolveDisplayPath(projectDir string) string {
	if index, _ := readClaudeIndex(projectDir); len(index) > 0 && index[0].ProjectPath != "" {
		return index[0].ProjectPath
	}
	name := filepath.Base(projectDir)
	if strings.HasPrefix(name, "-") {
		return strings.ReplaceAll(name, "-", "/")
	}
	return name
}

func (p *ClaudeProvider) projectSessions(projectDir string) ([]Session, []string) {
	index, warn := readClaudeIndex(projectDir)
	if warn != "" {
		return nil, []string{warn}
	}
	if index == nil {
		return p.scanSessions(projectDir), nil
	}

	displayPath := p.resolveDisplayPath(projectDir)
	projectName := filepath.Base(projectDir)

	var sessions []Session
	for _, entry := range index {
		if entry.SessionID == "" {
			continue
		}

		title := entry.FirstPrompt
		if title == "" {
			title = entry.Summary
		}
		if title == "" {
			title = "Untitled"
		}

		projectPath := entry.ProjectPath
		if projectPath == "" {
			projectPath = displayPath
		}

		sessions = append(sessions, Session{
			ID:           ComposeSessionID(SourceClaude, projectName, entry.SessionID),
			Source:       SourceClaude,
			WorkspaceKey: projectName,
			Title:        truncateTitle(title, 80),
			CreatedAt:    parseISOTimestamp(entry.Created),
			UpdatedAt:    parseISOTimestamp(entry.Modified),
			MessageCount: entry.MessageCount,
			ProjectPath:  projectPath,
		})
	}
	return sessions, nil
}

// scanSessions derives session metadata from the transcript files themselves
// when a project has no index: key from the file stem, title from the first
// user line, count from the line count.
func (p *ClaudeProvider) scanSessions(projectDir string) []Session {
	displayPath := p.resolveDisplayPath(projectDir)
	projectName := filepath.Base(projectDir)

	files, err := filepath.Glob(filepath.Join(projectDir, "*.jsonl"))
	if err != nil {
		return nil
	}
	sort.Strings(files)

	var sessions []Session
	for _, jsonlPath := range files {
		stem := strings.TrimSuffix(filepath.Base(jsonlPath), ".jsonl")

		title := "Untitled"
		lineCount := 0
		if f, err := os.Open(jsonlPath); err == nil {
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 64*1024), claudeMaxLineSize)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				lineCount++
				if title != "Untitled" {
					continue
				}
				var entry claudeEntry
				if err := json.Unmarshal([]byte(line), &entry); err != nil {
					continue
				}
				if entry.Type == "human" || entry.Type == "user" {
					if text := entry.userText(); text != "" {
						title = truncateTitle(text, 80)
					}
				}
			}
			_ = f.Close()
		}

		sessions = append(sessions, Session{
			ID:           ComposeSessionID(SourceClaude, projectName, stem),
			Source:       SourceClaude,
			WorkspaceKey: projectName,
			Title:        title,
			MessageCount: lineCount,
			ProjectPath:  displayPath,
		})
	}
	return sessions
}

type claudeEntry struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Message   claudeEntryBody `json:"message"`
}

type claudeEntryBody struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type claudeBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	Name      string          `json:"name"`
	ID        string          `json:"id"`
	Input     map[string]any  `json:"input"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
	ToolUseID string          `json:"tool_use_id"`
}

// parseClaudeTranscript reads one message-or-event JSON object per line.
// Transcripts are written incrementally by the tool, so a truncated or
// malformed line is skipped without discarding the rest of the file.
func parseClaudeTranscript(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &StoreError{Source: SourceClaude, Path: path, Op: "open", Err: err}
	}
	defer func() { _ = f.Close() }()

	messages := []Message{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), claudeMaxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry claudeEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			LogDebug("Bad JSON at %s:%d: %v", path, lineNum, err)
			continue
		}

		messages = append(messages, entry.toMessages()...)
	}
	if err := scanner.Err(); err != nil {
		LogWarn("Failed to read transcript %s: %v", path, err)
	}

	return messages, nil
}

// toMessages converts one transcript entry into zero or more messages. A
// single assistant entry can produce several (text plus tool calls); metadata
// event types produce none.
func (e *claudeEntry) toMessages() []Message {
	switch e.Type {
	case "file-history-snapshot", "progress", "system", "summary", "queue-operation":
		return nil
	case "human", "user":
		return e.userMessages()
	case "assistant":
		return e.assistantMessages()
	}
	return nil
}

// userMessages handles user turns, which carry plain prompts and tool_result
// blocks (the outputs of earlier tool calls travel back on the user side).
func (e *claudeEntry) userMessages() []Message {
	ts := parseISOTimestamp(e.Timestamp)

	if text, ok := rawAsString(e.Message.Content); ok {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []Message{{Role: RoleUser, Content: text, Timestamp: ts, Type: MessageTypeText}}
	}

	var messages []Message
	var textParts []string

	for _, raw := range rawAsList(e.Message.Content) {
		if text, ok := rawAsString(raw); ok {
			if strings.TrimSpace(text) != "" {
				textParts = append(textParts, text)
			}
			continue
		}

		var block claudeBlock
		if err := json.Unmarshal(raw, &block); err != nil {
			continue
		}

		switch block.Type {
		case "text":
			if strings.TrimSpace(block.Text) != "" {
				textParts = append(textParts, block.Text)
			}
		case "tool_result":
			content := toolResultContent(block.Content)
			role := RoleTool
			if block.IsError {
				role = RoleError
			}
			if content == "" {
				content = "(empty result)"
			}
			messages = append(messages, Message{
				Role:      role,
				Content:   content,
				Timestamp: ts,
				Type:      MessageTypeToolResult,
				Metadata:  map[string]string{"tool_use_id": block.ToolUseID},
			})
		}
	}

	if len(textParts) > 0 {
		user := Message{Role: RoleUser, Content: strings.Join(textParts, "\n"), Timestamp: ts, Type: MessageTypeText}
		messages = append([]Message{user}, messages...)
	}
	return messages
}

// assistantMessages handles assistant turns: text blocks join into one
// message emitted first, tool_use and thinking blocks follow as separate
// messages.
func (e *claudeEntry) assistantMessages() []Message {
	ts := parseISOTimestamp(e.Timestamp)

	if text, ok := rawAsString(e.Message.Content); ok {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []Message{{Role: RoleAssistant, Content: text, Timestamp: ts, Type: MessageTypeText}}
	}

	var messages []Message
	var textParts []string

	for _, raw := range rawAsList(e.Message.Content) {
		var block claudeBlock
		if err := json.Unmarshal(raw, &block); err != nil {
			continue
		}

		switch block.Type {
		case "text":
			if strings.TrimSpace(block.Text) != "" {
				textParts = append(textParts, block.Text)
			}
		case "tool_use":
			toolName := block.Name
			if toolName == "" {
				toolName = "unknown"
			}
			filePath := stringInput(block.Input, "file_path")
			if filePath == "" {
				filePath = stringInput(block.Input, "path")
			}
			command := stringInput(block.Input, "command")

			summary := toolName
			if filePath != "" {
				summary += ": " + filePath
			} else if command != "" {
				if len(command) > 100 {
					command = command[:100] + "..."
				}
				summary += ": " + command
			}

			messages = append(messages, Message{
				Role:      RoleTool,
				Content:   summary,
				Timestamp: ts,
				Type:      MessageTypeToolCall,
				Metadata: map[string]string{
					"tool_name":   toolName,
					"file_path":   filePath,
					"tool_use_id": block.ID,
				},
			})
		case "thinking":
			if strings.TrimSpace(block.Thinking) != "" {
				messages = append(messages, Message{
					Role:      RoleThinking,
					Content:   block.Thinking,
					Timestamp: ts,
					Type:      MessageTypeThinking,
				})
			}
		}
	}

	if len(textParts) > 0 {
		assistant := Message{Role: RoleAssistant, Content: strings.Join(textParts, "\n"), Timestamp: ts, Type: MessageTypeText}
		messages = append([]Message{assistant}, messages...)
	}
	return messages
}

// userText extracts the plain text of a user entry, ignoring tool results.
// Used for title synthesis when no index exists.
func (e *claudeEntry) userText() string {
	if text, ok := rawAsString(e.Message.Content); ok {
		return text
	}
	var parts []string
	for _, raw := range rawAsList(e.Message.Content) {
		if text, ok := rawAsString(raw); ok {
			parts = append(parts, text)
			continue
		}
		var block claudeBlock
		if err := json.Unmarshal(raw, &block); err != nil {
			continue
		}
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// toolResultContent flattens a tool_result's content, which may be a bare
// string or a list of text/image blocks.
func toolResultContent(raw json.RawMessage) string {
	if text, ok := rawAsString(raw); ok {
		return text
	}
	var parts []string
	for _, sub := range rawAsList(raw) {
		if text, ok := rawAsString(sub); ok {
			parts = append(parts, text)
			continue
		}
		var block claudeBlock
		if err := json.Unmarshal(sub, &block); err != nil {
			continue
		}
		switch block.Type {
		case "text":
			parts = append(parts, block.Text)
		case "image":
			parts = append(parts, "[Image]")
		default:
			if block.Text != "" {
				parts = append(parts, block.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

func rawAsString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func rawAsList(raw json.RawMessage) []json.RawMessage {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

func stringInput(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

// parseISOTimestamp normalizes an ISO 8601 string to RFC 3339 UTC, returning
// "" for anything unparseable.
func parseISOTimestamp(value string) string {
	if value == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}
