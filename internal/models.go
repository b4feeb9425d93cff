package internal

import (
	"sort"
	"time"
)

// Source tags, a closed enumeration. The tag is the first segment of every
// composed session ID and the dispatch key in the registry.
const (
	SourceCursor   = "cursor"
	SourceClaude   = "claude"
	SourceOpenCode = "opencode"
)

// Message roles shared by all backends.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
	RoleThinking  = "thinking"
	RoleError     = "error"
)

// Message content types.
const (
	MessageTypeText       = "text"
	MessageTypeToolCall   = "tool_call"
	MessageTypeToolResult = "tool_result"
	MessageTypeThinking   = "thinking"
)

// Workspace is a logical grouping of sessions: a project or folder as the
// originating tool understands it. (Source, Key) is unique within a backend.
type Workspace struct {
	Source       string `json:"source" yaml:"source"`
	Key          string `json:"key" yaml:"key"`
	Name         string `json:"name" yaml:"name"`
	Path         string `json:"path,omitempty" yaml:"path,omitempty"`
	SessionCount int    `json:"session_count" yaml:"session_count"`
	LastActivity string `json:"last_activity,omitempty" yaml:"last_activity,omitempty"`
}

// Session is one conversation, normalized across sources. ID is the composed
// identifier described in sessionid.go and is stable across repeated reads of
// unchanged files. WorkspaceKey is an associative reference, not ownership.
type Session struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	WorkspaceKey string `json:"workspace" yaml:"workspace"`
	Title        string `json:"title" yaml:"title"`
	CreatedAt    string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	MessageCount int    `json:"message_count" yaml:"message_count"`
	ProjectPath  string `json:"project_path,omitempty" yaml:"project_path,omitempty"`
}

// LastActivity returns the best-known activity timestamp: UpdatedAt when set,
// otherwise CreatedAt. Empty when the source recorded neither.
func (s *Session) LastActivity() string {
	if s.UpdatedAt != "" {
		return s.UpdatedAt
	}
	return s.CreatedAt
}

// Message is a single turn. Position within a session is the slice index;
// backends emit messages in source order and never re-sort by timestamp.
type Message struct {
	Role      string            `json:"role" yaml:"role"`
	Content   string            `json:"content" yaml:"content"`
	Timestamp string            `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Type      string            `json:"type,omitempty" yaml:"type,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// SessionDetail couples a session with its full ordered message sequence.
// This is the shape the export layer and the session detail API return.
type SessionDetail struct {
	Session  Session   `json:"session" yaml:"session"`
	Messages []Message `json:"messages" yaml:"messages"`
}

// SortSessionsByActivity orders sessions most-recent-activity first. Sessions
// without any timestamp sort last. Ties break by composed ID ascending so the
// order is deterministic regardless of discovery order.
func SortSessionsByActivity(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i].LastActivity(), sessions[j].LastActivity()
		if a != b {
			if a == "" {
				return false
			}
			if b == "" {
				return true
			}
			return a > b
		}
		return sessions[i].ID < sessions[j].ID
	})
}

// TimestampFromMillis converts a Unix-millisecond value to RFC 3339 UTC.
// Zero and negative values yield an empty string.
func TimestampFromMillis(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// truncateTitle shortens a synthesized title to max runes with an ellipsis.
func truncateTitle(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
