package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Retry policy for "database is locked": Cursor may hold its own lock while
// writing, so a locked store is transient. After the retries the store is
// treated as unavailable for this call instead of blocking.
const (
	lockRetries = 3
	lockBackoff = 150 * time.Millisecond
)

// CursorProvider reads Cursor's chat history from per-workspace state.vscdb
// databases under workspaceStorage plus the globalStorage chat panel store.
// Every database is opened read-only at the driver level.
type CursorProvider struct {
	basePath string // workspaceStorage directory
	globalDB string // globalStorage/state.vscdb
}

// NewCursorProvider resolves Cursor's storage locations from the environment
// and config. A source with no resolvable path yields a provider that simply
// reports itself unavailable.
func NewCursorProvider(cfg *Config) *CursorProvider {
	base, err := ResolvePath(SourceCursor, cfg)
	if err != nil {
		LogDebug("cursor path not resolved: %v", err)
		return &CursorProvider{}
	}
	return NewCursorProviderAt(base)
}

// NewCursorProviderAt builds a provider over an explicit workspaceStorage
// directory. The global store is derived as its sibling.
func NewCursorProviderAt(workspaceStorage string) *CursorProvider {
	return &CursorProvider{
		basePath: workspaceStorage,
		globalDB: CursorGlobalDBPath(workspaceStorage),
	}
}

// Source implements Provider.
func (p *CursorProvider) Source() string { return SourceCursor }

// Label implements Provider.
func (p *CursorProvider) Label() string { return "Cursor" }

// Available reports whether the workspaceStorage directory exists.
func (p *CursorProvider) Available() bool {
	if p.basePath == "" {
		return false
	}
	info, err := os.Stat(p.basePath)
	return err == nil && info.IsDir()
}

// ListWorkspaces enumerates workspace directories that hold both a readable
// workspace.json and a state.vscdb with chat data. Directories failing either
// check are skipped; a database that cannot be opened is recorded as a
// warning.
func (p *CursorProvider) ListWorkspaces() ([]Workspace, []string, error) {
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
		hash := entry.Name()
		wsDir := filepath.Join(p.basePath, hash)
		dbPath := filepath.Join(wsDir, "state.vscdb")
		if _, err := os.Stat(dbPath); err != nil {
			continue
		}

		displayPath := readWorkspaceFolder(wsDir)
		if displayPath == "" {
			continue
		}

		composers, warn := p.readComposers(dbPath)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if composers == nil {
			continue
		}

		workspaces = append(workspaces, Workspace{
			Source:       SourceCursor,
			Key:          hash,
			Name:         filepath.Base(displayPath),
			Path:         displayPath,
			SessionCount: len(composers),
			LastActivity: lastComposerActivity(composers),
		})
	}

	sort.Slice(workspaces, func(i, j int) bool { return workspaces[i].Key < workspaces[j].Key })
	return workspaces, warnings, nil
}

// ListSessions lists composer sessions per workspace plus the global chat
// tabs. Scoping to the reserved key "global" returns only the latter.
func (p *CursorProvider) ListSessions(workspaceID string) ([]Session, []string, error) {
	var warnings []string
	sessions := []Session{}

	if workspaceID != "global" {
		var wsDirs []string
		if workspaceID != "" {
			wsDirs = []string{filepath.Join(p.basePath, workspaceID)}
		} else {
			entries, err := os.ReadDir(p.basePath)
			if err == nil {
				for _, entry := range entries {
					if entry.IsDir() {
						wsDirs = append(wsDirs, filepath.Join(p.basePath, entry.Name()))
					}
				}
			}
		}

		for _, wsDir := range wsDirs {
			dbPath := filepath.Join(wsDir, "state.vscdb")
			if _, err := os.Stat(dbPath); err != nil {
				continue
			}
			displayPath := readWorkspaceFolder(wsDir)
			if displayPath == "" {
				continue
			}
			wsSessions, warns := p.workspaceSessions(dbPath, filepath.Base(wsDir), displayPath)
			warnings = append(warnings, warns...)
			sessions = append(sessions, wsSessions...)
		}
	}

	if workspaceID == "" || workspaceID == "global" {
		globalSessions, warns := p.globalSessions()
		warnings = append(warnings, warns...)
		sessions = append(sessions, globalSessions...)
	}

	SortSessionsByActivity(sessions)
	return sessions, warnings, nil
}

// SessionMessages resolves a composed cursor ID to its ordered messages.
func (p *CursorProvider) SessionMessages(sessionID string) ([]Message, error) {
	source, wsKey, sessionKey, err := ParseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if source != SourceCursor {
		return nil, &NotFoundError{SessionID: sessionID}
	}
	if wsKey == "global" {
		return p.globalMessages(sessionID, sessionKey)
	}
	return p.workspaceMessages(sessionID, wsKey, sessionKey)
}

// Raw row shapes stored as JSON blobs in ItemTable.
type cursorComposer struct {
	ComposerID    string `json:"composerId"`
	Name          string `json:"name"`
	CreatedAt     int64  `json:"createdAt"`
	LastUpdatedAt int64  `json:"lastUpdatedAt"`
}

type cursorComposerData struct {
	AllComposers []cursorComposer `json:"allComposers"`
}

type cursorPrompt struct {
	Text        string `json:"text"`
	CommandType int    `json:"commandType"`
}

type cursorGeneration struct {
	UnixMs          int64  `json:"unixMs"`
	GenerationUUID  string `json:"generationUUID"`
	Type            string `json:"type"`
	TextDescription string `json:"textDescription"`
}

type cursorChatData struct {
	Tabs []cursorChatTab `json:"tabs"`
}

type cursorChatTab struct {
	TabID   string             `json:"tabId"`
	Bubbles []cursorChatBubble `json:"bubbles"`
}

type cursorChatBubble struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// openCursorDB opens a state.vscdb strictly read-only. The mode=ro DSN makes
// writes impossible at the driver level. A locked database is retried per the
// lock policy before giving up.
func openCursorDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, &StoreError{Source: SourceCursor, Path: path, Op: "open", Err: err}
	}

	var pingErr error
	for attempt := 0; attempt <= lockRetries; attempt++ {
		pingErr = db.Ping()
		if pingErr == nil {
			return db, nil
		}
		if !isLockedErr(pingErr) {
			break
		}
		time.Sleep(lockBackoff)
	}
	_ = db.Close()
	return nil, &StoreError{Source: SourceCursor, Path: path, Op: "open", Err: fmt.Errorf("%w: %v", ErrUnavailable, pingErr)}
}

func isLockedErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// queryItemValue reads a single key from the ItemTable. Missing keys return
// ("", nil). Lock contention follows the retry policy.
func queryItemValue(db *sql.DB, dbPath, key string) (string, error) {
	var value sql.NullString
	var err error
	for attempt := 0; attempt <= lockRetries; attempt++ {
		err = db.QueryRow("SELECT value FROM ItemTable WHERE key = ?", key).Scan(&value)
		if err == nil || err == sql.ErrNoRows {
			break
		}
		if !isLockedErr(err) {
			break
		}
		time.Sleep(lockBackoff)
	}
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", &StoreError{Source: SourceCursor, Path: dbPath, Op: "query", Err: err}
	}
	if !value.Valid {
		return "", nil
	}
	return value.String, nil
}

// readWorkspaceFolder extracts the project path from a workspace.json folder
// URI. Unreadable or malformed files yield "".
func readWorkspaceFolder(wsDir string) string {
	data, err := os.ReadFile(filepath.Join(wsDir, "workspace.json"))
	if err != nil {
		return ""
	}
	var ws struct {
		Folder string `json:"folder"`
	}
	if err := json.Unmarshal(data, &ws); err != nil {
		LogWarn("Failed to parse workspace.json in %s: %v", wsDir, err)
		return ""
	}
	if strings.HasPrefix(ws.Folder, "file://") {
		if decoded, err := url.PathUnescape(ws.Folder[len("file://"):]); err == nil {
			return decoded
		}
		return ws.Folder[len("file://"):]
	}
	return ws.Folder
}

// readComposers fetches and parses composer.composerData. Returns (nil, "")
// when the key is absent, (nil, warning) when the store or blob is bad.
func (p *CursorProvider) readComposers(dbPath string) ([]cursorComposer, string) {
	db, err := openCursorDB(dbPath)
	if err != nil {
		return nil, fmt.Sprintf("cursor: cannot open %s: %v", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	raw, err := queryItemValue(db, dbPath, "composer.composerData")
	if err != nil {
		return nil, fmt.Sprintf("cursor: cannot read composer data from %s: %v", dbPath, err)
	}
	if raw == "" {
		return nil, ""
	}

	var data cursorComposerData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		LogWarn("Corrupt composerData in %s: %v", dbPath, err)
		return nil, fmt.Sprintf("cursor: corrupt composer data in %s", dbPath)
	}
	return data.AllComposers, ""
}

func lastComposerActivity(composers []cursorComposer) string {
	var last int64
	for _, c := range composers {
		if c.LastUpdatedAt > last {
			last = c.LastUpdatedAt
		}
		if c.CreatedAt > last {
			last = c.CreatedAt
		}
	}
	return TimestampFromMillis(last)
}

// workspaceSessions extracts one Session per composer from a workspace store.
func (p *CursorProvider) workspaceSessions(dbPath, wsHash, displayPath string) ([]Session, []string) {
	var warnings []string

	db, err := openCursorDB(dbPath)
	if err != nil {
		return nil, []string{fmt.Sprintf("cursor: cannot open %s: %v", dbPath, err)}
	}
	defer func() { _ = db.Close() }()

	raw, err := queryItemValue(db, dbPath, "composer.composerData")
	if err != nil || raw == "" {
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("cursor: cannot read composer data from %s: %v", dbPath, err))
		}
		return nil, warnings
	}

	var data cursorComposerData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		LogWarn("Corrupt composerData in %s: %v", dbPath, err)
		return nil, append(warnings, fmt.Sprintf("cursor: corrupt composer data in %s", dbPath))
	}

	prompts := readCursorPrompts(db, dbPath)
	generations := readCursorGenerations(db, dbPath)

	var sessions []Session
	for _, comp := range data.AllComposers {
		if comp.ComposerID == "" {
			continue
		}

		title := strings.TrimSpace(comp.Name)
		if title == "" {
			if len(prompts) > 0 {
				title = truncateTitle(prompts[0].Text, 80)
			} else {
				title = "Untitled"
			}
		}

		sessions = append(sessions, Session{
			ID:           ComposeSessionID(SourceCursor, wsHash, comp.ComposerID),
			Source:       SourceCursor,
			WorkspaceKey: wsHash,
			Title:        title,
			CreatedAt:    TimestampFromMillis(comp.CreatedAt),
			UpdatedAt:    TimestampFromMillis(comp.LastUpdatedAt),
			MessageCount: countGenerationsInRange(generations, comp.CreatedAt, comp.LastUpdatedAt),
			ProjectPath:  displayPath,
		})
	}
	return sessions, warnings
}

func readCursorPrompts(db *sql.DB, dbPath string) []cursorPrompt {
	raw, err := queryItemValue(db, dbPath, "aiService.prompts")
	if err != nil || raw == "" {
		return nil
	}
	var prompts []cursorPrompt
	if err := json.Unmarshal([]byte(raw), &prompts); err != nil {
		LogWarn("Corrupt prompts in %s: %v", dbPath, err)
		return nil
	}
	filtered := prompts[:0]
	for _, p := range prompts {
		if p.Text != "" {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func readCursorGenerations(db *sql.DB, dbPath string) []cursorGeneration {
	raw, err := queryItemValue(db, dbPath, "aiService.generations")
	if err != nil || raw == "" {
		return nil
	}
	var generations []cursorGeneration
	if err := json.Unmarshal([]byte(raw), &generations); err != nil {
		LogWarn("Corrupt generations in %s: %v", dbPath, err)
		return nil
	}
	return generations
}

// countGenerationsInRange estimates a session's message count from the
// generations inside its activity window. Zero bounds mean unbounded.
func countGenerationsInRange(generations []cursorGeneration, startMs, endMs int64) int {
	if len(generations) == 0 {
		return 0
	}
	if startMs <= 0 && endMs <= 0 {
		return len(generations)
	}
	count := 0
	for _, g := range generations {
		if g.UnixMs == 0 {
			continue
		}
		if startMs > 0 && g.UnixMs < startMs {
			continue
		}
		if endMs > 0 && g.UnixMs > endMs {
			continue
		}
		count++
	}
	return count
}

// workspaceMessages reconstructs a composer conversation. Prompts carry no
// timestamps of their own, so each one is anchored to the next composer-type
// generation in the session's window and the pair is emitted user-first.
func (p *CursorProvider) workspaceMessages(sessionID, wsHash, composerID string) ([]Message, error) {
	dbPath := filepath.Join(p.basePath, wsHash, "state.vscdb")
	if _, err := os.Stat(dbPath); err != nil {
		return nil, &NotFoundError{SessionID: sessionID}
	}

	db, err := openCursorDB(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	raw, err := queryItemValue(db, dbPath, "composer.composerData")
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, &NotFoundError{SessionID: sessionID}
	}

	var data cursorComposerData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, &ParseError{Source: SourceCursor, Key: dbPath, Err: err}
	}

	var target *cursorComposer
	for i := range data.AllComposers {
		if data.AllComposers[i].ComposerID == composerID {
			target = &data.AllComposers[i]
			break
		}
	}
	if target == nil {
		return nil, &NotFoundError{SessionID: sessionID}
	}

	prompts := readCursorPrompts(db, dbPath)
	generations := readCursorGenerations(db, dbPath)

	var sessionGens []cursorGeneration
	for _, g := range generations {
		if g.UnixMs == 0 {
			continue
		}
		if target.CreatedAt > 0 && g.UnixMs < target.CreatedAt {
			continue
		}
		if target.LastUpdatedAt > 0 && g.UnixMs > target.LastUpdatedAt {
			continue
		}
		if g.Type != "composer" {
			continue
		}
		sessionGens = append(sessionGens, g)
	}
	sort.Slice(sessionGens, func(i, j int) bool { return sessionGens[i].UnixMs < sessionGens[j].UnixMs })

	messages := []Message{}
	promptIdx := 0
	for _, gen := range sessionGens {
		ts := TimestampFromMillis(gen.UnixMs)
		if promptIdx < len(prompts) {
			messages = append(messages, Message{
				Role:      RoleUser,
				Content:   prompts[promptIdx].Text,
				Timestamp: ts,
				Type:      MessageTypeText,
			})
			promptIdx++
		}
		if gen.TextDescription != "" {
			messages = append(messages, Message{
				Role:      RoleAssistant,
				Content:   gen.TextDescription,
				Timestamp: ts,
				Type:      MessageTypeText,
			})
		}
	}
	for ; promptIdx < len(prompts); promptIdx++ {
		messages = append(messages, Message{
			Role:    RoleUser,
			Content: prompts[promptIdx].Text,
			Type:    MessageTypeText,
		})
	}

	return messages, nil
}

// readChatTabs loads the global chat panel data. Absent store or key yields
// (nil, "").
func (p *CursorProvider) readChatTabs() ([]cursorChatTab, string) {
	if p.globalDB == "" {
		return nil, ""
	}
	if _, err := os.Stat(p.globalDB); err != nil {
		return nil, ""
	}

	db, err := openCursorDB(p.globalDB)
	if err != nil {
		return nil, fmt.Sprintf("cursor: cannot open global store %s: %v", p.globalDB, err)
	}
	defer func() { _ = db.Close() }()

	raw, err := queryItemValue(db, p.globalDB, "workbench.panel.aichat.view.aichat.chatdata")
	if err != nil {
		return nil, fmt.Sprintf("cursor: cannot read global chat data: %v", err)
	}
	if raw == "" {
		return nil, ""
	}

	var data cursorChatData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		LogWarn("Corrupt global chatdata in %s: %v", p.globalDB, err)
		return nil, fmt.Sprintf("cursor: corrupt global chat data in %s", p.globalDB)
	}
	return data.Tabs, ""
}

func (p *CursorProvider) globalSessions() ([]Session, []string) {
	tabs, warn := p.readChatTabs()
	var warnings []string
	if warn != "" {
		warnings = append(warnings, warn)
	}

	var sessions []Session
	for _, tab := range tabs {
		if tab.TabID == "" || len(tab.Bubbles) == 0 {
			continue
		}

		title := "Chat"
		for _, b := range tab.Bubbles {
			if b.Type == "user" {
				title = truncateTitle(b.Text, 80)
				break
			}
		}

		sessions = append(sessions, Session{
			ID:           ComposeSessionID(SourceCursor, "global", tab.TabID),
			Source:       SourceCursor,
			WorkspaceKey: "global",
			Title:        title,
			MessageCount: len(tab.Bubbles),
			ProjectPath:  "(global)",
		})
	}
	return sessions, warnings
}

func (p *CursorProvider) globalMessages(sessionID, tabID string) ([]Message, error) {
	tabs, warn := p.readChatTabs()
	if warn != "" {
		LogWarn("%s", warn)
	}

	for _, tab := range tabs {
		if tab.TabID != tabID {
			continue
		}
		messages := []Message{}
		for _, bubble := range tab.Bubbles {
			role := RoleAssistant
			if bubble.Type == "user" {
				role = RoleUser
			}
			messages = append(messages, Message{
				Role:    role,
				Content: bubble.Text,
				Type:    MessageTypeText,
			})
		}
		return messages, nil
	}
	return nil, &NotFoundError{SessionID: sessionID}
}
