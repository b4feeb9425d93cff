package internal

import (
	"errors"
	"strings"
	"testing"

	"github.com/iksnae/aichat-history/testutil"
)

// fakeProvider is a scriptable backend for registry tests.
type fakeProvider struct {
	source     string
	label      string
	available  bool
	workspaces []Workspace
	sessions   []Session
	messages   map[string][]Message
	listErr    error
	panics     bool
}

func (f *fakeProvider) Source() string  { return f.source }
func (f *fakeProvider) Label() string   { return f.label }
func (f *fakeProvider) Available() bool { return f.available }

func (f *fakeProvider) ListWorkspaces() ([]Workspace, []string, error) {
	if f.panics {
		panic("fake workspace panic")
	}
	if f.listErr != nil {
		return nil, nil, f.listErr
	}
	return f.workspaces, nil, nil
}

func (f *fakeProvider) ListSessions(workspaceID string) ([]Session, []string, error) {
	if f.panics {
		panic("fake session panic")
	}
	if f.listErr != nil {
		return nil, nil, f.listErr
	}
	if workspaceID == "" {
		return f.sessions, nil, nil
	}
	var scoped []Session
	for _, s := range f.sessions {
		if s.WorkspaceKey == workspaceID {
			scoped = append(scoped, s)
		}
	}
	return scoped, nil, nil
}

func (f *fakeProvider) SessionMessages(sessionID string) ([]Message, error) {
	if msgs, ok := f.messages[sessionID]; ok {
		return msgs, nil
	}
	return nil, &NotFoundError{SessionID: sessionID}
}

func newFakePair() (*fakeProvider, *fakeProvider) {
	alpha := &fakeProvider{
		source:    "alpha",
		label:     "Alpha",
		available: true,
		workspaces: []Workspace{
			{Source: "alpha", Key: "ws1", Name: "ws1", SessionCount: 2},
		},
		sessions: []Session{
			{ID: "alpha:ws1:s1", Source: "alpha", WorkspaceKey: "ws1", Title: "Older", UpdatedAt: "2025-01-10T10:00:00Z"},
			{ID: "alpha:ws1:s2", Source: "alpha", WorkspaceKey: "ws1", Title: "Newest", UpdatedAt: "2025-01-30T10:00:00Z"},
		},
		messages: map[string][]Message{
			"alpha:ws1:s1": {{Role: RoleUser, Content: "hello"}},
			"alpha:ws1:s2": {{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hey"}},
		},
	}
	beta := &fakeProvider{
		source:    "beta",
		label:     "Beta",
		available: true,
		workspaces: []Workspace{
			{Source: "beta", Key: "wsB", Name: "wsB", SessionCount: 1},
		},
		sessions: []Session{
			{ID: "beta:wsB:s1", Source: "beta", WorkspaceKey: "wsB", Title: "Middle", UpdatedAt: "2025-01-20T10:00:00Z"},
		},
		messages: map[string][]Message{
			"beta:wsB:s1": {{Role: RoleUser, Content: "yo"}},
		},
	}
	return alpha, beta
}

func TestRegistrySources(t *testing.T) {
	alpha, beta := newFakePair()
	beta.available = false
	registry := NewRegistry(alpha, beta)

	statuses := registry.Sources()
	if len(statuses) != 2 {
		t.Fatalf("Sources() returned %d statuses, want 2", len(statuses))
	}
	if statuses[0].ID != "alpha" || !statuses[0].Available {
		t.Errorf("statuses[0] = %+v, want available alpha", statuses[0])
	}
	if statuses[1].ID != "beta" || statuses[1].Available {
		t.Errorf("statuses[1] = %+v, want unavailable beta", statuses[1])
	}
	if statuses[1].Label != "Beta" {
		t.Errorf("Label = %v, want Beta", statuses[1].Label)
	}
}

func TestRegistryListWorkspacesMerges(t *testing.T) {
	alpha, beta := newFakePair()
	registry := NewRegistry(alpha, beta)

	workspaces, warnings, err := registry.ListWorkspaces("")
	if err != nil {
		t.Fatalf("ListWorkspaces() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if len(workspaces) != 2 {
		t.Errorf("ListWorkspaces() returned %d workspaces, want 2", len(workspaces))
	}
}

func TestRegistryListSessionsMergesAndSorts(t *testing.T) {
	alpha, beta := newFakePair()
	registry := NewRegistry(alpha, beta)

	sessions, warnings, err := registry.ListSessions("", "")
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	wantOrder := []string{"alpha:ws1:s2", "beta:wsB:s1", "alpha:ws1:s1"}
	if len(sessions) != len(wantOrder) {
		t.Fatalf("ListSessions() returned %d sessions, want %d", len(sessions), len(wantOrder))
	}
	for i, want := range wantOrder {
		if sessions[i].ID != want {
			t.Errorf("sessions[%d].ID = %v, want %v", i, sessions[i].ID, want)
		}
	}
}

func TestRegistryListSessionsNamedSource(t *testing.T) {
	alpha, beta := newFakePair()
	registry := NewRegistry(alpha, beta)

	sessions, warnings, err := registry.ListSessions("beta", "")
	if err != nil {
		t.Fatalf("ListSessions(beta) error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if len(sessions) != 1 || sessions[0].Source != "beta" {
		t.Errorf("sessions = %+v, want only beta sessions", sessions)
	}
}

func TestRegistryUnknownSourceWarns(t *testing.T) {
	alpha, _ := newFakePair()
	registry := NewRegistry(alpha)

	sessions, warnings, err := registry.ListSessions("gamma", "")
	if err != nil {
		t.Fatalf("ListSessions(gamma) error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %+v, want none for unknown source", sessions)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "unknown source") {
		t.Errorf("warnings = %v, want unknown-source warning", warnings)
	}
}

func TestRegistryUnavailableSourceWarns(t *testing.T) {
	alpha, _ := newFakePair()
	alpha.available = false
	registry := NewRegistry(alpha)

	sessions, warnings, err := registry.ListSessions("alpha", "")
	if err != nil {
		t.Fatalf("ListSessions(alpha) error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %+v, want none for unavailable source", sessions)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "not available") {
		t.Errorf("warnings = %v, want unavailable warning", warnings)
	}
}

func TestRegistryBackendErrorDegradesToWarning(t *testing.T) {
	alpha, beta := newFakePair()
	beta.listErr = errors.New("store exploded")
	registry := NewRegistry(alpha, beta)

	sessions, warnings, err := registry.ListSessions("", "")
	if err != nil {
		t.Fatalf("ListSessions() error = %v, failures must degrade to warnings", err)
	}
	if len(sessions) != 2 {
		t.Errorf("ListSessions() returned %d sessions, want alpha's 2", len(sessions))
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "beta") {
		t.Errorf("warnings = %v, want one beta warning", warnings)
	}
}

func TestRegistryBackendPanicDegradesToWarning(t *testing.T) {
	alpha, beta := newFakePair()
	beta.panics = true
	registry := NewRegistry(alpha, beta)

	sessions, warnings, err := registry.ListSessions("", "")
	if err != nil {
		t.Fatalf("ListSessions() error = %v, panics must degrade to warnings", err)
	}
	if len(sessions) != 2 {
		t.Errorf("ListSessions() returned %d sessions, want alpha's 2", len(sessions))
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "internal error") {
		t.Errorf("warnings = %v, want internal-error warning", warnings)
	}
}

func TestRegistrySessionMessagesDispatch(t *testing.T) {
	alpha, beta := newFakePair()
	registry := NewRegistry(alpha, beta)

	messages, err := registry.SessionMessages("beta:wsB:s1")
	if err != nil {
		t.Fatalf("SessionMessages() error = %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "yo" {
		t.Errorf("messages = %+v, want beta's message", messages)
	}

	if _, err := registry.SessionMessages("not-a-composed-id"); !errors.Is(err, ErrBadSessionID) {
		t.Errorf("error = %v, want ErrBadSessionID", err)
	}

	if _, err := registry.SessionMessages("gamma:ws:s"); !IsNotFound(err) {
		t.Errorf("unknown source error = %v, want not-found category", err)
	}

	beta.available = false
	if _, err := registry.SessionMessages("beta:wsB:s1"); !IsNotFound(err) {
		t.Errorf("unavailable source error = %v, want not-found category", err)
	}
}

func TestRegistryFindSession(t *testing.T) {
	alpha, beta := newFakePair()
	registry := NewRegistry(alpha, beta)

	session, err := registry.FindSession("alpha:ws1:s2")
	if err != nil {
		t.Fatalf("FindSession() error = %v", err)
	}
	if session.Title != "Newest" {
		t.Errorf("Title = %v, want Newest", session.Title)
	}

	if _, err := registry.FindSession("alpha:ws1:s999"); !IsNotFound(err) {
		t.Errorf("error = %v, want not-found category", err)
	}
}

func TestRegistrySessionDetail(t *testing.T) {
	alpha, beta := newFakePair()
	registry := NewRegistry(alpha, beta)

	detail, err := registry.SessionDetail("alpha:ws1:s2")
	if err != nil {
		t.Fatalf("SessionDetail() error = %v", err)
	}
	if detail.Session.ID != "alpha:ws1:s2" {
		t.Errorf("Session.ID = %v", detail.Session.ID)
	}
	if len(detail.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2", len(detail.Messages))
	}
	// The detail count reflects the parsed messages, not the listing estimate.
	if detail.Session.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", detail.Session.MessageCount)
	}
}

func TestRegistryEndToEnd(t *testing.T) {
	t.Setenv(EnvCursorPath, testutil.CreateCursorFixture(t))
	t.Setenv(EnvClaudePath, testutil.CreateClaudeFixture(t))
	t.Setenv(EnvOpenCodePath, testutil.CreateOpenCodeFixture(t))

	registry := DefaultRegistry(nil)

	statuses := registry.Sources()
	if len(statuses) != 3 {
		t.Fatalf("Sources() returned %d statuses, want 3", len(statuses))
	}
	for _, s := range statuses {
		if !s.Available {
			t.Errorf("source %s not available with fixture data", s.ID)
		}
	}

	sessions, warnings, err := registry.ListSessions("", "")
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	// 3 cursor (2 composers + 1 global tab) + 2 claude + 1 opencode.
	if len(sessions) != 6 {
		t.Fatalf("ListSessions() returned %d sessions, want 6", len(sessions))
	}

	detail, err := registry.SessionDetail("opencode:proj1:ses_001")
	if err != nil {
		t.Fatalf("SessionDetail() error = %v", err)
	}
	if detail.Session.Title != "Debug API endpoint" {
		t.Errorf("Title = %v, want Debug API endpoint", detail.Session.Title)
	}
	if len(detail.Messages) != 3 {
		t.Errorf("len(Messages) = %d, want 3", len(detail.Messages))
	}
}

func TestRegistryIdentifiersStableAndResolvable(t *testing.T) {
	t.Setenv(EnvCursorPath, testutil.CreateCursorFixture(t))
	t.Setenv(EnvClaudePath, testutil.CreateClaudeFixture(t))
	t.Setenv(EnvOpenCodePath, testutil.CreateOpenCodeFixture(t))

	registry := DefaultRegistry(nil)

	first, _, err := registry.ListSessions("", "")
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(first) == 0 {
		t.Fatal("ListSessions() returned no sessions")
	}
	second, _, err := registry.ListSessions("", "")
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("listing size changed between reads: %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("sessions[%d].ID = %q then %q, want stable identifiers", i, first[i].ID, second[i].ID)
		}
	}

	// Every listed identifier resolves back to its messages.
	for _, s := range first {
		if _, err := registry.SessionMessages(s.ID); err != nil {
			t.Errorf("SessionMessages(%s) error = %v", s.ID, err)
		}
	}
}
