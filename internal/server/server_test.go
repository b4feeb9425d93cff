package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iksnae/aichat-history/internal"
	"github.com/iksnae/aichat-history/testutil"
)

// newTestServer points all three backends at synthetic fixtures and builds a
// server over the default registry.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv(internal.EnvCursorPath, testutil.CreateCursorFixture(t))
	t.Setenv(internal.EnvClaudePath, testutil.CreateClaudeFixture(t))
	t.Setenv(internal.EnvOpenCodePath, testutil.CreateOpenCodeFixture(t))
	return New(internal.DefaultRegistry(nil), "test")
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response: %v (body: %s)", err, rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doGet(t, s, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/health status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set")
	}

	var resp healthResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %v, want ok", resp.Status)
	}
	if resp.Version != "test" {
		t.Errorf("version = %v, want test", resp.Version)
	}
}

func TestSourcesEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doGet(t, s, "/api/sources")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/sources status = %d, want 200", rec.Code)
	}

	var resp sourcesResponse
	decodeBody(t, rec, &resp)
	if len(resp.Sources) != 3 {
		t.Fatalf("len(sources) = %d, want 3", len(resp.Sources))
	}

	wantIDs := []string{"cursor", "claude", "opencode"}
	for i, src := range resp.Sources {
		if src.ID != wantIDs[i] {
			t.Errorf("sources[%d].id = %v, want %v", i, src.ID, wantIDs[i])
		}
		if !src.Available {
			t.Errorf("sources[%d] (%s) should be available with fixtures in place", i, src.ID)
		}
	}
}

func TestWorkspacesEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doGet(t, s, "/api/workspaces")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/workspaces status = %d, want 200", rec.Code)
	}

	var resp workspacesResponse
	decodeBody(t, rec, &resp)
	if len(resp.Workspaces) != 3 {
		t.Fatalf("len(workspaces) = %d, want 3 (one per source)", len(resp.Workspaces))
	}
	if resp.Warnings == nil {
		t.Error("warnings should be an empty array, not null")
	}

	names := make(map[string]bool)
	for _, ws := range resp.Workspaces {
		names[ws.Name] = true
	}
	if !names["my-project"] {
		t.Errorf("workspaces should include my-project, got %v", names)
	}
}

func TestWorkspacesEndpointSourceFilter(t *testing.T) {
	s := newTestServer(t)

	rec := doGet(t, s, "/api/workspaces?source=cursor")
	var resp workspacesResponse
	decodeBody(t, rec, &resp)
	if len(resp.Workspaces) != 1 {
		t.Fatalf("len(workspaces) = %d, want 1", len(resp.Workspaces))
	}
	if resp.Workspaces[0].Source != internal.SourceCursor {
		t.Errorf("workspace source = %v, want cursor", resp.Workspaces[0].Source)
	}

	rec = doGet(t, s, "/api/workspaces?source=vim")
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown source status = %d, want 200 with warning", rec.Code)
	}
	decodeBody(t, rec, &resp)
	if len(resp.Workspaces) != 0 {
		t.Errorf("len(workspaces) = %d, want 0", len(resp.Workspaces))
	}
	if len(resp.Warnings) != 1 || !strings.Contains(resp.Warnings[0], "unknown source") {
		t.Errorf("warnings = %v, want one unknown-source warning", resp.Warnings)
	}
}

func TestSessionsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doGet(t, s, "/api/sessions")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/sessions status = %d, want 200", rec.Code)
	}

	var resp sessionsResponse
	decodeBody(t, rec, &resp)
	if resp.Total != 6 {
		t.Errorf("total = %d, want 6", resp.Total)
	}
	if len(resp.Sessions) != 6 {
		t.Fatalf("len(sessions) = %d, want 6", len(resp.Sessions))
	}
	if resp.Limit != 100 || resp.Offset != 0 {
		t.Errorf("limit/offset = %d/%d, want 100/0", resp.Limit, resp.Offset)
	}

	// Most recent activity first across all sources.
	if resp.Sessions[0].ID != "opencode:proj1:ses_001" {
		t.Errorf("sessions[0].id = %v, want opencode:proj1:ses_001", resp.Sessions[0].ID)
	}
	last := resp.Sessions[len(resp.Sessions)-1]
	if last.WorkspaceKey != "global" {
		t.Errorf("untimestamped global chat should sort last, got %v", last.ID)
	}
}

func TestSessionsEndpointFilters(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantFirst string
	}{
		{
			name:      "source filter",
			query:     "?source=claude",
			wantTotal: 2,
			wantFirst: "claude:-Users-testuser-dev-myapp:session-002",
		},
		{
			name:      "workspace filter",
			query:     "?workspace=abc123hash",
			wantTotal: 2,
			wantFirst: "cursor:abc123hash:comp-uuid-002",
		},
		{
			name:      "search matches titles",
			query:     "?search=python",
			wantTotal: 1,
			wantFirst: "cursor:global:global-tab-001",
		},
		{
			name:      "search matches project paths",
			query:     "?search=myapp",
			wantTotal: 2,
			wantFirst: "claude:-Users-testuser-dev-myapp:session-002",
		},
		{
			name:      "project is an exact match",
			query:     "?project=/Users/testuser/dev/myapp",
			wantTotal: 2,
			wantFirst: "claude:-Users-testuser-dev-myapp:session-002",
		},
		{
			name:      "sort by message count",
			query:     "?sort=messages",
			wantTotal: 6,
			wantFirst: "claude:-Users-testuser-dev-myapp:session-001",
		},
		{
			name:      "sort oldest puts untimestamped first",
			query:     "?sort=oldest",
			wantTotal: 6,
			wantFirst: "cursor:global:global-tab-001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, s, "/api/sessions"+tt.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
			}

			var resp sessionsResponse
			decodeBody(t, rec, &resp)
			if resp.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", resp.Total, tt.wantTotal)
			}
			if len(resp.Sessions) == 0 {
				t.Fatal("sessions is empty")
			}
			if resp.Sessions[0].ID != tt.wantFirst {
				t.Errorf("sessions[0].id = %v, want %v", resp.Sessions[0].ID, tt.wantFirst)
			}
		})
	}
}

func TestSessionsEndpointPagination(t *testing.T) {
	s := newTestServer(t)

	rec := doGet(t, s, "/api/sessions?limit=2&offset=1")
	var resp sessionsResponse
	decodeBody(t, rec, &resp)
	if resp.Total != 6 {
		t.Errorf("total = %d, want 6 (pagination must not change total)", resp.Total)
	}
	if len(resp.Sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(resp.Sessions))
	}
	if resp.Sessions[0].ID != "claude:-Users-testuser-dev-myapp:session-002" {
		t.Errorf("sessions[0].id = %v, want the second-newest session", resp.Sessions[0].ID)
	}
	if resp.Limit != 2 || resp.Offset != 1 {
		t.Errorf("limit/offset = %d/%d, want 2/1", resp.Limit, resp.Offset)
	}

	// Offset past the end yields an empty page, not an error.
	rec = doGet(t, s, "/api/sessions?offset=50")
	decodeBody(t, rec, &resp)
	if len(resp.Sessions) != 0 {
		t.Errorf("len(sessions) = %d, want 0", len(resp.Sessions))
	}
	if resp.Total != 6 {
		t.Errorf("total = %d, want 6", resp.Total)
	}

	// Oversized limit clamps instead of failing.
	rec = doGet(t, s, "/api/sessions?limit=5000")
	decodeBody(t, rec, &resp)
	if resp.Limit != 1000 {
		t.Errorf("limit = %d, want clamp to 1000", resp.Limit)
	}
}

func TestSessionsEndpointBadParams(t *testing.T) {
	s := newTestServer(t)

	for _, query := range []string{"?limit=abc", "?offset=1.5", "?limit="} {
		rec := doGet(t, s, "/api/sessions"+query)
		want := http.StatusBadRequest
		if query == "?limit=" {
			// Empty values fall back to the default.
			want = http.StatusOK
		}
		if rec.Code != want {
			t.Errorf("GET /api/sessions%s status = %d, want %d", query, rec.Code, want)
		}
	}
}

func TestSessionEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doGet(t, s, "/api/session/opencode:proj1:ses_001")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var detail internal.SessionDetail
	decodeBody(t, rec, &detail)
	if detail.Session.ID != "opencode:proj1:ses_001" {
		t.Errorf("session.id = %v", detail.Session.ID)
	}
	if len(detail.Messages) != 3 {
		t.Errorf("len(messages) = %d, want 3", len(detail.Messages))
	}
	if detail.Session.MessageCount != len(detail.Messages) {
		t.Errorf("message_count = %d, want %d", detail.Session.MessageCount, len(detail.Messages))
	}
}

func TestSessionEndpointEscapedID(t *testing.T) {
	s := newTestServer(t)

	rec := doGet(t, s, "/api/session/opencode%3Aproj1%3Ases_001")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for percent-escaped ID (body: %s)", rec.Code, rec.Body.String())
	}

	var detail internal.SessionDetail
	decodeBody(t, rec, &detail)
	if detail.Session.ID != "opencode:proj1:ses_001" {
		t.Errorf("session.id = %v", detail.Session.ID)
	}
}

func TestSessionEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"malformed id", "/api/session/garbage", http.StatusBadRequest},
		{"unknown session", "/api/session/cursor:abc123hash:nope", http.StatusNotFound},
		{"unknown source", "/api/session/vim:ws:key", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, s, tt.path)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp errorResponse
			decodeBody(t, rec, &resp)
			if resp.Error == "" {
				t.Error("error body should carry a message")
			}
		})
	}
}

func TestExportEndpointMarkdown(t *testing.T) {
	s := newTestServer(t)

	rec := doGet(t, s, "/api/export/cursor:abc123hash:comp-uuid-001")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %v, want text/markdown", ct)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "attachment") || !strings.Contains(disposition, "Fix auth bug.md") {
		t.Errorf("Content-Disposition = %v", disposition)
	}
	if !strings.Contains(rec.Body.String(), "# Fix auth bug") {
		t.Errorf("body should contain the markdown title, got:\n%s", rec.Body.String())
	}
}

func TestExportEndpointJSON(t *testing.T) {
	s := newTestServer(t)

	rec := doGet(t, s, "/api/export/cursor:abc123hash:comp-uuid-001?format=json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %v, want application/json", ct)
	}

	var detail internal.SessionDetail
	decodeBody(t, rec, &detail)
	if detail.Session.Title != "Fix auth bug" {
		t.Errorf("session.title = %v, want Fix auth bug", detail.Session.Title)
	}
	if len(detail.Messages) == 0 {
		t.Error("messages should not be empty")
	}
}

func TestExportEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	rec := doGet(t, s, "/api/export/cursor:abc123hash:comp-uuid-001?format=xml")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", rec.Code)
	}

	rec = doGet(t, s, "/api/export/cursor:abc123hash:nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Access-Control-Allow-Origin = %v, want *", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
