package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iksnae/aichat-history/internal"
	"github.com/iksnae/aichat-history/internal/export"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type sourcesResponse struct {
	Sources []internal.SourceStatus `json:"sources"`
}

type workspacesResponse struct {
	Workspaces []internal.Workspace `json:"workspaces"`
	Warnings   []string             `json:"warnings"`
}

type sessionsResponse struct {
	Sessions []internal.Session `json:"sessions"`
	Total    int                `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
	Warnings []string           `json:"warnings"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: s.version})
}

// handleSources handles GET /api/sources. Availability is probed per request.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: s.registry.Sources()})
}

// handleWorkspaces handles GET /api/workspaces.
func (s *Server) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, warnings, err := s.registry.ListWorkspaces(r.URL.Query().Get("source"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, workspacesResponse{
		Workspaces: workspaces,
		Warnings:   nonNil(warnings),
	})
}

// handleSessions handles GET /api/sessions with filtering, sorting and
// pagination.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q, "limit", defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(q, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	sessions, warnings, err := s.registry.ListSessions(q.Get("source"), q.Get("workspace"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sessions = filterSessions(sessions, q.Get("search"), q.Get("project"))
	sortSessions(sessions, q.Get("sort"))

	total := len(sessions)
	writeJSON(w, http.StatusOK, sessionsResponse{
		Sessions: paginate(sessions, offset, limit),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		Warnings: nonNil(warnings),
	})
}

// handleSession handles GET /api/session/{id}.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)

	detail, err := s.registry.SessionDetail(id)
	if err != nil {
		writeSessionError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleExport handles GET /api/export/{id}?format=. The response body is the
// rendered document, served as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "md"
	}
	exporter, err := export.NewExporter(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := s.registry.SessionDetail(id)
	if err != nil {
		writeSessionError(w, id, err)
		return
	}

	filename := export.SafeFilename(detail.Session.Title, exporter.Extension())
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if err := exporter.Export(detail, w); err != nil {
		internal.LogError("export %s as %s: %v", id, format, err)
	}
}

// sessionIDParam extracts the composed session ID from the URL, undoing one
// level of percent-encoding so clients may escape the colons.
func sessionIDParam(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

// writeSessionError maps registry lookup failures onto HTTP statuses:
// malformed ID 400, unknown session 404, anything else 500.
func writeSessionError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, internal.ErrBadSessionID):
		writeError(w, http.StatusBadRequest, err.Error())
	case internal.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		internal.LogError("load session %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
	}
}

// filterSessions applies the search and project query filters. Search matches
// title or project path case-insensitively; project is an exact match.
func filterSessions(sessions []internal.Session, search, project string) []internal.Session {
	if search == "" && project == "" {
		return sessions
	}
	needle := strings.ToLower(search)
	filtered := make([]internal.Session, 0, len(sessions))
	for _, sess := range sessions {
		if search != "" &&
			!strings.Contains(strings.ToLower(sess.Title), needle) &&
			!strings.Contains(strings.ToLower(sess.ProjectPath), needle) {
			continue
		}
		if project != "" && sess.ProjectPath != project {
			continue
		}
		filtered = append(filtered, sess)
	}
	return filtered
}

// sortSessions reorders in place. The registry already returns newest-first,
// so that mode is a no-op; unrecognized modes keep the incoming order.
func sortSessions(sessions []internal.Session, mode string) {
	switch mode {
	case "oldest":
		sort.SliceStable(sessions, func(i, j int) bool {
			a, b := sessions[i].LastActivity(), sessions[j].LastActivity()
			if a != b {
				return a < b
			}
			return sessions[i].ID < sessions[j].ID
		})
	case "messages":
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].MessageCount > sessions[j].MessageCount
		})
	case "project":
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].ProjectPath < sessions[j].ProjectPath
		})
	}
}

func paginate(sessions []internal.Session, offset, limit int) []internal.Session {
	if offset >= len(sessions) {
		return []internal.Session{}
	}
	end := offset + limit
	if end > len(sessions) {
		end = len(sessions)
	}
	return sessions[offset:end]
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

func nonNil(warnings []string) []string {
	if warnings == nil {
		return []string{}
	}
	return warnings
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		internal.LogError("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
