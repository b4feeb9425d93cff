package internal

import (
	"fmt"
	"sync"
)

// SourceStatus describes one registered backend for discovery surfaces
// (the sources command, the /api/sources route).
type SourceStatus struct {
	ID        string `json:"id" yaml:"id"`
	Label     string `json:"label" yaml:"label"`
	Available bool   `json:"available" yaml:"available"`
}

// Registry aggregates the format backends behind one query surface. It holds
// no state beyond the backend set: availability is re-probed on every call,
// never cached, because the monitored tools can appear or vanish between
// requests.
type Registry struct {
	providers []Provider
}

// NewRegistry builds a registry over an explicit backend set.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// DefaultRegistry wires up all three backends from the environment and
// config.
func DefaultRegistry(cfg *Config) *Registry {
	return NewRegistry(
		NewCursorProvider(cfg),
		NewClaudeProvider(cfg),
		NewOpenCodeProvider(cfg),
	)
}

// Sources reports every registered backend with its current availability.
func (r *Registry) Sources() []SourceStatus {
	statuses := make([]SourceStatus, 0, len(r.providers))
	for _, p := range r.providers {
		statuses = append(statuses, SourceStatus{
			ID:        p.Source(),
			Label:     p.Label(),
			Available: p.Available(),
		})
	}
	return statuses
}

// provider returns the backend owning a source tag, nil when unknown.
func (r *Registry) provider(source string) Provider {
	for _, p := range r.providers {
		if p.Source() == source {
			return p
		}
	}
	return nil
}

// selectAvailable returns the backends to fan out to: all available ones, or
// just the named source when non-empty. An unknown or unavailable named
// source yields an empty set plus a warning.
func (r *Registry) selectAvailable(source string) ([]Provider, []string) {
	if source != "" {
		p := r.provider(source)
		if p == nil {
			return nil, []string{fmt.Sprintf("unknown source %q", source)}
		}
		if !p.Available() {
			return nil, []string{fmt.Sprintf("source %q is not available", source)}
		}
		return []Provider{p}, nil
	}

	var selected []Provider
	for _, p := range r.providers {
		if p.Available() {
			selected = append(selected, p)
		}
	}
	return selected, nil
}

// ListWorkspaces fans a workspace listing out to every available backend
// (or the one named source) and merges the results. A backend failure
// contributes nothing but a warning.
func (r *Registry) ListWorkspaces(source string) ([]Workspace, []string, error) {
	selected, warnings := r.selectAvailable(source)
	workspaces := []Workspace{}

	results := fanOut(selected, func(p Provider) ([]Workspace, []string, error) {
		return p.ListWorkspaces()
	})
	for _, res := range results {
		warnings = append(warnings, res.warnings...)
		workspaces = append(workspaces, res.values...)
	}

	return workspaces, warnings, nil
}

// ListSessions fans a session listing out to every available backend (or the
// one named source), optionally scoped to a workspace key, and merges into
// one sequence ordered by most recent activity with composed-ID tie-break.
func (r *Registry) ListSessions(source, workspaceID string) ([]Session, []string, error) {
	selected, warnings := r.selectAvailable(source)
	sessions := []Session{}

	results := fanOut(selected, func(p Provider) ([]Session, []string, error) {
		return p.ListSessions(workspaceID)
	})
	for _, res := range results {
		warnings = append(warnings, res.warnings...)
		sessions = append(sessions, res.values...)
	}

	SortSessionsByActivity(sessions)
	return sessions, warnings, nil
}

// SessionMessages parses the composed identifier's source segment and
// dispatches to exactly that backend; no other source is scanned.
func (r *Registry) SessionMessages(sessionID string) ([]Message, error) {
	source, _, _, err := ParseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	p := r.provider(source)
	if p == nil || !p.Available() {
		return nil, &NotFoundError{SessionID: sessionID}
	}
	return p.SessionMessages(sessionID)
}

// FindSession resolves a composed identifier to its session metadata by
// listing the owning backend's sessions.
func (r *Registry) FindSession(sessionID string) (*Session, error) {
	source, workspaceKey, _, err := ParseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	p := r.provider(source)
	if p == nil || !p.Available() {
		return nil, &NotFoundError{SessionID: sessionID}
	}

	sessions, _, err := p.ListSessions(workspaceKey)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == sessionID {
			return &sessions[i], nil
		}
	}
	return nil, &NotFoundError{SessionID: sessionID}
}

// SessionDetail couples FindSession with SessionMessages for the export and
// detail surfaces.
func (r *Registry) SessionDetail(sessionID string) (*SessionDetail, error) {
	session, err := r.FindSession(sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := r.SessionMessages(sessionID)
	if err != nil {
		return nil, err
	}
	detail := &SessionDetail{Session: *session, Messages: messages}
	detail.Session.MessageCount = len(messages)
	return detail, nil
}

// fanOutResult carries one backend's contribution to a merged listing.
type fanOutResult[T any] struct {
	values   []T
	warnings []string
}

// fanOut invokes fn once per backend, concurrently. Backends share no mutable
// state, so each goroutine only touches its own slot. A backend error or
// panic degrades to a warning so siblings still contribute.
func fanOut[T any](selected []Provider, fn func(Provider) ([]T, []string, error)) []fanOutResult[T] {
	results := make([]fanOutResult[T], len(selected))

	var wg sync.WaitGroup
	for i, p := range selected {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					LogError("provider %s panicked: %v", p.Source(), rec)
					results[i] = fanOutResult[T]{warnings: []string{fmt.Sprintf("%s: internal error", p.Source())}}
				}
			}()

			values, warnings, err := fn(p)
			if err != nil {
				LogWarn("provider %s failed: %v", p.Source(), err)
				results[i] = fanOutResult[T]{warnings: append(warnings, fmt.Sprintf("%s: %v", p.Source(), err))}
				return
			}
			results[i] = fanOutResult[T]{values: values, warnings: warnings}
		}(i, p)
	}
	wg.Wait()

	return results
}
