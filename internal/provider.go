package internal

// Provider is the capability contract every format backend satisfies. All
// backends are read projections over third-party files: nothing here may
// mutate a source store, and per-record failures degrade to warnings rather
// than errors (see errors.go for the taxonomy).
type Provider interface {
	// Source returns the backend's tag from the closed source enumeration.
	Source() string

	// Label returns the human-readable name of the originating tool.
	Label() string

	// Available reports whether the resolved base path exists and holds a
	// minimally valid structure for this format. It never panics or errors;
	// any probing failure maps to false. Callers re-probe per request, the
	// result is never cached.
	Available() bool

	// ListWorkspaces enumerates discoverable workspaces. Partially
	// unreadable entries are skipped and noted in the returned warnings;
	// the error return is reserved for total failures (store unreadable).
	ListWorkspaces() ([]Workspace, []string, error)

	// ListSessions lists sessions across the source, scoped to a single
	// workspace when workspaceID is non-empty. Order is most recent
	// activity first with composed-ID tie-break, independent of workspace
	// discovery order.
	ListSessions(workspaceID string) ([]Session, []string, error)

	// SessionMessages returns the full ordered message sequence for a
	// composed session ID. An identifier that does not resolve under this
	// backend fails with a NotFoundError.
	SessionMessages(sessionID string) ([]Message, error)
}
