package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadSessionID reports an identifier that does not follow the
// source:workspace:session shape. Lookup misses for well-formed identifiers
// are NotFoundError instead.
var ErrBadSessionID = errors.New("malformed session id")

// Composed session identifiers are `{source}:{workspace-key}:{session-key}`.
// Segments never contain the delimiter: keys are percent-escaped before
// composing, so the triple round-trips through ParseSessionID and the
// registry can dispatch on the source segment without scanning other sources.

func escapeIDSegment(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, ":", "%3A")
}

func unescapeIDSegment(s string) string {
	s = strings.ReplaceAll(s, "%3A", ":")
	return strings.ReplaceAll(s, "%25", "%")
}

// ComposeSessionID builds the globally unique identifier for a session.
func ComposeSessionID(source, workspaceKey, sessionKey string) string {
	return source + ":" + escapeIDSegment(workspaceKey) + ":" + escapeIDSegment(sessionKey)
}

// ParseSessionID splits a composed identifier back into its three segments,
// undoing segment escaping. The source segment is returned as-is; whether it
// names a registered backend is the registry's concern.
func ParseSessionID(id string) (source, workspaceKey, sessionKey string, err error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrBadSessionID, id)
	}
	return parts[0], unescapeIDSegment(parts[1]), unescapeIDSegment(parts[2]), nil
}
