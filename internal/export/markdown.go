package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/aichat-history/internal"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export renders the session header followed by one ## section per message,
// separated by horizontal rules.
func (e *MarkdownExporter) Export(detail *internal.SessionDetail, w io.Writer) error {
	session := detail.Session

	_, _ = fmt.Fprintf(w, "# %s\n\n", session.Title)

	if session.ProjectPath != "" {
		_, _ = fmt.Fprintf(w, "**Project:** %s\n", session.ProjectPath)
	}
	_, _ = fmt.Fprintf(w, "**Source:** %s\n", session.Source)
	if session.CreatedAt != "" {
		_, _ = fmt.Fprintf(w, "**Created:** %s\n", session.CreatedAt)
	}
	if session.UpdatedAt != "" {
		_, _ = fmt.Fprintf(w, "**Updated:** %s\n", session.UpdatedAt)
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n---\n\n", session.MessageCount)

	for _, msg := range detail.Messages {
		ts := ""
		if msg.Timestamp != "" {
			ts = fmt.Sprintf(" (%s)", displayTimestamp(msg.Timestamp))
		}
		_, _ = fmt.Fprintf(w, "## %s%s\n\n", roleLabel(msg.Role), ts)
		_, _ = fmt.Fprintf(w, "%s\n\n---\n\n", msg.Content)
	}

	return nil
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}

// ContentType returns the MIME type for this format
func (e *MarkdownExporter) ContentType() string {
	return "text/markdown; charset=utf-8"
}

// roleLabel capitalizes a role for section headings.
func roleLabel(role string) string {
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

// displayTimestamp shortens an RFC 3339 timestamp to minute resolution for
// headings, falling back to the raw value when it does not parse.
func displayTimestamp(value string) string {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Format("2006-01-02 15:04")
	}
	return value
}
