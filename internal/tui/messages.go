package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iksnae/aichat-history/internal"
)

// loadSessionsCmd lists sessions through the registry asynchronously.
func loadSessionsCmd(registry *internal.Registry, source string) tea.Cmd {
	return func() tea.Msg {
		sessions, warnings, err := registry.ListSessions(source, "")
		return sessionsLoadedMsg{sessions: sessions, warnings: warnings, err: err}
	}
}

// loadMessagesCmd fetches and renders one session's transcript for the
// right panel.
func loadMessagesCmd(registry *internal.Registry, sess internal.Session, width int) tea.Cmd {
	return func() tea.Msg {
		messages, err := registry.SessionMessages(sess.ID)
		if err != nil {
			return messagesLoadedMsg{sessionID: sess.ID, err: err}
		}
		return messagesLoadedMsg{
			sessionID: sess.ID,
			content:   renderTranscript(sess, messages, width),
		}
	}
}

// renderTranscript renders a conversation for the viewport: a dim header,
// then one role-colored block per message.
func renderTranscript(sess internal.Session, messages []internal.Message, width int) string {
	var b strings.Builder

	header := fmt.Sprintf("%s [%s]", sess.Title, sess.Source)
	if sess.ProjectPath != "" {
		header += " " + sess.ProjectPath
	}
	b.WriteString(styleTranscriptMeta.Render(header))
	b.WriteString("\n\n")

	if len(messages) == 0 {
		b.WriteString(styleTranscriptMeta.Render("(empty session)"))
		b.WriteString("\n")
		return b.String()
	}

	sepWidth := width
	if sepWidth < 1 {
		sepWidth = 40
	}
	separator := styleTranscriptMeta.Render(strings.Repeat("─", sepWidth))

	body := lipgloss.NewStyle().Width(width)
	for i, msg := range messages {
		if i > 0 {
			b.WriteString(separator)
			b.WriteString("\n")
		}

		heading := roleHeading(msg.Role)
		if ts := shortTime(msg.Timestamp); ts != "" {
			heading += " " + styleTranscriptMeta.Render(ts)
		}
		b.WriteString(heading)
		b.WriteString("\n")

		content := msg.Content
		if msg.Role == internal.RoleThinking {
			content = styleRoleThinking.Render(content)
		}
		b.WriteString(body.Render(content))
		b.WriteString("\n\n")
	}

	return b.String()
}

func roleHeading(role string) string {
	label := strings.ToUpper(role)
	if label == "" {
		label = "UNKNOWN"
	}
	return roleStyle(role).Render(label)
}

// shortTime reduces an RFC 3339 timestamp to minute resolution.
func shortTime(value string) string {
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Format("2006-01-02 15:04")
	}
	return value
}
