package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/iksnae/aichat-history/internal"
)

// linesPerItem is the number of terminal lines each session occupies.
const linesPerItem = 2

// sourceColWidth fits the longest source tag ("opencode").
const sourceColWidth = 8

// renderList renders the left panel: the filtered session list with
// scrolling.
func (m model) renderList(width, height int) string {
	if len(m.visible) == 0 {
		label := "No sessions"
		if m.filter != "" {
			label = "No matches"
		}
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(label)
	}

	var lines []string
	for i, sess := range m.visible {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatSessionLine(sess, width, i == m.cursor)...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}

	return strings.Join(lines, "\n")
}

// formatSessionLine formats one session as two lines:
//
//	line 1: [>] source MM-DD title
//	line 2:     project path (dimmed)
func formatSessionLine(sess internal.Session, width int, selected bool) []string {
	src := sourceStyle(sess.Source).Render(padColumn(sess.Source, sourceColWidth))

	date := sess.LastActivity()
	if len(date) >= 10 {
		date = date[5:10] // MM-DD
	} else {
		date = "     "
	}

	title := strings.ReplaceAll(sess.Title, "\n", " ")
	titleMax := width - 2 - sourceColWidth - len(date) - 2
	if titleMax < 0 {
		titleMax = 0
	}
	if runewidth.StringWidth(title) > titleMax {
		title = runewidth.Truncate(title, titleMax, "")
	}

	line1 := src + " " + date + " " + title
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	project := sess.ProjectPath
	projectMax := width - 4
	if projectMax < 0 {
		projectMax = 0
	}
	if runewidth.StringWidth(project) > projectMax {
		project = runewidth.Truncate(project, projectMax, "")
	}
	line2 := "    " + styleListDim.Render(project)

	return []string{line1, line2}
}

func padColumn(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// matchesFilter reports whether a session survives the live filter: a
// case-insensitive substring match on title or project path.
func matchesFilter(sess internal.Session, filter string) bool {
	if filter == "" {
		return true
	}
	needle := strings.ToLower(filter)
	return strings.Contains(strings.ToLower(sess.Title), needle) ||
		strings.Contains(strings.ToLower(sess.ProjectPath), needle)
}

// adjustListScroll keeps the cursor visible within the list panel.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
