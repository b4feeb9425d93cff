package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorPrimary   = lipgloss.Color("12")  // bright blue
	colorSecondary = lipgloss.Color("10")  // bright green
	colorTertiary  = lipgloss.Color("13")  // bright magenta
	colorDim       = lipgloss.Color("240") // gray
	colorHighlight = lipgloss.Color("11")  // bright yellow
	colorError     = lipgloss.Color("9")   // bright red
	colorBorder    = lipgloss.Color("238") // dark gray

	// Filter input
	styleInput = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	// List items
	styleListSelected = lipgloss.NewStyle().
				Foreground(colorHighlight).
				Bold(true)

	styleListDim = lipgloss.NewStyle().
			Foreground(colorDim)

	styleSourceCursor = lipgloss.NewStyle().
				Foreground(colorPrimary)

	styleSourceClaude = lipgloss.NewStyle().
				Foreground(colorSecondary)

	styleSourceOpenCode = lipgloss.NewStyle().
				Foreground(colorTertiary)

	// Panels
	stylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder)

	styleActiveBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary)

	// Status bar
	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)

	// Transcript roles
	styleRoleUser = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleRoleAssistant = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	styleRoleTool = lipgloss.NewStyle().
			Foreground(colorHighlight)

	styleRoleThinking = lipgloss.NewStyle().
				Foreground(colorDim)

	styleRoleError = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	styleTranscriptMeta = lipgloss.NewStyle().
				Foreground(colorDim)
)

// sourceStyle picks the list color for a source tag.
func sourceStyle(source string) lipgloss.Style {
	switch source {
	case "cursor":
		return styleSourceCursor
	case "claude":
		return styleSourceClaude
	case "opencode":
		return styleSourceOpenCode
	}
	return styleListDim
}

// roleStyle picks the transcript color for a message role.
func roleStyle(role string) lipgloss.Style {
	switch role {
	case "user":
		return styleRoleUser
	case "assistant":
		return styleRoleAssistant
	case "tool":
		return styleRoleTool
	case "thinking":
		return styleRoleThinking
	case "error":
		return styleRoleError
	}
	return styleListDim
}
