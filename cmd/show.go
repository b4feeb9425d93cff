package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/aichat-history/internal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	showLimit int
	showSince string
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show messages for a specific session",
	Long: `Display the full conversation of a chat session.

The session ID is the composed form printed by 'aichat-history list',
for example cursor:abc123:composer-uuid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]

		registry, _, err := newRegistry()
		if err != nil {
			return err
		}

		detail, err := registry.SessionDetail(sessionID)
		if err != nil {
			if internal.IsNotFound(err) {
				return fmt.Errorf("session not found: %s (use 'aichat-history list' to see available sessions)", sessionID)
			}
			return err
		}

		displaySessionHeader(&detail.Session, len(detail.Messages))

		messagesToShow := detail.Messages

		// Filter by timestamp if --since is provided
		if showSince != "" {
			sinceTime, err := time.Parse(time.RFC3339, showSince)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
			filtered := make([]internal.Message, 0, len(messagesToShow))
			for _, msg := range messagesToShow {
				if msg.Timestamp == "" {
					continue
				}
				if msgTime, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
					if !msgTime.Before(sinceTime) {
						filtered = append(filtered, msg)
					}
				}
			}
			messagesToShow = filtered
		}

		// Apply limit if specified
		totalFiltered := len(messagesToShow)
		if showLimit > 0 && showLimit < len(messagesToShow) {
			messagesToShow = messagesToShow[:showLimit]
		}

		width := contentWidth()
		for i, msg := range messagesToShow {
			displayMessage(i+1, msg, totalFiltered, width)
		}

		// Show remaining count if limit was applied
		if showLimit > 0 && showLimit < totalFiltered {
			remaining := totalFiltered - showLimit
			fmt.Println()
			fmt.Println(lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Render(fmt.Sprintf("... (%d more message(s))", remaining)))
		}

		return nil
	},
}

// contentWidth picks a wrap width from the terminal, falling back to 80
// when stdout is not a TTY.
func contentWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return w - 4
	}
	return 80
}

func displaySessionHeader(session *internal.Session, messageCount int) {
	if session == nil {
		return
	}
	title := session.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Println(sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", title)))

	// Create metadata line
	metaParts := []string{fmt.Sprintf("Source: %s", session.Source)}
	if session.CreatedAt != "" {
		metaParts = append(metaParts, fmt.Sprintf("Created: %s", session.CreatedAt))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", messageCount))
	if session.ProjectPath != "" {
		metaParts = append(metaParts, fmt.Sprintf("Project: %s", session.ProjectPath))
	}

	fmt.Println(sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Println()
}

func displayMessage(index int, msg internal.Message, total, width int) {
	var roleItem lipgloss.Style
	var roleLabel string

	switch msg.Role {
	case internal.RoleUser:
		roleItem = userMessageStyle
		roleLabel = "👤 User"
	case internal.RoleAssistant:
		roleItem = assistantMessageStyle
		roleLabel = "🤖 Assistant"
	case internal.RoleThinking:
		roleItem = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true).Padding(0, 1)
		roleLabel = "💭 Thinking"
	case internal.RoleError:
		roleItem = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).Padding(0, 1)
		roleLabel = "❗ Error"
	default:
		roleItem = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Padding(0, 1)
		roleLabel = fmt.Sprintf("🔧 %s", msg.Role)
	}

	// Message header
	header := roleItem.Render(roleLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if msg.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
			header += " " + timestampStyle.Render(t.Format("15:04:05"))
		} else {
			header += " " + timestampStyle.Render(msg.Timestamp)
		}
	}

	fmt.Println(header)

	// Message content
	content := strings.TrimSpace(msg.Content)
	if content != "" {
		content = wrapText(content, width)
		fmt.Println(messageContentStyle.Render(content))
	} else {
		fmt.Println(messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}

	fmt.Println()
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		// Wrap long lines
		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().StringVar(&showSince, "since", "", "Show messages since timestamp (ISO8601)")
}
