package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/aichat-history/internal"
	"github.com/spf13/cobra"
)

var (
	listSource    string
	listWorkspace string
	listSearch    string
	listLimit     int
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	workspaceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions across all sources",
	Long: `List chat sessions from every available source, newest first.

Use --source to restrict the listing to one assistant and --workspace to
narrow it to a single workspace key. Sources that are not installed are
skipped silently; corrupt records are skipped with a warning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _, err := newRegistry()
		if err != nil {
			return err
		}

		sessions, warnings, err := registry.ListSessions(listSource, listWorkspace)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		for _, warning := range warnings {
			internal.PrintWarning(warning)
		}

		if listSearch != "" {
			needle := strings.ToLower(listSearch)
			filtered := make([]internal.Session, 0, len(sessions))
			for _, session := range sessions {
				if strings.Contains(strings.ToLower(session.Title), needle) ||
					strings.Contains(strings.ToLower(session.ProjectPath), needle) {
					filtered = append(filtered, session)
				}
			}
			sessions = filtered
		}

		total := len(sessions)
		if listLimit > 0 && listLimit < len(sessions) {
			sessions = sessions[:listLimit]
		}

		displaySessions(sessions, total)
		return nil
	},
}

func displaySessions(sessions []internal.Session, total int) {
	if len(sessions) == 0 {
		fmt.Println(headerStyle.Render("📋 No sessions found"))
		return
	}

	header := fmt.Sprintf("📋 Found %d session(s)", total)
	if len(sessions) < total {
		header = fmt.Sprintf("📋 Showing %d of %d session(s)", len(sessions), total)
	}
	fmt.Println(headerStyle.Render(header))
	fmt.Println()

	// Use tabwriter for aligned columns with better spacing
	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignRight)

	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Source")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Updated")+"\t"+titleStyle.Render("Project")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 120))

	for _, session := range sessions {
		title := session.Title
		if title == "" {
			title = "Untitled"
		}
		// Truncate long titles but keep them readable
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		name := lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(title)

		source := sourceStyle(session.Source).Render(session.Source)
		msgCount := countStyle.Render(strconv.Itoa(session.MessageCount))
		updated := dateStyle.Render(humanizeDate(session.LastActivity()))

		project := dateStyle.Render("—")
		if session.ProjectPath != "" {
			// Show just the folder name if it's a full path
			projectPath := session.ProjectPath
			if strings.Contains(projectPath, "/") {
				parts := strings.Split(projectPath, "/")
				projectPath = parts[len(parts)-1]
			}
			if len(projectPath) > 25 {
				projectPath = projectPath[:22] + "..."
			}
			project = workspaceStyle.Render(projectPath)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", idStyle.Render(session.ID), source, name, msgCount, updated, project)
	}

	_ = w.Flush()
	fmt.Println()
	fmt.Println(idStyle.Render("💡 Tip: Use the full ID (e.g., ") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(sessions[0].ID) +
		idStyle.Render(") with `aichat-history show <id>`"))
}

// humanizeDate renders an RFC3339 timestamp relative to now, the way the
// session tables display activity.
func humanizeDate(ts string) string {
	if ts == "" {
		return "—"
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		if len(ts) >= 10 {
			return ts[:10]
		}
		return ts
	}
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listSource, "source", "s", "", "Only list sessions from this source (cursor, claude, opencode)")
	listCmd.Flags().StringVarP(&listWorkspace, "workspace", "w", "", "Only list sessions from this workspace key")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Filter by substring of title or project path")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Limit the number of sessions shown (0 = all)")
}
