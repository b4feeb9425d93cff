package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	cursorLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("12"))

	claudeLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("10"))

	opencodeLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("13"))
)

// sourceStyle returns the accent color used for a source ID across commands.
func sourceStyle(source string) lipgloss.Style {
	switch source {
	case "cursor":
		return cursorLabelStyle
	case "claude":
		return claudeLabelStyle
	case "opencode":
		return opencodeLabelStyle
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	}
}

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show known sources and their availability",
	Long: `Show every chat history source this tool knows about and whether its
storage is present and readable on this machine.

Availability is probed fresh on every run, so installing an assistant or
pointing an AICHAT_*_PATH variable at its data shows up immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _, err := newRegistry()
		if err != nil {
			return err
		}

		fmt.Println(headerStyle.Render("📦 Sources"))
		fmt.Println()

		w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Label")+"\t"+titleStyle.Render("Status")+"\t")
		_, _ = fmt.Fprintln(w, strings.Repeat("─", 50))

		available := 0
		for _, status := range registry.Sources() {
			state := warningStyle.Render("⚠️  not found")
			if status.Available {
				state = successStyle.Render("✅ available")
				available++
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t\n", sourceStyle(status.ID).Render(status.ID), status.Label, state)
		}
		_ = w.Flush()

		fmt.Println()
		if available == 0 {
			fmt.Println(idStyle.Render("💡 Tip: Set AICHAT_CURSOR_PATH, AICHAT_CLAUDE_PATH or AICHAT_OPENCODE_PATH to point at chat storage"))
		} else {
			fmt.Println(idStyle.Render("💡 Tip: Use `aichat-history list --source <id>` to list sessions from one source"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
