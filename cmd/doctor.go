package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/aichat-history/internal"
	"github.com/spf13/cobra"
)

var doctorVerbose bool

var (
	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	warningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("62")).
		Bold(true).
		Underline(true)
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether chat history sources can be located and read",
	Long: `Check the health of aichat-history by verifying:
  • Configuration file loading
  • Storage path resolution for every source
  • Source availability on this machine
  • Session data accessibility and counts

This command is useful for debugging path issues, especially when pointing
AICHAT_*_PATH variables at non-standard locations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(sectionStyle.Render("🔍 AI Chat History Health Check"))
		fmt.Println()

		// Step 1: Load configuration
		fmt.Println(infoStyle.Render("Step 1: Loading configuration..."))
		cfg, err := internal.LoadConfig(cfgFile)
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to load config:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Println(successStyle.Render("✅ Configuration loaded"))
		if doctorVerbose {
			path := cfgFile
			if path == "" {
				path = internal.DefaultConfigPath()
			}
			fmt.Printf("   Config file: %s\n", path)
		}
		fmt.Println()

		// Step 2..n: Check each source
		registry := internal.DefaultRegistry(cfg)
		statuses := registry.Sources()
		available := 0
		totalSessions := 0

		for i, status := range statuses {
			fmt.Println(infoStyle.Render(fmt.Sprintf("Step %d: Checking %s...", i+2, status.Label)))

			path, pathErr := internal.ResolvePath(status.ID, cfg)
			if pathErr != nil {
				fmt.Println(warningStyle.Render("⚠️  No storage path for this platform"))
				if doctorVerbose {
					fmt.Printf("   %v\n", pathErr)
				}
				fmt.Println()
				continue
			}

			if !status.Available {
				fmt.Println(warningStyle.Render("⚠️  Storage not found"))
				if doctorVerbose {
					fmt.Printf("   Expected: %s\n", path)
				}
				fmt.Println()
				continue
			}

			available++
			fmt.Println(successStyle.Render("✅ Storage found"))
			if doctorVerbose {
				fmt.Printf("   Path: %s\n", path)
			}

			sessions, warnings, err := registry.ListSessions(status.ID, "")
			if err != nil {
				fmt.Println(errorStyle.Render("❌ Failed to list sessions:"), err)
				fmt.Println()
				continue
			}
			totalSessions += len(sessions)

			if len(sessions) > 0 {
				fmt.Println(successStyle.Render(fmt.Sprintf("✅ Found %d session(s)", len(sessions))))
				if doctorVerbose {
					for i, session := range sessions {
						if i >= 5 { // Show first 5
							fmt.Printf("   ... and %d more\n", len(sessions)-5)
							break
						}
						title := session.Title
						if title == "" {
							title = "Untitled"
						}
						fmt.Printf("   [%d] %s (ID: %s)\n", i+1, title, session.ID)
					}
				}
			} else {
				fmt.Println(warningStyle.Render("⚠️  Storage exists but contains no sessions"))
			}

			if len(warnings) > 0 {
				fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  %d record(s) skipped", len(warnings))))
				if doctorVerbose {
					for i, warning := range warnings {
						if i >= 5 {
							fmt.Printf("   ... and %d more\n", len(warnings)-5)
							break
						}
						fmt.Printf("   [%d] %s\n", i+1, warning)
					}
				}
			}
			fmt.Println()
		}

		// Summary
		fmt.Println(sectionStyle.Render("📊 Summary"))
		fmt.Println()

		switch {
		case available > 0 && totalSessions > 0:
			fmt.Println(successStyle.Render("✅ Health check passed!"))
			fmt.Println(successStyle.Render(fmt.Sprintf("   • Sources: %d of %d available", available, len(statuses))))
			fmt.Println(successStyle.Render(fmt.Sprintf("   • Sessions: %d found", totalSessions)))
			return nil
		case available > 0:
			fmt.Println(warningStyle.Render("⚠️  Sources available but no sessions found"))
			fmt.Println("   • Storage paths resolve and are readable")
			fmt.Println("   • No chat sessions have been recorded yet")
			return nil
		default:
			fmt.Println(errorStyle.Render("❌ Health check failed"))
			fmt.Println("   • No source has readable storage on this machine")
			fmt.Println("   • Install one of the assistants, or set AICHAT_CURSOR_PATH,")
			fmt.Println("     AICHAT_CLAUDE_PATH or AICHAT_OPENCODE_PATH to point at its data")
			return fmt.Errorf("health check failed: no sources available")
		}
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVarP(&doctorVerbose, "verbose", "v", false, "Show detailed diagnostic information")
}
