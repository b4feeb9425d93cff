package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/aichat-history/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var browseSource string

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse sessions in an interactive terminal UI",
	Long: `Open an interactive two-panel browser over all available sessions.

Keys:
  up/k, down/j    Move through the session list
  enter           Load the selected conversation
  /               Filter sessions by title or project
  ctrl+u, ctrl+d  Scroll the conversation
  r               Reload sessions from disk
  q               Quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("browse requires an interactive terminal")
		}

		registry, _, err := newRegistry()
		if err != nil {
			return err
		}
		return tui.Run(registry, browseSource)
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().StringVarP(&browseSource, "source", "s", "", "Only browse sessions from this source (cursor, claude, opencode)")
}
