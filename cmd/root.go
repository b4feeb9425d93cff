package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/aichat-history/internal"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
	cfgFile string
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aichat-history",
	Short: "Browse and export chat history from AI coding assistants",
	Long: `A CLI tool for reading chat history left on disk by AI coding assistants.

aichat-history discovers the session data that Cursor, Claude Code and
OpenCode write locally and presents all of it behind one consistent
interface. Storage is opened read-only; no command ever modifies what the
assistants wrote.

Features:
  • Unified session listing across Cursor, Claude Code and OpenCode
  • Full conversation view with roles, timestamps and tool calls
  • Export in multiple formats (Markdown, JSON, JSONL, YAML)
  • Interactive terminal browser with live filtering
  • Local HTTP API for scripts and frontends

Quick Start:
  aichat-history sources                  # Show which assistants have data
  aichat-history list                     # List sessions from all sources
  aichat-history show <session-id>        # View a conversation
  aichat-history export <session-id>      # Export as Markdown

For detailed usage, see: https://github.com/iksnae/aichat-history`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Config sets the baseline level; flags override it.
		if cfg, err := internal.LoadConfig(cfgFile); err == nil && cfg.LogLevel != "" {
			internal.SetLogLevel(internal.ParseLogLevel(cfg.LogLevel))
		}
		if verbose {
			internal.SetVerbose(true)
		}
		internal.SetQuiet(quiet)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRegistry loads the configuration and builds the provider registry
// shared by every subcommand.
func newRegistry() (*internal.Registry, *internal.Config, error) {
	cfg, err := internal.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return internal.DefaultRegistry(cfg), cfg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.aichat-history.yaml)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
