package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "panelbridge",
	Short: "Bridge an editor panel to local and hosted chat models",
	Long: `panelbridge relays chat requests from an editor panel UI to one of
three providers: a local Ollama server, the hosted Gemini API, or the
editor host's own model bridge.

Examples:
  panelbridge serve                 # start the panel WebSocket server
  panelbridge serve --debug         # with request tracing
  panelbridge models                # list selectable models`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

var debugFlag bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Emit debug logs to stderr")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
