// Package cli is the noet-host command line: serve, call and console.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "noet-host",
		Short:         "Browser automation host for note.com",
		Long:          "noet-host drives a logged-in browser session on note.com and answers commands from the noet CLI.",
		Version:       Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("NOET_CONFIG", configPath)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/noet/config.yaml)")

	root.AddCommand(newServeCmd(), newCallCmd(), newConsoleCmd())
	return root
}

// Execute runs the command line
func Execute() error {
	return NewRootCmd().Execute()
}
