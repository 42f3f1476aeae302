package cli

import (
	"os"

	"noet_automation/presentation/terminal"

	"github.com/spf13/cobra"
)

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive prompt that dispatches commands locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			term := terminal.NewTerminalInterface(a.dispatcher, a.policy, a.logger, os.Stdin, cmd.OutOrStdout())
			return term.Run(cmd.Context())
		},
	}
}
