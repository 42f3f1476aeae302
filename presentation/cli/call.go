package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"noet_automation/domain/entities"
	"noet_automation/presentation/terminal"

	"github.com/spf13/cobra"
)

func newCallCmd() *cobra.Command {
	var keepTabs bool

	cmd := &cobra.Command{
		Use:   "call <command> [params-json]",
		Short: "Run one command locally and print the response",
		Example: `  noet-host call check_auth
  noet-host call get_article '{"username":"me","key":"n1234"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := terminal.ParseCommand(strings.Join(args, " "))
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if keepTabs {
				a.dispatcher.Dispatch(cmd.Context(), entities.Request{
					ID:      req.ID + "-debug",
					Command: entities.CommandSetDebugMode,
					Params:  json.RawMessage(`{"enabled":true}`),
				})
			}

			resp := a.dispatcher.Dispatch(cmd.Context(), req)
			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if resp.Error != nil {
				return fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepTabs, "keep-tabs", false, "leave the tab open after the command (debug mode)")
	return cmd
}
