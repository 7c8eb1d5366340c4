package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newNotifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify <message...>",
		Short: "Post a message to the notification webhook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Notify(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage("Notification sent")
			return nil
		},
	}
}
