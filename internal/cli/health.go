package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

const healthPollInterval = 500 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  "Check server health. With --wait, retry until the server answers or the wait runs out.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if wait > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, wait)
				defer cancel()
			}

			for {
				result, err := client.Health(ctx)
				if err == nil {
					NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
					return nil
				}
				if wait <= 0 {
					return err
				}
				select {
				case <-ctx.Done():
					return err
				case <-time.After(healthPollInterval):
				}
			}
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying for up to this long")
	return cmd
}
