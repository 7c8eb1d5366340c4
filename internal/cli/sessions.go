package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/dotareg/internal/api/request"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage registration sessions",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsCreateCmd())
	cmd.AddCommand(newSessionsActivateCmd())
	cmd.AddCommand(newSessionsCloseCmd())
	cmd.AddCommand(newSessionsReopenCmd())

	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registration sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.ListSessions(cmd.Context())
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a registration session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			return nil
		},
	}
}

// windowFlags are the schedule flags shared by create and reopen
type windowFlags struct {
	start      string
	expiry     string
	maxPlayers int
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", `When registration opens ("now", "+2h", or a date)`)
	cmd.Flags().StringVar(&f.expiry, "expiry", "", `When registration closes ("+48h", or a date)`)
	cmd.Flags().IntVar(&f.maxPlayers, "max-players", 0, "Player cap (0 for none)")
}

func (f *windowFlags) parse(cmd *cobra.Command) (start, expiry *time.Time, maxPlayers *int, err error) {
	if start, err = parseWhen(f.start); err != nil {
		return nil, nil, nil, err
	}
	if expiry, err = parseWhen(f.expiry); err != nil {
		return nil, nil, nil, err
	}
	if cmd.Flags().Changed("max-players") {
		maxPlayers = &f.maxPlayers
	}
	return start, expiry, maxPlayers, nil
}

func newSessionsCreateCmd() *cobra.Command {
	var (
		title    string
		activate bool
		window   windowFlags
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a registration session",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, expiry, maxPlayers, err := window.parse(cmd)
			if err != nil {
				return err
			}

			result, err := client.CreateSession(cmd.Context(), request.CreateSessionRequest{
				Title:      title,
				StartTime:  start,
				Expiry:     expiry,
				MaxPlayers: maxPlayers,
				Activate:   activate,
			})
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Session title")
	cmd.Flags().BoolVar(&activate, "activate", false, "Make this the active session")
	window.register(cmd)

	return cmd
}

func newSessionsActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Make a session the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.ActivateSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			return nil
		},
	}
}

func newSessionsCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Close registration for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.CloseSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			return nil
		},
	}
}

func newSessionsReopenCmd() *cobra.Command {
	var window windowFlags

	cmd := &cobra.Command{
		Use:   "reopen <id>",
		Short: "Reopen a closed session",
		Long:  "Reopen a closed session. The expiry must be in the future.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, expiry, maxPlayers, err := window.parse(cmd)
			if err != nil {
				return err
			}

			result, err := client.ReopenSession(cmd.Context(), args[0], request.ReopenSessionRequest{
				StartTime:  start,
				Expiry:     expiry,
				MaxPlayers: maxPlayers,
			})
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			return nil
		},
	}

	window.register(cmd)

	return cmd
}
