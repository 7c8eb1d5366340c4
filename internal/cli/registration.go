package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/dotareg/internal/apiclient"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the public registration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var p apiclient.Player

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Submit a public registration",
		Long: `Submit a registration the same way the public sign-up form does.

The active registration session must be open.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.Register(cmd.Context(), p)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			return nil
		},
	}

	addPlayerFlags(cmd, &p)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("dota2id")
	_ = cmd.MarkFlagRequired("mmr")

	return cmd
}

func addPlayerFlags(cmd *cobra.Command, p *apiclient.Player) {
	cmd.Flags().StringVar(&p.Name, "name", "", "Player name")
	cmd.Flags().StringVar(&p.Dota2ID, "dota2id", "", "Dota 2 account id")
	cmd.Flags().StringVar(&p.MMR, "mmr", "", "Peak MMR")
	cmd.Flags().StringVar(&p.Notes, "notes", "", "Free-form notes")
}
