package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as an admin and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("DOTAREG_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("--username and --password (or DOTAREG_PASSWORD) are required")
			}

			result, err := client.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			if err := cfg.SaveSession(result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(*result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password (env: DOTAREG_PASSWORD)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored admin session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return errors.New("not logged in")
			}

			if err := client.Logout(cmd.Context()); err != nil {
				return err
			}

			if err := cfg.ClearToken(); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the admin behind the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.Session(cmd.Context())
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			return nil
		},
	}
}
