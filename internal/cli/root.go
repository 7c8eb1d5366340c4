package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/dotareg/internal/apiclient"
)

var (
	cfg    *Config
	client *apiclient.Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "dotareg",
		Short: "CLI tool for the Dota 2 tournament registration API",
		Long: `dotareg is a CLI tool for administering tournament registration.

It covers the admin API: registration sessions, the registrations list,
the masterlist, bulk imports and webhook notifications.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Fall back to the stored session when no token was given
			if err := cfg.LoadToken(wallClock.Now()); err != nil {
				return err
			}

			opts := []apiclient.Option{apiclient.WithToken(cfg.Token)}
			if cfg.Verbose {
				logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
				opts = append(opts, apiclient.WithLogger(logger))
			}
			client = apiclient.New(cfg.ServerURL, opts...)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: DOTAREG_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Session id (env: DOTAREG_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Token file path (env: DOTAREG_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Log API requests to stderr")

	// Add subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newListCmd("players", apiclient.ListPlayers, "Manage the registrations list"))
	rootCmd.AddCommand(newListCmd("masterlist", apiclient.ListMasterlist, "Manage the masterlist"))
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newNotifyCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
