package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mcoot/dotareg/internal/api/response"
	"github.com/mcoot/dotareg/internal/apiclient"
)

var errImportRejected = errors.New("import rejected")

// newListCmd builds the admin commands for one player list
func newListCmd(use, list, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}

	cmd.AddCommand(newPlayersListCmd(list))
	cmd.AddCommand(newPlayersAddCmd(list))
	cmd.AddCommand(newPlayersUpdateCmd(list))
	cmd.AddCommand(newPlayersRemoveCmd(list))
	cmd.AddCommand(newPlayersClearCmd(list))
	cmd.AddCommand(newPlayersImportCmd(list))

	return cmd
}

func newPlayersListCmd(list string) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List players",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.ListPlayers(cmd.Context(), list, search)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Filter by name or Dota 2 id")

	return cmd
}

func newPlayersAddCmd(list string) *cobra.Command {
	var p apiclient.Player

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a player",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.CreatePlayer(cmd.Context(), list, p)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			return nil
		},
	}

	addPlayerFlags(cmd, &p)

	return cmd
}

func newPlayersUpdateCmd(list string) *cobra.Command {
	var p apiclient.Player

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch apiclient.PlayerPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &p.Name
			}
			if cmd.Flags().Changed("dota2id") {
				patch.Dota2ID = &p.Dota2ID
			}
			if cmd.Flags().Changed("mmr") {
				patch.MMR = &p.MMR
			}
			if cmd.Flags().Changed("notes") {
				patch.Notes = &p.Notes
			}

			result, err := client.UpdatePlayer(cmd.Context(), list, args[0], patch)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			return nil
		},
	}

	addPlayerFlags(cmd, &p)

	return cmd
}

func newPlayersRemoveCmd(list string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.DeletePlayer(cmd.Context(), list, args[0]); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage("Removed " + args[0])
			return nil
		},
	}
}

func newPlayersClearCmd(list string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every player in the list",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}

			n, err := client.ClearPlayers(cmd.Context(), list)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(fmt.Sprintf("Removed %d players", n))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm removal")

	return cmd
}

func newPlayersImportCmd(list string) *cobra.Command {
	var (
		format string
		opts   apiclient.ImportOptions
	)

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Bulk import players from a file or stdin",
		Long: `Bulk import players. The whole batch is rejected if any row fails.

With a file argument the file is uploaded and its extension picks the
format (.csv, .tsv, .txt, .json, .xlsx). Without one the rows are read
from stdin and --format selects the parser (auto-detected when empty).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				result *response.ImportResponse
				err    error
			)
			if len(args) == 1 {
				data, rerr := os.ReadFile(args[0])
				if rerr != nil {
					return rerr
				}
				result, err = client.ImportFile(cmd.Context(), list, filepath.Base(args[0]), data, opts)
			} else {
				data, rerr := io.ReadAll(cmd.InOrStdin())
				if rerr != nil {
					return rerr
				}
				result, err = client.ImportText(cmd.Context(), list, string(data), format, opts)
			}
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			if !result.Success {
				return errImportRejected
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Input format for stdin: tab, csv, json")
	cmd.Flags().BoolVar(&opts.SkipDuplicates, "skip-duplicates", false, "Skip rows matching an existing player")
	cmd.Flags().BoolVar(&opts.UpdateExisting, "update-existing", false, "Update players matching a row")

	return cmd
}
