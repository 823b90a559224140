package commands

import (
	"fmt"
	"strconv"

	"stravatools/cmd/stravatools/globals"

	"github.com/spf13/cobra"
)

const DefaultLoadCount = 20

func newLoadCmd() *cobra.Command {
	var next, all bool

	cmd := &cobra.Command{
		Use:   "load [num] [--next | --all]",
		Short: "Load activities from the following feed.",
		Long: "Loads activities from the following feed, newest first.\n" +
			"  load [num]   loads the latest num activities (default 20)\n" +
			"  load --next  loads the page after the last loaded one\n" +
			"  load --all   loads pages until one brings nothing new",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := globals.Get(cmd.Context())

			count := DefaultLoadCount
			if len(args) == 1 {
				var err error
				count, err = strconv.Atoi(args[0])
				if err != nil || count <= 0 {
					return fmt.Errorf("invalid number of activities %q", args[0])
				}
			}

			var merged int
			var err error
			switch {
			case all:
				merged, err = value.Session.LoadAll(cmd.Context())
			case next:
				merged, err = value.Session.LoadNextPage(cmd.Context())
			default:
				merged, err = value.Session.LoadFirstPage(cmd.Context(), count)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d activities\n", merged)
			return nil
		},
	}

	cmd.Flags().BoolVar(&next, "next", false, "Load the next page.")
	cmd.Flags().BoolVar(&all, "all", false, "Load every page.")
	cmd.MarkFlagsMutuallyExclusive("next", "all")
	return cmd
}

func newLoadPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-page <file>",
		Short: "Load the activities of a feed page saved to disk.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := globals.Get(cmd.Context())
			merged, err := value.Session.LoadPageFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d activities\n", merged)
			return nil
		},
	}
}
