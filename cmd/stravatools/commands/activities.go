package commands

import (
	"fmt"

	"stravatools/cmd/stravatools/globals"
	"stravatools/cmd/stravatools/utils"
	"stravatools/lib/platforms/strava/feed"

	"github.com/spf13/cobra"
)

const DefaultSimilarity = 0.85

type selectFlags struct {
	athlete   string
	title     string
	noKudo    bool
	kudo      bool
	similar   string
	threshold float64
	load      int
}

func (f *selectFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.athlete, "athlete", "a", "", "Athlete name pattern, a leading '-' negates it.")
	flags.StringVarP(&f.title, "title", "t", "", "Title pattern, a leading '-' negates it.")
	flags.BoolVarP(&f.noKudo, "no-kudo", "k", false, "Only activities you have not given a kudo yet.")
	flags.BoolVarP(&f.kudo, "kudo", "K", false, "Only activities you have already given a kudo.")
	flags.StringVar(&f.similar, "similar", "", "Athlete name matched approximately.")
	flags.Float64Var(&f.threshold, "threshold", DefaultSimilarity, "Minimum similarity (0 to 1) for --similar.")
	flags.IntVar(&f.load, "load", 0, "Load the latest n activities first.")
	cmd.MarkFlagsMutuallyExclusive("no-kudo", "kudo")
}

// changed reports whether any filter was given on the command line.
func (f *selectFlags) changed(cmd *cobra.Command) bool {
	for _, name := range []string{"athlete", "title", "no-kudo", "kudo", "similar"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (f *selectFlags) predicate() feed.Predicate {
	preds := []feed.Predicate{
		feed.AthleteMatches(f.athlete),
		feed.TitleMatches(f.title),
	}
	if f.noKudo {
		preds = append(preds, feed.KudoGiven(false))
	}
	if f.kudo {
		preds = append(preds, feed.KudoGiven(true))
	}
	if f.similar != "" {
		preds = append(preds, feed.AthleteSimilar(f.similar, f.threshold))
	}
	return feed.All(preds...)
}

func (f *selectFlags) preload(cmd *cobra.Command, value *globals.Value) error {
	if f.load <= 0 {
		return nil
	}
	merged, err := value.Session.LoadFirstPage(cmd.Context(), f.load)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d activities\n", merged)
	return nil
}

func newActivitiesCmd() *cobra.Command {
	var flags selectFlags
	var archived bool

	cmd := &cobra.Command{
		Use:   "activities [-a pattern] [-t pattern] [-k | -K] [--similar name] [--archived]",
		Short: "Select loaded activities and display them.",
		Long: "Selects the loaded activities matching every filter and displays them.\n" +
			"The selection is what 'kudo' sends kudos to.\n" +
			"A pattern prefixed with '-' keeps the activities that do not match it.\n" +
			"With --archived the activities saved to --db by earlier runs are displayed instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value := globals.Get(cmd.Context())
			out := cmd.OutOrStdout()
			if archived {
				return listArchived(cmd, value, flags.predicate())
			}
			err := flags.preload(cmd, value)
			if err != nil {
				return err
			}

			selected := value.Session.SelectActivities(flags.predicate())
			fmt.Fprintf(out, "Activities %d/%d\n", len(selected), len(value.Session.Log()))
			if len(selected) > 0 {
				utils.RenderActivities(out, selected)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&archived, "archived", false, "Display the activities archived by earlier runs (needs --db).")
	cmd.MarkFlagsMutuallyExclusive("archived", "load")
	return cmd
}

// listArchived displays the archived activities matching `pred`, the
// selection kudo works on is not touched.
func listArchived(cmd *cobra.Command, value *globals.Value, pred feed.Predicate) error {
	matching, total, err := value.Session.ArchivedActivities(cmd.Context(), pred)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Archived %d/%d\n", len(matching), total)
	if len(matching) > 0 {
		utils.RenderActivities(out, matching)
	}
	return nil
}

func newKudoCmd() *cobra.Command {
	var flags selectFlags

	cmd := &cobra.Command{
		Use:   "kudo [-a pattern] [-t pattern] [--similar name]",
		Short: "Give a kudo to every selected activity that has none yet.",
		Long: "Gives a kudo to the activities selected by the last 'activities'.\n" +
			"Filters given here replace that selection.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value := globals.Get(cmd.Context())
			out := cmd.OutOrStdout()

			err := flags.preload(cmd, value)
			if err != nil {
				return err
			}
			if flags.changed(cmd) || flags.load > 0 {
				value.Session.SelectActivities(flags.predicate())
			}

			results := value.Session.KudoSelected(cmd.Context())
			if len(results) == 0 {
				fmt.Fprintln(out, "No selected activity is waiting for a kudo")
				return nil
			}
			for _, r := range results {
				status := "Failed"
				if r.Ok {
					status = "Ok"
				}
				fmt.Fprintf(out, "Kudoing %s for %s .. %s\n", r.Activity.Athlete, r.Activity.Title, status)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
