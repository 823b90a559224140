package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"stravatools/cmd/stravatools/globals"
	"stravatools/lib/platforms/strava/core"

	"github.com/spf13/cobra"
)

const Prompt = "strava >> "

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively on one session (the default).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd)
		},
	}
}

// newShellRoot is the command tree run for each line of the shell. It has no
// hooks, the shell's session is already open.
func newShellRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	addSessionCommands(cmd)
	return cmd
}

func runShell(cmd *cobra.Command) error {
	value := globals.Get(cmd.Context())
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Strava Shell %s\n", core.Version)
	greet(out, value.Session)

	for {
		fmt.Fprint(out, Prompt)
		line, readErr := value.In.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return readErr
		}

		fields := strings.Fields(line)
		if len(fields) > 0 {
			switch fields[0] {
			case "quit", "exit":
				fmt.Fprintln(out, "You're safe to go!")
				return nil
			}

			sub := newShellRoot()
			sub.SetArgs(fields)
			sub.SetIn(value.In)
			sub.SetOut(out)
			sub.SetErr(out)
			err := sub.ExecuteContext(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, Describe(err))
			}
		}

		if readErr != nil {
			fmt.Fprintln(out)
			return nil
		}
	}
}
