package commands

import (
	"errors"
	"fmt"
	"io"

	"stravatools/cmd/stravatools/globals"
	"stravatools/lib/platforms/strava"
	"stravatools/lib/platforms/strava/core"

	"github.com/spf13/cobra"
)

func greet(out io.Writer, session *strava.Session) {
	identity, ok := session.Identity()
	if ok {
		fmt.Fprintf(out, "Welcome %s\n", identity.OwnerName)
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Strava, the password is never stored.",
		Long: "Login to Strava (www.strava.com).\n" +
			"You will be asked for your username (email) and password, and whether\n" +
			"the session cookie should be kept for the next runs.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value := globals.Get(cmd.Context())
			out := cmd.OutOrStdout()

			username, err := prompt(value, out, "Username: ")
			if err != nil {
				return err
			}
			password, err := promptPassword(value, out, "Password: ")
			if err != nil {
				return err
			}
			remember, err := promptYesNo(value, out, "Remember session (password will not be stored)", value.Remember)
			if err != nil {
				return err
			}

			err = value.Session.Login(cmd.Context(), username, password, remember)
			if errors.Is(err, core.ErrAuthenticationRejected) {
				fmt.Fprintln(out, Describe(err))
				return nil
			}
			if err != nil {
				return err
			}
			greet(out, value.Session)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session cookies.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value := globals.Get(cmd.Context())
			err := value.Session.Logout()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged in athlete.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value := globals.Get(cmd.Context())
			out := cmd.OutOrStdout()

			if value.Session.State() != core.StateAuthenticated {
				fmt.Fprintf(out, "Not logged in (%s)\n", value.Session.State())
				return nil
			}
			identity, ok := value.Session.Identity()
			if !ok {
				fmt.Fprintln(out, "Logged in, the profile could not be read")
				return nil
			}
			fmt.Fprintf(out, "%s (athlete %s)\n", identity.OwnerName, identity.OwnerId)
			return nil
		},
	}
}
