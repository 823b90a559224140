package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"stravatools/cmd/stravatools/globals"
	"stravatools/lib/platforms/strava"
	"stravatools/lib/platforms/strava/core"
	"stravatools/lib/platforms/strava/credstore"
	"stravatools/lib/platforms/strava/feed"
	"stravatools/lib/telemetry"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configDir    string
	cert         string
	db           string
	logLevel     string
	debug        bool
	debugVerbose bool
}

// NewRootCmd builds the command tree. Running it without a subcommand starts
// the interactive shell.
func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "stravatools",
		Short:         "stravatools browses your Strava following feed and gives kudos.",
		Version:       core.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsSession(cmd) {
				return nil
			}
			return openSession(cmd.Context(), flags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd)
		},
	}

	pflags := cmd.PersistentFlags()
	pflags.StringVar(&flags.configDir, "config-dir", "", "Directory holding config.json5, user.json and cookies.txt. (default ~/.strava-tools)")
	pflags.StringVar(&flags.cert, "cert", "", "PEM certificate file used to verify the site.")
	pflags.StringVar(&flags.db, "db", "", "Sqlite file the loaded activities are archived to.")
	pflags.StringVar(&flags.logLevel, "log-level", "", "One of debug, info, warn, error.")
	pflags.BoolVar(&flags.debug, "debug", false, "Log every request.")
	pflags.BoolVar(&flags.debugVerbose, "debug-verbose", false, "Log every request and dump full messages into the debug directory.")

	addSessionCommands(cmd)
	cmd.AddCommand(newShellCmd())
	return cmd
}

func addSessionCommands(cmd *cobra.Command) {
	cmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newLoadCmd(),
		newActivitiesCmd(),
		newKudoCmd(),
		newLoadPageCmd(),
	)
}

// needsSession is false for the commands cobra adds on its own.
func needsSession(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

func openSession(ctx context.Context, flags rootFlags) error {
	value := globals.Get(ctx)
	if value == nil {
		return fmt.Errorf("missing command globals")
	}
	if value.Session != nil {
		return nil
	}

	dir := flags.configDir
	if dir == "" {
		var err error
		dir, err = credstore.DefaultDir()
		if err != nil {
			return err
		}
	}
	config, err := ReadConfig(dir)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if flags.cert != "" {
		config.Cert = flags.cert
	}
	if flags.db != "" {
		config.ArchiveDb = flags.db
	}
	if flags.logLevel != "" {
		config.LogLevel = flags.logLevel
	}
	if flags.debug {
		config.Debug = DebugRequests
	}
	if flags.debugVerbose {
		config.Debug = DebugVerbose
	}
	if config.Debug != "" {
		config.LogLevel = "debug"
	}

	telemetry.InitSlog(config.LogLevel)
	value.Telemetry, err = telemetry.SetupFromEnv(ctx, "stravatools")
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}

	var output telemetry.InstrumentOutput
	if config.Debug == DebugVerbose {
		output, err = telemetry.NewFilesystemOutput(config.DebugDir)
		if err != nil {
			return err
		}
	}

	value.Session, err = strava.Open(ctx, strava.Options{
		Dir:               dir,
		BaseUrl:           config.BaseUrl,
		RootCertificate:   config.Cert,
		Timeout:           config.Timeout(),
		RequestsPerSecond: config.RequestRate(),
		ArchivePath:       config.ArchiveDb,
		Output:            output,
	})
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	value.Remember = config.RememberByDefault()
	return nil
}

// Describe turns the errors a user can act on into a hint.
func Describe(err error) string {
	switch {
	case errors.Is(err, core.ErrNotAuthenticated):
		return "You need to login first"
	case errors.Is(err, feed.ErrNoCursor):
		return "Load a page first (load)"
	case errors.Is(err, strava.ErrNoArchive):
		return "Pass --db with the archive file"
	case errors.Is(err, core.ErrAuthenticationRejected):
		return "Username or Password incorrect"
	default:
		return err.Error()
	}
}

// Run executes the command line `args`. The session it opens is saved and
// closed before Run returns, also when the command failed.
func Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	value := globals.New(in)
	ctx = globals.Set(ctx, value)

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(out)
	err := cmd.ExecuteContext(ctx)

	return errors.Join(err, value.Close(ctx))
}

func ExecuteContext(ctx context.Context) {
	err := Run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, Describe(err))
		os.Exit(1)
	}
}
