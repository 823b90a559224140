package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stravatools/internal/fakesite"
	"stravatools/lib/platforms/strava"

	"github.com/stretchr/testify/require"
)

func setupConfig(t testing.TB, site *fakesite.Site) string {
	dir := t.TempDir()
	config := fmt.Sprintf(`{
	// the fake site is local, no need to pace requests
	"base_url": %q,
	"requests_per_second": 1000,
}`, site.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(config), 0600))
	return dir
}

func run(t testing.TB, dir string, input string, args ...string) (string, error) {
	var out bytes.Buffer
	err := Run(context.Background(), append([]string{"--config-dir", dir}, args...), strings.NewReader(input), &out)
	return out.String(), err
}

func login(t testing.TB, dir string) {
	out, err := run(t, dir, fakesite.Username+"\n"+fakesite.Password+"\n\n", "login")
	require.NoError(t, err)
	require.Contains(t, out, "Welcome "+fakesite.OwnerName)
}

func TestLoginAndWhoami(t *testing.T) {
	site := fakesite.New(t)
	dir := setupConfig(t, site)

	out, err := run(t, dir, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Not logged in (anonymous)")

	login(t, dir)
	posts := site.RequestsTo("/session")
	require.Len(t, posts, 1)
	require.Equal(t, "on", posts[0].Form["remember_me"])

	out, err = run(t, dir, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, fmt.Sprintf("%s (athlete %s)", fakesite.OwnerName, fakesite.OwnerId))

	out, err = run(t, dir, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Logged out")

	out, err = run(t, dir, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Not logged in")
}

func TestLoginRejected(t *testing.T) {
	site := fakesite.New(t)
	dir := setupConfig(t, site)

	out, err := run(t, dir, fakesite.Username+"\nwrong\nn\n", "login")
	require.NoError(t, err)
	require.Contains(t, out, "Username or Password incorrect")
	require.NotContains(t, out, "Welcome")
}

func TestLoadRequiresLogin(t *testing.T) {
	site := fakesite.New(t)
	dir := setupConfig(t, site)

	_, err := run(t, dir, "", "load", "5")
	require.Error(t, err)
	require.Equal(t, "You need to login first", Describe(err))
}

func TestLoadNextRequiresPage(t *testing.T) {
	site := fakesite.New(t)
	dir := setupConfig(t, site)
	login(t, dir)

	// a new run restores the cookies but not the cursor
	_, err := run(t, dir, "", "load", "--next")
	require.Error(t, err)
	require.Equal(t, "Load a page first (load)", Describe(err))
}

func TestLoadInvalidCount(t *testing.T) {
	site := fakesite.New(t)
	dir := setupConfig(t, site)

	_, err := run(t, dir, "", "load", "many")
	require.ErrorContains(t, err, "invalid number")
}

func TestOneShotActivitiesAndKudo(t *testing.T) {
	site := fakesite.New(t)
	dir := setupConfig(t, site)
	login(t, dir)

	out, err := run(t, dir, "", "activities", "--load", "2", "-K")
	require.NoError(t, err)
	require.Contains(t, out, "Loaded 2 activities")
	require.Contains(t, out, "Activities 1/2")
	require.Contains(t, out, "Bob Stone")
	require.NotContains(t, out, "AliceSmith")

	out, err = run(t, dir, "", "kudo", "--load", "2", "-a", "alice")
	require.NoError(t, err)
	require.Contains(t, out, "Kudoing AliceSmith for MorningRun .. Ok")
	require.Len(t, site.RequestsTo("/feed/activity/"), 1)
}

func TestShell(t *testing.T) {
	site := fakesite.New(t)
	site.QueueFeedPages(fakesite.Page("feed_next.html"))
	dir := setupConfig(t, site)

	script := strings.Join([]string{
		"load 2",
		"login",
		fakesite.Username,
		fakesite.Password,
		"y",
		"load --next",
		"load 2",
		"load --next",
		"activities -k",
		"kudo",
		"activities",
		"bogus",
		"quit",
	}, "\n") + "\n"

	out, err := run(t, dir, script)
	require.NoError(t, err)

	require.Contains(t, out, "Strava Shell")
	require.Contains(t, out, "You need to login first")
	require.NotContains(t, out, "Load a page first (load)")
	require.Contains(t, out, "Welcome "+fakesite.OwnerName)
	// the login dashboard already set the cursor
	require.Contains(t, out, "Loaded 1 activities")
	require.Contains(t, out, "Loaded 2 activities")
	require.Contains(t, out, "Loaded 0 activities")
	require.Contains(t, out, "Activities 2/3")
	require.Contains(t, out, "Kudoing AliceSmith for MorningRun .. Ok")
	require.Contains(t, out, "Kudoing Carol King for New Year Swim .. Ok")
	require.Contains(t, out, "*")
	require.Contains(t, out, "unknown command")
	require.Contains(t, out, "You're safe to go!")

	require.FileExists(t, filepath.Join(dir, "user.json"))
	require.FileExists(t, filepath.Join(dir, "cookies.txt"))
}

func TestShellEndsOnEOF(t *testing.T) {
	site := fakesite.New(t)
	dir := setupConfig(t, site)

	out, err := run(t, dir, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Not logged in")
	require.NotContains(t, out, "You're safe to go!")
}

func TestArchiveFlag(t *testing.T) {
	site := fakesite.New(t)
	dir := setupConfig(t, site)
	login(t, dir)

	db := filepath.Join(t.TempDir(), "archive.db")
	_, err := run(t, dir, "", "--db", db, "load", "2")
	require.NoError(t, err)
	require.FileExists(t, db)

	// a later run reads the archive without loading anything
	out, err := run(t, dir, "", "--db", db, "activities", "--archived", "-k")
	require.NoError(t, err)
	require.Contains(t, out, "Archived 1/2")
	require.Contains(t, out, "AliceSmith")
	require.NotContains(t, out, "Bob Stone")
	require.Len(t, site.RequestsTo("/dashboard/feed"), 1)
}

func TestArchivedRequiresDb(t *testing.T) {
	site := fakesite.New(t)
	dir := setupConfig(t, site)

	_, err := run(t, dir, "", "activities", "--archived")
	require.ErrorIs(t, err, strava.ErrNoArchive)
	require.Equal(t, "Pass --db with the archive file", Describe(err))
}

func TestReadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	config, err := ReadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, "https://www.strava.com", config.BaseUrl)
	require.Equal(t, 2.0, config.RequestRate())
	require.Equal(t, 30, config.TimeoutSeconds)
	require.True(t, config.RememberByDefault())
	require.Equal(t, filepath.Join(dir, "debug"), config.DebugDir)
}

func TestReadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(`{"remember": false, "timeout_seconds": 5}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{"log_level": "debug"}`), 0600))

	config, err := ReadConfig(dir)
	require.NoError(t, err)
	require.False(t, config.RememberByDefault())
	require.Equal(t, 5, config.TimeoutSeconds)
	require.Equal(t, "debug", config.LogLevel)
	require.Equal(t, 2.0, config.RequestRate())
}

func TestReadConfigRateOff(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(`{requests_per_second: 0}`), 0600))

	config, err := ReadConfig(dir)
	require.NoError(t, err)
	require.NotNil(t, config.RequestsPerSecond)
	require.Zero(t, config.RequestRate())
}

func TestDebugVerboseDumpsMessages(t *testing.T) {
	site := fakesite.New(t)
	dir := setupConfig(t, site)

	_, err := run(t, dir, "", "--debug-verbose", "load-page", filepath.Join(dir, "missing.html"))
	require.Error(t, err)

	_, err = run(t, dir, "", "--debug-verbose", "load", "2")
	require.Error(t, err)

	dumps, err := os.ReadDir(filepath.Join(dir, "debug"))
	require.NoError(t, err)
	require.Len(t, dumps, 1)

	contents, err := os.ReadFile(filepath.Join(dir, "debug", dumps[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(contents), "/dashboard/following/3")
}
