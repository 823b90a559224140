package credstore

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stravatools/lib/platforms/strava/core"

	"github.com/stretchr/testify/require"
)

func TestOpenEmptyDir(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	_, ok := store.Identity()
	require.False(t, ok)

	jar, err := store.LoadJar()
	require.NoError(t, err)
	require.Equal(t, 0, jar.Len())
}

func TestIdentityRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), DirName)
	store, err := Open(dir)
	require.NoError(t, err)

	identity := core.Identity{OwnerId: "777", OwnerName: "Jane Runner"}
	store.SetIdentity(identity)
	require.NoError(t, store.Save())

	contents, err := os.ReadFile(filepath.Join(dir, UserFile))
	require.NoError(t, err)
	require.Contains(t, string(contents), `"owner_id": "777"`)
	require.Contains(t, string(contents), `"owner_name": "Jane Runner"`)

	reopened, err := Open(dir)
	require.NoError(t, err)
	got, ok := reopened.Identity()
	require.True(t, ok)
	require.Equal(t, identity, got)
}

func TestOpenInvalidUser(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, UserFile), []byte("{not json"), 0600))
	_, err := Open(dir)
	require.Error(t, err)
}

func TestJarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	jar, err := store.LoadJar()
	require.NoError(t, err)
	site, err := url.Parse("https://www.strava.com/session")
	require.NoError(t, err)
	jar.SetCookies(site, []*http.Cookie{
		{Name: "_strava4_session", Value: "abc", Path: "/", Expires: time.Now().Add(time.Hour), HttpOnly: true},
		{Name: "transient", Value: "gone", Path: "/"},
	})
	require.NoError(t, store.SaveJar(jar))
	require.FileExists(t, store.CookiesPath())

	restored, err := store.LoadJar()
	require.NoError(t, err)
	require.Equal(t, 1, restored.Len())
	cookies := restored.Cookies(site)
	require.Len(t, cookies, 1)
	require.Equal(t, "abc", cookies[0].Value)
}
