package core

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"stravatools/internal/fakesite"
	"stravatools/lib/cookies"
	"stravatools/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	identity Identity
	ok       bool
	writes   int
}

func (s *memoryStore) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.ok
}

func (s *memoryStore) SetIdentity(identity Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.ok = true
	s.writes++
}

func TestLogin(t *testing.T) {
	site := fakesite.New(t)
	client := newTestClient(t, site, &telemetry.RecorderAPI{})
	store := &memoryStore{}
	auth := NewAuth(client, store, &telemetry.RecorderAPI{})
	require.Equal(t, StateAnonymous, auth.State())

	err := auth.Login(context.Background(), fakesite.Username, fakesite.Password, true)
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, auth.State())

	identity, ok := auth.Identity()
	require.True(t, ok)
	require.Equal(t, Identity{OwnerId: fakesite.OwnerId, OwnerName: fakesite.OwnerName}, identity)
	stored, ok := store.Identity()
	require.True(t, ok)
	require.Equal(t, identity, stored)

	posts := site.RequestsTo(PathSession)
	require.Len(t, posts, 1)
	require.Equal(t, fakesite.LoginCsrf, posts[0].Header.Get(CsrfHeader))
	require.Equal(t, "on", posts[0].Form["remember_me"])
	require.Equal(t, "", posts[0].Form["plan"])
	require.Equal(t, fakesite.LoginToken, posts[0].Form["authenticity_token"])

	dashboards := site.RequestsTo("/dashboard/following/")
	require.Len(t, dashboards, 1)
	require.Equal(t, "/dashboard/following/31", dashboards[0].Path)

	// the dashboard replaced the login page token
	require.Equal(t, fakesite.DashboardCsrf, client.CsrfToken())
	require.Equal(t, 1, client.Jar.Len())
}

func TestLoginWithoutRemember(t *testing.T) {
	site := fakesite.New(t)
	client := newTestClient(t, site, &telemetry.RecorderAPI{})
	auth := NewAuth(client, &memoryStore{}, &telemetry.RecorderAPI{})

	err := auth.Login(context.Background(), fakesite.Username, fakesite.Password, false)
	require.NoError(t, err)

	posts := site.RequestsTo(PathSession)
	require.Len(t, posts, 1)
	_, sent := posts[0].Form["remember_me"]
	require.False(t, sent)
}

func TestLoginRejected(t *testing.T) {
	site := fakesite.New(t)
	client := newTestClient(t, site, &telemetry.RecorderAPI{})
	store := &memoryStore{}
	auth := NewAuth(client, store, &telemetry.RecorderAPI{})

	err := auth.Login(context.Background(), fakesite.Username, "wrong", true)
	require.ErrorIs(t, err, ErrAuthenticationRejected)
	require.Equal(t, StateAnonymous, auth.State())
	_, ok := auth.Identity()
	require.False(t, ok)
	require.Equal(t, 0, store.writes)
	require.Empty(t, site.RequestsTo("/dashboard/following/"))
}

func TestLoginRejectedKeepsPreviousIdentity(t *testing.T) {
	site := fakesite.New(t)
	client := newTestClient(t, site, &telemetry.RecorderAPI{})
	store := &memoryStore{}
	auth := NewAuth(client, store, &telemetry.RecorderAPI{})

	require.NoError(t, auth.Login(context.Background(), fakesite.Username, fakesite.Password, true))
	require.NoError(t, auth.Logout())
	require.Equal(t, StateAnonymous, auth.State())

	site.SetRejectAll(true)
	err := auth.Login(context.Background(), fakesite.Username, fakesite.Password, true)
	require.ErrorIs(t, err, ErrAuthenticationRejected)
	require.Equal(t, StateAnonymous, auth.State())

	identity, ok := auth.Identity()
	require.True(t, ok)
	require.Equal(t, fakesite.OwnerId, identity.OwnerId)
	require.Equal(t, 1, store.writes)
}

func TestLoginSessionStillValid(t *testing.T) {
	site := fakesite.New(t)
	client := newTestClient(t, site, &telemetry.RecorderAPI{})
	store := &memoryStore{}
	auth := NewAuth(client, store, &telemetry.RecorderAPI{})

	require.NoError(t, auth.Login(context.Background(), fakesite.Username, fakesite.Password, true))
	require.NoError(t, auth.Login(context.Background(), fakesite.Username, "anything", true))
	require.Equal(t, StateAuthenticated, auth.State())

	require.Len(t, site.RequestsTo(PathSession), 1)
	require.Len(t, site.RequestsTo(PathLogin), 2)
	identity, ok := auth.Identity()
	require.True(t, ok)
	require.Equal(t, fakesite.OwnerName, identity.OwnerName)
}

func TestLoginWithoutProfile(t *testing.T) {
	site := fakesite.New(t)
	site.SetDashboard(`<html><head><meta name="csrf-token" content="x"></head><body><a href="/logout">Log Out</a></body></html>`)
	client := newTestClient(t, site, &telemetry.RecorderAPI{})
	store := &memoryStore{}
	tel := &telemetry.RecorderAPI{}
	auth := NewAuth(client, store, tel)

	err := auth.Login(context.Background(), fakesite.Username, fakesite.Password, true)
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, auth.State())
	_, ok := auth.Identity()
	require.False(t, ok)
	require.Equal(t, 0, store.writes)

	warnings := tel.Reports("warning")
	require.Len(t, warnings, 1)
	require.True(t, strings.HasSuffix(warnings[0].ID, report_auth_profile))
}

func TestLoginLoggedOutDashboard(t *testing.T) {
	site := fakesite.New(t)
	site.SetLoggedOut(true)
	client := newTestClient(t, site, &telemetry.RecorderAPI{})
	auth := NewAuth(client, &memoryStore{}, &telemetry.RecorderAPI{})

	err := auth.Login(context.Background(), fakesite.Username, fakesite.Password, true)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.Equal(t, StateAnonymous, auth.State())
}

func TestNewAuthRestoresIdentity(t *testing.T) {
	site := fakesite.New(t)
	jar, err := cookies.New()
	require.NoError(t, err)
	siteUrl, err := url.Parse(site.URL)
	require.NoError(t, err)
	jar.SetCookies(siteUrl, []*http.Cookie{{
		Name:   fakesite.SessionCookie,
		Value:  fakesite.SessionValue,
		Path:   "/",
		MaxAge: 3600,
	}})

	client, err := NewClient(ClientOptions{BaseUrl: site.URL, Jar: jar, Telemetry: &telemetry.RecorderAPI{}})
	require.NoError(t, err)

	store := &memoryStore{identity: Identity{OwnerId: "1", OwnerName: "Stored"}, ok: true}
	auth := NewAuth(client, store, &telemetry.RecorderAPI{})
	require.Equal(t, StateAuthenticated, auth.State())
	identity, ok := auth.Identity()
	require.True(t, ok)
	require.Equal(t, "Stored", identity.OwnerName)

	// without cookies the stored identity alone is not enough
	emptyClient := newTestClient(t, site, &telemetry.RecorderAPI{})
	require.Equal(t, StateAnonymous, NewAuth(emptyClient, store, &telemetry.RecorderAPI{}).State())
}

func TestLogout(t *testing.T) {
	site := fakesite.New(t)
	client := newTestClient(t, site, &telemetry.RecorderAPI{})
	auth := NewAuth(client, &memoryStore{}, &telemetry.RecorderAPI{})

	require.NoError(t, auth.Login(context.Background(), fakesite.Username, fakesite.Password, true))
	require.NoError(t, auth.Logout())
	require.Equal(t, StateAnonymous, auth.State())
	require.Equal(t, 0, client.Jar.Len())

	_, err := client.Get(context.Background(), "/dashboard/following/3", RequestOptions{RequireAuth: true})
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "anonymous", StateAnonymous.String())
	require.Equal(t, "authenticated", StateAuthenticated.String())
	require.Equal(t, "state(9)", State(9).String())
}
