package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"stravatools/lib/htmlutil"
	"stravatools/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_auth_login   = "auth.login"
	report_auth_profile = "auth.profile"
)

// DashboardSize is the feed size requested right after a password login.
const DashboardSize = 30

type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Identity is the logged in athlete.
type Identity struct {
	OwnerId   string
	OwnerName string
}

// IdentityStore persists the identity across runs.
type IdentityStore interface {
	Identity() (Identity, bool)
	SetIdentity(Identity)
}

// Auth drives the login state machine on top of a Client.
type Auth struct {
	client *Client
	store  IdentityStore
	tel    telemetry.API

	mu          sync.Mutex
	state       State
	identity    Identity
	hasIdentity bool
}

// NewAuth restores the stored identity when the jar still holds cookies from a
// previous run, the site gets the final say on the next authenticated request.
func NewAuth(client *Client, store IdentityStore, tel telemetry.API) *Auth {
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	a := &Auth{
		client: client,
		store:  store,
		tel:    telemetry.NewScopedAPI("strava_auth", tel),
	}
	if identity, ok := store.Identity(); ok && client.Jar.Len() > 0 {
		a.state = StateAuthenticated
		a.identity = identity
		a.hasIdentity = true
	}
	return a
}

func (a *Auth) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Auth) Identity() (Identity, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identity, a.hasIdentity
}

func (a *Auth) setState(state State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = state
}

// Invalidate drops back to anonymous, used once the site renders a
// logged-out page for an authenticated request.
func (a *Auth) Invalidate() {
	a.setState(StateAnonymous)
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}

func (a *Auth) redirectsTo(location, endpoint string) bool {
	if location == "" {
		return false
	}
	loc, err := url.Parse(location)
	if err != nil {
		return false
	}
	return a.client.BaseUrl.ResolveReference(loc).String() == a.client.Url(endpoint)
}

// Login authenticates with a username and password. It returns
// ErrAuthenticationRejected when the credentials are refused, in which case
// neither the state nor the identity change.
func (a *Auth) Login(ctx context.Context, username, password string, remember bool) error {
	ctx, span := tracer.Start(ctx, "auth:Login")
	defer span.End()

	previous := a.State()
	a.setState(StateAuthenticating)
	err := a.login(ctx, username, password, remember)
	if err != nil {
		a.setState(previous)
		if !errors.Is(err, ErrAuthenticationRejected) {
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
	a.setState(StateAuthenticated)
	return nil
}

func (a *Auth) login(ctx context.Context, username, password string, remember bool) error {
	res, err := a.client.Get(ctx, PathLogin, RequestOptions{NoRedirect: true})
	if err != nil {
		a.tel.ReportBroken(report_auth_login, fmt.Errorf("login page: %w", err))
		return fmt.Errorf("login: %w", err)
	}
	if isRedirect(res.StatusCode()) {
		// the session cookie is still good, the site sends us away from the form
		a.tel.ReportDebug("session still valid, skipping password exchange")
		identity, ok := a.store.Identity()
		a.mu.Lock()
		a.identity = identity
		a.hasIdentity = ok
		a.mu.Unlock()
		return nil
	}

	doc := a.client.Page()
	utf8 := doc.Find(SelectLoginUtf8).First().AttrOr("value", "")
	token := doc.Find(SelectLoginToken).First().AttrOr("value", "")
	if token == "" {
		err := fmt.Errorf("could not find authenticity token")
		a.tel.ReportBroken(report_auth_login, err)
		return fmt.Errorf("login: %w", err)
	}

	form := map[string]string{
		"utf8":               utf8,
		"authenticity_token": token,
		"plan":               "",
		"email":              username,
		"password":           password,
	}
	if remember {
		form["remember_me"] = "on"
	}

	res, err = a.client.Post(ctx, PathSession, form, RequestOptions{NoRedirect: true})
	if err != nil {
		a.tel.ReportBroken(report_auth_login, fmt.Errorf("session post: %w", err))
		return fmt.Errorf("login: %w", err)
	}
	if isRedirect(res.StatusCode()) && a.redirectsTo(res.Header().Get("Location"), PathLogin) {
		return ErrAuthenticationRejected
	}

	res, err = a.client.Get(ctx, fmt.Sprintf(PathDashboard, DashboardSize+1), RequestOptions{RequireAuth: true})
	if err != nil {
		a.tel.ReportBroken(report_auth_login, fmt.Errorf("dashboard: %w", err))
		return fmt.Errorf("login: %w", err)
	}

	identity, err := scrapeIdentity(res.String(), a.client.Page())
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.tel.ReportWarning(
			report_auth_profile,
			fmt.Errorf("profile information cannot be retrieved, some features are disabled: %w", err),
		)
		a.identity = Identity{}
		a.hasIdentity = false
		return nil
	}
	a.identity = identity
	a.hasIdentity = true
	a.store.SetIdentity(identity)
	return nil
}

func scrapeIdentity(body string, doc *goquery.Document) (Identity, error) {
	if !strings.Contains(body, LoggedInMarker) {
		return Identity{}, fmt.Errorf("dashboard does not contain %q", LoggedInMarker)
	}
	profile := doc.Find(SelectProfile).First()
	if profile.Length() == 0 {
		return Identity{}, fmt.Errorf("could not find %s", SelectProfile)
	}
	href, ok := htmlutil.FirstAttr(profile.Find(SelectProfileLink), "href")
	if !ok {
		return Identity{}, fmt.Errorf("could not find profile link")
	}
	id := htmlutil.LastPathSegment(href)
	if id == "" {
		return Identity{}, fmt.Errorf("empty owner id in %q", href)
	}
	name, _ := htmlutil.FirstText(profile.Find(SelectProfileName))
	return Identity{
		OwnerId:   id,
		OwnerName: strings.TrimSpace(name),
	}, nil
}

// Logout clears the cookies held in memory, whatever was saved on disk stays
// until the jar is saved again.
func (a *Auth) Logout() error {
	err := a.client.ClearCookies()
	if err != nil {
		return err
	}
	a.setState(StateAnonymous)
	return nil
}
