// Package fakesite serves canned pages that mimic the markup of the real site,
// it backs the tests of the strava packages.
package fakesite

import (
	"embed"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

//go:embed pages/*.html
var pages embed.FS

const (
	Username       = "jane@example.com"
	Password       = "correct horse"
	SessionCookie  = "_strava4_session"
	SessionValue   = "valid-session"
	LoginToken     = "login-authenticity-token"
	LoginCsrf      = "login-csrf-token"
	DashboardCsrf  = "dashboard-csrf-token"
	OwnerId        = "777"
	OwnerName      = "Jane Runner"
	EmptyFeedPage  = `<html><body><div class="feed-container"></div></body></html>`
	KudoSuccess    = `{"success":"true"}`
	KudoNotSuccess = `{"success":"false"}`
)

func Page(name string) string {
	contents, err := pages.ReadFile("pages/" + name)
	if err != nil {
		panic(err)
	}
	return string(contents)
}

// Request is what the site saw of a single request.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Form   map[string]string
}

type KudoReply struct {
	Status int
	Body   string
}

type Site struct {
	*httptest.Server

	mu sync.Mutex
	// dashboard is served for /dashboard/following/{n}.
	dashboard string
	// feedPages are served in order for /dashboard/feed, then EmptyFeedPage.
	feedPages []string
	// kudos maps an activity id to its reply, missing ids reply KudoSuccess.
	kudos map[string]KudoReply
	// rejectAll makes every password fail.
	rejectAll bool
	// loggedOut renders authenticated pages as logged out even with a valid
	// cookie.
	loggedOut bool

	requests []Request
}

func New(t testing.TB) *Site {
	s := &Site{
		dashboard: Page("dashboard.html"),
		kudos:     map[string]KudoReply{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *Site) SetDashboard(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dashboard = page
}

func (s *Site) QueueFeedPages(pages ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedPages = append(s.feedPages, pages...)
}

func (s *Site) SetKudoReply(id string, reply KudoReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kudos[id] = reply
}

func (s *Site) SetRejectAll(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectAll = reject
}

func (s *Site) SetLoggedOut(loggedOut bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOut = loggedOut
}

// Requests returns a copy of every request received so far.
func (s *Site) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the requests whose path starts with `prefix`.
func (s *Site) RequestsTo(prefix string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if strings.HasPrefix(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Site) authed(r *http.Request) bool {
	c, err := r.Cookie(SessionCookie)
	return err == nil && c.Value == SessionValue && !s.loggedOut
}

func (s *Site) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = r.ParseForm()
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Form:   form,
	})

	html := func(status int, body string) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/login":
		if s.authed(r) {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		html(http.StatusOK, Page("login.html"))

	case r.Method == http.MethodPost && r.URL.Path == "/session":
		ok := !s.rejectAll &&
			form["authenticity_token"] == LoginToken &&
			form["email"] == Username &&
			form["password"] == Password &&
			r.Header.Get("x-csrf-token") == LoginCsrf
		if !ok {
			http.Redirect(w, r, s.URL+"/login", http.StatusFound)
			return
		}
		cookie := &http.Cookie{Name: SessionCookie, Value: SessionValue, Path: "/", HttpOnly: true}
		if form["remember_me"] == "on" {
			cookie.MaxAge = 3600
		}
		http.SetCookie(w, cookie)
		http.Redirect(w, r, s.URL+"/dashboard", http.StatusFound)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/dashboard/following/"):
		if !s.authed(r) {
			html(http.StatusOK, Page("logged_out.html"))
			return
		}
		html(http.StatusOK, s.dashboard)

	case r.Method == http.MethodGet && r.URL.Path == "/dashboard/feed":
		if !s.authed(r) {
			html(http.StatusOK, Page("logged_out.html"))
			return
		}
		if len(s.feedPages) == 0 {
			html(http.StatusOK, EmptyFeedPage)
			return
		}
		page := s.feedPages[0]
		s.feedPages = s.feedPages[1:]
		html(http.StatusOK, page)

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/feed/activity/"):
		if !s.authed(r) {
			html(http.StatusOK, Page("logged_out.html"))
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/feed/activity/"), "/kudo")
		reply, ok := s.kudos[id]
		if !ok {
			reply = KudoReply{Status: http.StatusOK, Body: KudoSuccess}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.Status)
		fmt.Fprint(w, reply.Body)

	case r.URL.Path == "/dashboard":
		if !s.authed(r) {
			html(http.StatusOK, Page("logged_out.html"))
			return
		}
		html(http.StatusOK, s.dashboard)

	default:
		http.NotFound(w, r)
	}
}
