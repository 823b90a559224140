// Package strava drives a browser-like session against the Strava web site:
// login, paginating the following feed and giving kudos.
package strava

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"stravatools/lib/activitydb"
	"stravatools/lib/platforms/strava/core"
	"stravatools/lib/platforms/strava/credstore"
	"stravatools/lib/platforms/strava/feed"
	"stravatools/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_session_close   = "session.close"
	report_session_archive = "session.archive"
)

// ErrNoArchive is returned when archived activities are read from a session
// opened without an ArchivePath.
var ErrNoArchive = errors.New("no activity archive configured")

// LoadAllFirstPage is the size of the first page LoadAll requests when no
// page was loaded yet.
const LoadAllFirstPage = 100

type Options struct {
	// Dir holds the user file and the cookie jar, defaults to
	// credstore.DefaultDir.
	Dir               string
	BaseUrl           string
	RootCertificate   string
	Timeout           time.Duration
	RequestsPerSecond float64
	// ArchivePath is an optional sqlite file the log is saved to on Close.
	ArchivePath string

	Telemetry telemetry.API
	Output    telemetry.InstrumentOutput
}

// KudoResult is the outcome of one kudo sent by KudoSelected.
type KudoResult struct {
	Activity feed.Activity
	Ok       bool
}

// Session owns everything a run needs: the http client, the login state, the
// feed cursor and the activity log.
type Session struct {
	store     *credstore.Store
	client    *core.Client
	auth      *core.Auth
	paginator *feed.Paginator
	log       *feed.Log
	archive   *activitydb.DB
	tel       telemetry.API

	mu       sync.Mutex
	selected []string
}

// Open restores the saved user and cookies. The session starts
// authenticated when both an identity and cookies were saved.
func Open(ctx context.Context, opts Options) (*Session, error) {
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		dir, err = credstore.DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	store, err := credstore.Open(dir)
	if err != nil {
		return nil, err
	}
	jar, err := store.LoadJar()
	if err != nil {
		return nil, err
	}

	client, err := core.NewClient(core.ClientOptions{
		BaseUrl:           opts.BaseUrl,
		Jar:               jar,
		RootCertificate:   opts.RootCertificate,
		Timeout:           opts.Timeout,
		RequestsPerSecond: opts.RequestsPerSecond,
		Telemetry:         tel,
		Output:            opts.Output,
	})
	if err != nil {
		return nil, err
	}

	var archive *activitydb.DB
	if opts.ArchivePath != "" {
		archive, err = activitydb.Open(opts.ArchivePath)
		if err != nil {
			return nil, err
		}
	}

	auth := core.NewAuth(client, store, tel)
	return &Session{
		store:     store,
		client:    client,
		auth:      auth,
		paginator: feed.NewPaginator(client, auth, tel),
		log:       feed.NewLog(),
		archive:   archive,
		tel:       telemetry.NewScopedAPI("strava_session", tel),
	}, nil
}

// checkAuth drops the session back to anonymous when the site no longer
// considers it logged in.
func (s *Session) checkAuth(err error) error {
	if errors.Is(err, core.ErrNotAuthenticated) {
		s.auth.Invalidate()
	}
	return err
}

func (s *Session) State() core.State {
	return s.auth.State()
}

func (s *Session) Identity() (core.Identity, bool) {
	return s.auth.Identity()
}

// Login returns core.ErrAuthenticationRejected for bad credentials. The
// dashboard a password login lands on sets the feed cursor, a session that
// was still valid lands on a redirect without cards and keeps it.
func (s *Session) Login(ctx context.Context, username, password string, remember bool) error {
	err := s.auth.Login(ctx, username, password, remember)
	if err != nil {
		return err
	}
	if page := s.client.Page(); page != nil {
		s.paginator.Observe(page)
	}
	return nil
}

func (s *Session) Logout() error {
	return s.auth.Logout()
}

func (s *Session) merge(doc *goquery.Document) int {
	return s.log.Merge(feed.Extract(doc, s.tel))
}

// LoadFirstPage loads the latest `count` activities and returns how many were
// new to the log.
func (s *Session) LoadFirstPage(ctx context.Context, count int) (int, error) {
	doc, err := s.paginator.LoadFirst(ctx, count)
	if err != nil {
		return 0, s.checkAuth(err)
	}
	return s.merge(doc), nil
}

// LoadNextPage loads the page following the last loaded one, it returns
// feed.ErrNoCursor before any page was loaded.
func (s *Session) LoadNextPage(ctx context.Context) (int, error) {
	doc, err := s.paginator.LoadNext(ctx)
	if err != nil {
		return 0, s.checkAuth(err)
	}
	return s.merge(doc), nil
}

// LoadAll keeps loading pages until one brings nothing new. Without a cursor
// it starts with a first page of LoadAllFirstPage activities.
func (s *Session) LoadAll(ctx context.Context) (int, error) {
	var merged int
	var err error
	if _, ok := s.paginator.Cursor(); ok {
		merged, err = s.LoadNextPage(ctx)
	} else {
		merged, err = s.LoadFirstPage(ctx, LoadAllFirstPage)
	}
	total := merged
	for err == nil && merged > 0 {
		merged, err = s.LoadNextPage(ctx)
		total += merged
	}
	return total, err
}

// LoadPageFile merges the activities of a page saved to disk, the page also
// becomes the base of the next LoadNextPage.
func (s *Session) LoadPageFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	s.client.SetPage(doc)
	s.paginator.Observe(doc)
	return s.merge(doc), nil
}

// SendKudo gives a kudo and marks the activity kudoed (and dirty) on success.
func (s *Session) SendKudo(ctx context.Context, activityId string) bool {
	err := s.checkAuth(feed.GiveKudo(ctx, s.client, activityId, s.tel))
	if err != nil {
		return false
	}
	s.log.MarkKudoed(activityId)
	return true
}

// Log returns a copy of the activity log, newest first.
func (s *Session) Log() []feed.Activity {
	return s.log.Activities()
}

// ArchivedActivities reads the activities earlier sessions archived, newest
// first, keeping those matching `pred`. The in-memory selection is left as it
// is.
func (s *Session) ArchivedActivities(ctx context.Context, pred feed.Predicate) ([]feed.Activity, int, error) {
	if s.archive == nil {
		return nil, 0, ErrNoArchive
	}
	archived, err := s.archive.ListActivities(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read archive: %w", err)
	}
	var out []feed.Activity
	for _, a := range archived {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out, len(archived), nil
}

// SelectActivities remembers and returns the activities matching `pred`.
func (s *Session) SelectActivities(pred feed.Predicate) []feed.Activity {
	selected := s.log.Select(pred)
	ids := make([]string, len(selected))
	for i, a := range selected {
		ids[i] = a.Id
	}

	s.mu.Lock()
	s.selected = ids
	s.mu.Unlock()
	return selected
}

// Selected returns the current state of the last selection.
func (s *Session) Selected() []feed.Activity {
	s.mu.Lock()
	ids := s.selected
	s.mu.Unlock()

	out := make([]feed.Activity, 0, len(ids))
	for _, id := range ids {
		a, ok := s.log.Get(id)
		if ok {
			out = append(out, a)
		}
	}
	return out
}

// KudoSelected sends a kudo to every selected activity that has none yet.
func (s *Session) KudoSelected(ctx context.Context) []KudoResult {
	var results []KudoResult
	for _, a := range s.Selected() {
		if a.Kudoed {
			continue
		}
		ok := s.SendKudo(ctx, a.Id)
		if ok {
			a, _ = s.log.Get(a.Id)
		}
		results = append(results, KudoResult{Activity: a, Ok: ok})
	}
	return results
}

// Close saves the user and the cookies, and archives the log when an archive
// was configured.
func (s *Session) Close(ctx context.Context) error {
	var errs []error

	err := s.store.Save()
	if err != nil {
		s.tel.ReportBroken(report_session_close, err)
		errs = append(errs, err)
	}
	err = s.store.SaveJar(s.client.Jar)
	if err != nil {
		s.tel.ReportBroken(report_session_close, err)
		errs = append(errs, err)
	}

	if s.archive != nil {
		err = s.archive.SaveActivities(ctx, s.log.Activities())
		if err != nil {
			s.tel.ReportBroken(report_session_archive, err)
			errs = append(errs, err)
		}
		err = s.archive.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
