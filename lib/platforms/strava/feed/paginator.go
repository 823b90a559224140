package feed

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"stravatools/lib/platforms/strava/core"
	"stravatools/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("stravatools/platforms/strava/feed")

const (
	report_paginator_load_first = "paginator.load-first"
	report_paginator_load_next  = "paginator.load-next"
)

// IdentitySource provides the owner id the following feed is requested for.
type IdentitySource interface {
	Identity() (core.Identity, bool)
}

// Paginator walks the following feed page by page. Each page's cursor
// depends on the previous page, so loads are serialized.
type Paginator struct {
	client   *core.Client
	identity IdentitySource
	tel      telemetry.API

	mu        sync.Mutex
	cursor    Cursor
	hasCursor bool
}

func NewPaginator(client *core.Client, identity IdentitySource, tel telemetry.API) *Paginator {
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return &Paginator{
		client:   client,
		identity: identity,
		tel:      telemetry.NewScopedAPI("strava_feed", tel),
	}
}

// Cursor returns the current cursor, ok is false until a page with cards was
// loaded.
func (p *Paginator) Cursor() (Cursor, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor, p.hasCursor
}

// Observe recomputes the cursor from `doc`, a page without cards keeps the
// current cursor.
func (p *Paginator) Observe(doc *goquery.Document) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observe(doc)
}

func (p *Paginator) observe(doc *goquery.Document) {
	next, ok := NextCursor(doc, p.cursor)
	if !ok {
		p.tel.ReportDebug("no feed cards on page, keeping cursor", "cursor", p.cursor.Cursor, "before", p.cursor.Before)
		return
	}
	p.cursor = next
	p.hasCursor = true
}

// LoadFirst requests the dashboard sized `count`+1 and returns the loaded
// page.
func (p *Paginator) LoadFirst(ctx context.Context, count int) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "paginator:LoadFirst", trace.WithAttributes(
		attribute.Int("count", count),
	))
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.client.Get(ctx, fmt.Sprintf(core.PathDashboard, count+1), core.RequestOptions{RequireAuth: true})
	if err != nil {
		p.tel.ReportBroken(report_paginator_load_first, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	doc := p.client.Page()
	p.observe(doc)
	return doc, nil
}

// LoadNext requests the page following the current cursor. It fails with
// core.ErrNotAuthenticated without an identity and ErrNoCursor before the
// first page.
func (p *Paginator) LoadNext(ctx context.Context) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "paginator:LoadNext")
	defer span.End()

	identity, ok := p.identity.Identity()
	if !ok {
		return nil, core.ErrNotAuthenticated
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasCursor {
		return nil, ErrNoCursor
	}
	span.SetAttributes(
		attribute.String("cursor", p.cursor.Cursor),
		attribute.String("before", p.cursor.Before),
	)

	endpoint := fmt.Sprintf(
		core.PathFeed,
		url.QueryEscape(identity.OwnerId),
		url.QueryEscape(p.cursor.Before),
		url.QueryEscape(p.cursor.Cursor),
	)
	_, err := p.client.Get(ctx, endpoint, core.RequestOptions{RequireAuth: true})
	if err != nil {
		p.tel.ReportBroken(report_paginator_load_next, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	doc := p.client.Page()
	p.observe(doc)
	return doc, nil
}
