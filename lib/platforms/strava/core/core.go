package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"stravatools/lib/cookies"
	"stravatools/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("stravatools/platforms/strava/core")

const (
	report_client_request    = "client.request"
	report_client_store_page = "client.store-page"
)

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
	Jar     *cookies.Jar

	tel telemetry.API

	mu        sync.Mutex
	csrfToken string
	page      *goquery.Document
}

type ClientOptions struct {
	BaseUrl string
	// Jar defaults to an empty jar.
	Jar *cookies.Jar
	// RootCertificate is the path to a PEM file that replaces the system
	// roots when verifying the site's certificate.
	RootCertificate   string
	Timeout           time.Duration
	RequestsPerSecond float64

	Telemetry telemetry.API
	// Output receives full http message dumps when set.
	Output telemetry.InstrumentOutput
}

// RequestOptions control how a single request is issued and checked.
type RequestOptions struct {
	// RequireAuth turns a logged-out page into ErrNotAuthenticated.
	RequireAuth bool
	// NoRedirect hands 3xx responses back instead of following them.
	NoRedirect bool
}

type noRedirectKeyType int

var noRedirectKey noRedirectKeyType

func redirectPolicy(req *http.Request, via []*http.Request) error {
	noRedirect, _ := req.Context().Value(noRedirectKey).(bool)
	if noRedirect {
		return http.ErrUseLastResponse
	}
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	return nil
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(strings.TrimSuffix(opts.BaseUrl, "/"))
	if err != nil {
		return nil, err
	}
	if opts.Jar == nil {
		opts.Jar, err = cookies.New()
		if err != nil {
			return nil, err
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	tel = telemetry.NewScopedAPI("strava_core", tel)

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	httpClient.SetCookieJar(opts.Jar)
	httpClient.SetHeader("User-Agent", UserAgent)
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(redirectPolicy))
	httpClient.SetTimeout(opts.Timeout)

	if opts.RootCertificate != "" {
		pem, err := os.ReadFile(opts.RootCertificate)
		if err != nil {
			return nil, fmt.Errorf("read root certificate: %w", err)
		}
		httpClient.SetRootCertificateFromString(string(pem))
	}

	if opts.RequestsPerSecond > 0 {
		// max burst of 1 keeps consecutive page loads evenly spaced
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	return &Client{
		BaseUrl: baseUrl,
		Http:    httpClient,
		Jar:     opts.Jar,
		tel:     tel,
	}, nil
}

// Url resolves an endpoint against the base url.
func (c *Client) Url(endpoint string) string {
	return c.BaseUrl.String() + endpoint
}

// CsrfToken returns the last token scraped from a page, or "" if none was
// seen yet.
func (c *Client) CsrfToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrfToken
}

// Page returns the most recently stored document, nil before the first load.
func (c *Client) Page() *goquery.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// SetPage makes `doc` the current page, capturing its csrf token if it has one.
// A page without a token keeps the previous token.
func (c *Client) SetPage(doc *goquery.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.page = doc
	token, ok := doc.Find(SelectCsrfMeta).First().Attr("content")
	if ok && token != "" {
		c.csrfToken = token
	}
}

func (c *Client) storePage(body []byte) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		c.tel.ReportBroken(report_client_store_page, err)
		return fmt.Errorf("parse page: %w", err)
	}
	c.SetPage(doc)
	return nil
}

func (c *Client) Get(ctx context.Context, endpoint string, opts RequestOptions) (*resty.Response, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, opts)
}

// Post sends `form` url-encoded, a nil form sends an empty body.
func (c *Client) Post(ctx context.Context, endpoint string, form map[string]string, opts RequestOptions) (*resty.Response, error) {
	return c.do(ctx, http.MethodPost, endpoint, form, opts)
}

func (c *Client) do(ctx context.Context, method, endpoint string, form map[string]string, opts RequestOptions) (*resty.Response, error) {
	if opts.NoRedirect {
		ctx = context.WithValue(ctx, noRedirectKey, true)
	}

	req := c.Http.R().SetContext(ctx)
	if method == http.MethodPost {
		token := c.CsrfToken()
		if token != "" {
			req.SetHeader(CsrfHeader, token)
		}
		if form != nil {
			req.SetFormData(form)
		}
	}

	res, err := req.Execute(method, endpoint)
	if err != nil {
		return nil, &RequestFailedError{
			Method: method,
			Url:    endpoint,
			Err:    err,
		}
	}

	if opts.RequireAuth && strings.Contains(res.String(), LoggedOutMarker) {
		c.tel.ReportDebug("logged out page", method, endpoint)
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, ErrNotAuthenticated)
	}

	status := res.StatusCode()
	redirect := status >= 300 && status < 400
	if !(status >= 200 && status < 300) && !(opts.NoRedirect && redirect) {
		c.tel.ReportBroken(report_client_request, method, endpoint, status)
		return nil, &RequestFailedError{
			Method:     method,
			Url:        endpoint,
			StatusCode: status,
		}
	}

	err = c.storePage(res.Body())
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ClearCookies empties the in-memory jar.
func (c *Client) ClearCookies() error {
	return c.Jar.Clear()
}
