// Package cookies implements an http.CookieJar that can be persisted to and
// restored from a Mozilla (Netscape) cookies.txt file.
package cookies

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	header         = "# Netscape HTTP Cookie File\n# This is a generated file! Do not edit.\n\n"
	httpOnlyPrefix = "#HttpOnly_"
)

type entryKey struct {
	domain string
	path   string
	name   string
}

type entry struct {
	// domain carries a leading dot when the cookie applies to subdomains
	domain   string
	path     string
	name     string
	value    string
	secure   bool
	httpOnly bool
	// zero means a session cookie
	expires time.Time
}

func (e entry) hostOnly() bool {
	return !strings.HasPrefix(e.domain, ".")
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !e.expires.After(now)
}

// Jar delegates cookie matching to net/http/cookiejar and keeps a shadow copy
// of every accepted cookie so the jar can be written back to disk.
type Jar struct {
	mu      sync.Mutex
	inner   *cookiejar.Jar
	entries map[entryKey]entry
	now     func() time.Time
}

func New() (*Jar, error) {
	inner, err := newInner()
	if err != nil {
		return nil, err
	}
	return &Jar{
		inner:   inner,
		entries: map[entryKey]entry{},
		now:     time.Now,
	}, nil
}

func newInner() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	inner := j.inner
	j.mu.Unlock()
	return inner.Cookies(u)
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner.SetCookies(u, cookies)

	now := j.now()
	host := strings.ToLower(u.Hostname())
	for _, c := range cookies {
		e := entry{
			domain:   host,
			path:     c.Path,
			name:     c.Name,
			value:    c.Value,
			secure:   c.Secure,
			httpOnly: c.HttpOnly,
		}
		if c.Domain != "" {
			domain := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
			if host != domain && !strings.HasSuffix(host, "."+domain) {
				continue
			}
			e.domain = "." + domain
		}
		if e.path == "" || e.path[0] != '/' {
			e.path = defaultPath(u.Path)
		}

		key := entryKey{domain: e.domain, path: e.path, name: e.name}
		switch {
		case c.MaxAge < 0:
			delete(j.entries, key)
			continue
		case c.MaxAge > 0:
			e.expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			if !c.Expires.After(now) {
				delete(j.entries, key)
				continue
			}
			e.expires = c.Expires
		}
		j.entries[key] = e
	}
}

// defaultPath follows RFC 6265 section 5.1.4.
func defaultPath(path string) string {
	if len(path) == 0 || path[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(path, "/")
	if i == 0 {
		return "/"
	}
	return path[:i]
}

// Clear drops every cookie held in memory, files on disk are left untouched.
func (j *Jar) Clear() error {
	inner, err := newInner()
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner = inner
	j.entries = map[entryKey]entry{}
	return nil
}

// Len returns the number of unexpired cookies, session cookies included.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	count := 0
	for _, e := range j.entries {
		if !e.expired(now) {
			count++
		}
	}
	return count
}

func boolField(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// Save writes every persistent, unexpired cookie to `path`. Session cookies
// are discarded.
func (j *Jar) Save(path string) error {
	j.mu.Lock()
	now := j.now()
	var entries []entry
	for _, e := range j.entries {
		if e.expires.IsZero() || e.expired(now) {
			continue
		}
		entries = append(entries, e)
	}
	j.mu.Unlock()

	sort.Slice(entries, func(a, b int) bool {
		if entries[a].domain != entries[b].domain {
			return entries[a].domain < entries[b].domain
		}
		if entries[a].path != entries[b].path {
			return entries[a].path < entries[b].path
		}
		return entries[a].name < entries[b].name
	})

	var out strings.Builder
	out.WriteString(header)
	for _, e := range entries {
		if e.httpOnly {
			out.WriteString(httpOnlyPrefix)
		}
		out.WriteString(strings.Join([]string{
			e.domain,
			boolField(!e.hostOnly()),
			e.path,
			boolField(e.secure),
			strconv.FormatInt(e.expires.Unix(), 10),
			e.name,
			e.value,
		}, "\t"))
		out.WriteByte('\n')
	}

	err := os.MkdirAll(filepath.Dir(path), 0700)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out.String()), 0600)
}

// Load merges the cookies stored at `path` into the jar. A missing file is
// not an error, it just leaves the jar as it was.
func (j *Jar) Load(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	now := j.now()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		} else if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return fmt.Errorf("load cookies %s: line %d: expected 7 fields, got %d", path, lineNo, len(fields))
		}

		var expires time.Time
		if fields[4] != "" && fields[4] != "0" {
			unix, err := strconv.ParseInt(fields[4], 10, 64)
			if err != nil {
				return fmt.Errorf("load cookies %s: line %d: invalid expiry: %w", path, lineNo, err)
			}
			expires = time.Unix(unix, 0)
			if !expires.After(now) {
				continue
			}
		}

		domain := fields[0]
		host := strings.TrimPrefix(domain, ".")
		secure := fields[3] == "TRUE"
		scheme := "http"
		if secure {
			scheme = "https"
		}

		cookie := &http.Cookie{
			Name:     fields[5],
			Value:    fields[6],
			Path:     fields[2],
			Secure:   secure,
			HttpOnly: httpOnly,
			Expires:  expires,
		}
		if fields[1] == "TRUE" || strings.HasPrefix(domain, ".") {
			cookie.Domain = host
		}
		j.SetCookies(&url.URL{Scheme: scheme, Host: host, Path: fields[2]}, []*http.Cookie{cookie})
	}
	return scanner.Err()
}
