package feed

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"time"

	"stravatools/lib/htmlutil"
	"stravatools/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
)

const report_extractor_activity = "extractor.activity"

// ErrExtractionSkipped marks an activity element that was dropped from the
// extracted sequence, it is only ever reported, never returned.
var ErrExtractionSkipped = errors.New("activity skipped")

// Activity is one entry of the feed.
type Activity struct {
	Id      string
	Athlete string
	// Time is the time as displayed, ex. "Today at 8:00 AM".
	Time     string
	Datetime time.Time
	Title    string

	Distance  string
	Duration  string
	Elevation string

	// Kudoed is true when the page showed no way of giving a kudo.
	Kudoed bool
	// Dirty is true when a kudo was sent this run and no reload confirmed it
	// yet.
	Dirty bool
}

type statRule struct {
	pattern *regexp.Regexp
	assign  func(a *Activity, value string)
}

var statRules = []statRule{
	{
		pattern: regexp.MustCompile(`\s*Distance\s*(.+)\s`),
		assign:  func(a *Activity, v string) { a.Distance = v },
	},
	{
		pattern: regexp.MustCompile(`\s*Time\s*(.+)\s`),
		assign:  func(a *Activity, v string) { a.Duration = v },
	},
	{
		pattern: regexp.MustCompile(`\s*Elevation Gain\s*(.+)\s`),
		assign:  func(a *Activity, v string) { a.Elevation = v },
	},
}

// extractStat returns the first capture of `pattern` across the stats of an
// activity, "" if no stat matches.
func extractStat(stats *goquery.Selection, pattern *regexp.Regexp) string {
	for _, node := range stats.Nodes {
		match := pattern.FindStringSubmatch(htmlutil.GetText(node))
		if match != nil {
			return match[1]
		}
	}
	return ""
}

func extractActivity(sel *goquery.Selection) (Activity, error) {
	// the id is the log's key, a record without one could never be merged
	href, ok := htmlutil.FirstAttr(sel.Find(SelectTitleLink), "href")
	if !ok {
		return Activity{}, fmt.Errorf("missing title link")
	}
	id := htmlutil.LastPathSegment(href)
	if id == "" {
		return Activity{}, fmt.Errorf("empty activity id in %q", href)
	}

	activity := Activity{Id: id}
	activity.Athlete, _ = htmlutil.FirstText(sel.Find(SelectAthlete))
	activity.Title, _ = htmlutil.FirstText(sel.Find(SelectTitleLink))
	activity.Time, _ = htmlutil.FirstText(sel.Find(SelectTimestamp))

	datetime, ok := htmlutil.FirstAttr(sel.Find(SelectTimestamp), AttrDatetime)
	if ok {
		parsed, err := time.Parse(TimestampLayout, datetime)
		if err != nil {
			return Activity{}, fmt.Errorf("activity %s: %w", id, err)
		}
		activity.Datetime = parsed
	}

	stats := sel.Find(SelectStat)
	for _, rule := range statRules {
		rule.assign(&activity, extractStat(stats, rule.pattern))
	}

	activity.Kudoed = sel.Find(SelectAddKudo).Length() == 0
	return activity, nil
}

// Extract yields an Activity per activity element of `doc`, in document
// order. Elements that cannot be turned into an Activity are reported and
// skipped. Each call scans the document again.
func Extract(doc *goquery.Document, tel telemetry.API) iter.Seq[Activity] {
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return func(yield func(Activity) bool) {
		if doc == nil {
			return
		}
		elements := doc.Find(SelectActivity)
		for i := range elements.Length() {
			activity, err := extractActivity(elements.Eq(i))
			if err != nil {
				tel.ReportWarning(report_extractor_activity, fmt.Errorf("%w: %w", ErrExtractionSkipped, err))
				continue
			}
			if !yield(activity) {
				return
			}
		}
	}
}
