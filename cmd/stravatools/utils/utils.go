package utils

import (
	"io"
	"slices"

	"stravatools/lib/platforms/strava/feed"
	"stravatools/lib/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
)

const TitleWidth = 30

func NewTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

// KudoMark is '*' for a kudo sent this run, '✓' for one the page showed.
func KudoMark(a feed.Activity) string {
	switch {
	case a.Dirty:
		return "*"
	case a.Kudoed:
		return "✓"
	default:
		return ""
	}
}

func displayTime(a feed.Activity) string {
	if a.Datetime.IsZero() {
		return a.Time
	}
	return a.Datetime.Format(feed.TimestampLayout)
}

// RenderActivities prints the activities oldest first so the newest ends up
// right above the prompt.
func RenderActivities(out io.Writer, activities []feed.Activity) {
	t := NewTable(out)
	t.AppendHeader(table.Row{"Kudo", "Time", "Athlete", "Distance", "Duration", "Elevation", "Title"})
	for _, a := range slices.Backward(activities) {
		t.AppendRow(table.Row{
			KudoMark(a),
			displayTime(a),
			a.Athlete,
			a.Distance,
			a.Duration,
			a.Elevation,
			textutil.Truncate(a.Title, TitleWidth),
		})
	}
	t.Render()
}
