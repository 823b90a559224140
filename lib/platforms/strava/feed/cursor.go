package feed

import (
	"cmp"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoCursor is returned when the next page is requested before any page
// established a cursor.
var ErrNoCursor = errors.New("no feed cursor, load a page first")

// Cursor holds the opaque markers the feed is paginated with.
type Cursor struct {
	// Cursor is the rank of the lowest ranked card.
	Cursor string
	// Before is the update time of the card with the earliest timestamp.
	Before string
}

type cardMarker struct {
	rank      string
	updatedAt string
	timestamp string
}

func collectMarkers(doc *goquery.Document) []cardMarker {
	var markers []cardMarker
	doc.Find(SelectCard).Each(func(_ int, card *goquery.Selection) {
		rank, ok := card.Attr(AttrRank)
		if !ok {
			return
		}
		updatedAt, ok := card.Attr(AttrUpdatedAt)
		if !ok {
			return
		}
		datetime, ok := card.Find(SelectTimestamp).First().Attr(AttrDatetime)
		if !ok {
			return
		}
		markers = append(markers, cardMarker{
			rank:      rank,
			updatedAt: updatedAt,
			timestamp: strings.ReplaceAll(datetime, TimezoneSuffix, ""),
		})
	})
	return markers
}

// compareRanks orders ranks numerically, falling back to a string comparison
// if either side is not a number. Ranks of different lengths ("9", "10")
// sort by value, not by their first digit.
func compareRanks(a, b string) int {
	na, errA := strconv.ParseFloat(a, 64)
	nb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(a, b)
}

// NextCursor recomputes the cursor from `doc`. When the page has no cards the
// previous cursor is returned unchanged with ok set to false.
func NextCursor(doc *goquery.Document, previous Cursor) (next Cursor, ok bool) {
	markers := collectMarkers(doc)
	if len(markers) == 0 {
		return previous, false
	}

	byRank := slices.Clone(markers)
	slices.SortStableFunc(byRank, func(a, b cardMarker) int {
		return compareRanks(a.rank, b.rank)
	})
	byTime := slices.Clone(markers)
	slices.SortStableFunc(byTime, func(a, b cardMarker) int {
		return strings.Compare(a.timestamp, b.timestamp)
	})

	return Cursor{
		Cursor: byRank[0].rank,
		Before: byTime[0].updatedAt,
	}, true
}
