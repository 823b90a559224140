package feed

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

type card struct {
	rank      string
	updatedAt string
	datetime  string
}

func (c card) html() string {
	return fmt.Sprintf(
		`<div class="activity feed-entry card" data-rank="%s" data-updated-at="%s"><time><time datetime="%s">t</time></time></div>`,
		c.rank, c.updatedAt, c.datetime,
	)
}

func cardsPage(t testing.TB, cards ...card) *goquery.Document {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, c := range cards {
		b.WriteString(c.html())
	}
	b.WriteString("</body></html>")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	return doc
}

func permutations(cards []card) [][]card {
	if len(cards) <= 1 {
		return [][]card{cards}
	}
	var out [][]card
	for i := range cards {
		rest := append(append([]card(nil), cards[:i]...), cards[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]card{cards[i]}, p...))
		}
	}
	return out
}

func TestNextCursorIgnoresDocumentOrder(t *testing.T) {
	cards := []card{
		{rank: "5", updatedAt: "u5", datetime: "2020-01-02 10:00:00 UTC"},
		{rank: "3", updatedAt: "u3", datetime: "2020-01-03 10:00:00 UTC"},
		{rank: "8", updatedAt: "u8", datetime: "2020-01-01 10:00:00 UTC"},
	}
	orders := permutations(cards)
	require.Len(t, orders, 6)

	for _, order := range orders {
		next, ok := NextCursor(cardsPage(t, order...), Cursor{})
		require.True(t, ok)
		require.Equal(t, Cursor{Cursor: "3", Before: "u8"}, next, "order %v", order)
	}
}

func TestNextCursorEmptyPageRetains(t *testing.T) {
	previous := Cursor{Cursor: "42", Before: "1578000000"}
	next, ok := NextCursor(cardsPage(t), previous)
	require.False(t, ok)
	require.Equal(t, previous, next)
}

func TestNextCursorSkipsIncompleteCards(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>
<div class="activity feed-entry card" data-updated-at="u1"><time><time datetime="2020-01-01 00:00:00 UTC"></time></time></div>
<div class="activity feed-entry card" data-rank="2"><time><time datetime="2020-01-01 00:00:00 UTC"></time></time></div>
<div class="activity feed-entry card" data-rank="3" data-updated-at="u3"></div>
<div class="activity feed-entry card" data-rank="9" data-updated-at="u9"><time><time datetime="2020-01-05 00:00:00 UTC"></time></time></div>
</body></html>`))
	require.NoError(t, err)

	next, ok := NextCursor(doc, Cursor{})
	require.True(t, ok)
	require.Equal(t, Cursor{Cursor: "9", Before: "u9"}, next)
}

func TestNextCursorComparesRanksNumerically(t *testing.T) {
	next, ok := NextCursor(cardsPage(t,
		card{rank: "10", updatedAt: "u10", datetime: "2020-01-02 00:00:00 UTC"},
		card{rank: "9", updatedAt: "u9", datetime: "2020-01-01 00:00:00 UTC"},
	), Cursor{})
	require.True(t, ok)
	require.Equal(t, "9", next.Cursor)
	require.Equal(t, "u9", next.Before)
}

func TestCompareRanks(t *testing.T) {
	require.Negative(t, compareRanks("9", "10"))
	require.Positive(t, compareRanks("10", "9"))
	require.Zero(t, compareRanks("10", "10"))
	require.Negative(t, compareRanks("10", "9a"))
	require.Negative(t, compareRanks("1.5", "2"))
}
