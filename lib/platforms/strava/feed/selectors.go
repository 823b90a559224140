package feed

// Selectors for the feed markup. Cards carry the pagination attributes,
// activities carry the fields of a record.
const (
	SelectCard      = "div.activity.feed-entry.card"
	SelectTimestamp = "time time"
	AttrRank        = "data-rank"
	AttrUpdatedAt   = "data-updated-at"
	AttrDatetime    = "datetime"

	SelectActivity  = "div.activity"
	SelectAthlete   = "a.entry-owner"
	SelectTitleLink = "h3 a"
	SelectStat      = "div.media-body ul.list-stats .stat"
	SelectAddKudo   = "div.entry-footer div.media-actions button.js-add-kudo"
)

// TimestampLayout parses the machine readable datetime attribute,
// ex. "2020-01-03 08:00:00 UTC".
const TimestampLayout = "2006-01-02 15:04:05 MST"

// TimezoneSuffix is removed from datetimes before they are compared while
// recomputing the cursor.
const TimezoneSuffix = " UTC"
