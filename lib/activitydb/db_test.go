package activitydb

import (
	"context"
	"testing"
	"time"

	"stravatools/lib/platforms/strava/feed"
	"stravatools/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSaveAndList(t *testing.T) {
	db, err := Open(testutil.TempPath(t, "archive/activities.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	activities := []feed.Activity{
		{
			Id:        "1001",
			Athlete:   "AliceSmith",
			Time:      "Today at 8:00 AM",
			Datetime:  time.Date(2020, 1, 3, 8, 0, 0, 0, time.UTC),
			Title:     "MorningRun",
			Distance:  "10.2 km",
			Duration:  "52m 10s",
			Elevation: "120 m",
		},
		{
			Id:       "1002",
			Athlete:  "Bob Stone",
			Datetime: time.Date(2020, 1, 2, 18, 30, 0, 0, time.UTC),
			Title:    "Evening Ride",
			Kudoed:   true,
		},
		{Id: "1005", Title: "No Timestamp"},
	}
	require.NoError(t, db.SaveActivities(ctx, activities))

	got, err := db.ListActivities(ctx)
	require.NoError(t, err)
	diff := cmp.Diff(activities, got)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestSaveUpserts(t *testing.T) {
	db, err := Open(testutil.TempPath(t, "activities.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	activity := feed.Activity{Id: "1001", Title: "MorningRun", Datetime: time.Unix(1578038400, 0).UTC()}
	require.NoError(t, db.SaveActivities(ctx, []feed.Activity{activity}))

	activity.Kudoed = true
	activity.Dirty = true
	require.NoError(t, db.SaveActivities(ctx, []feed.Activity{activity}))

	got, err := db.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Kudoed)
	require.False(t, got[0].Dirty)
}

func TestReopen(t *testing.T) {
	path := testutil.TempPath(t, "activities.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveActivities(context.Background(), []feed.Activity{{Id: "1"}}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.ListActivities(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
}
