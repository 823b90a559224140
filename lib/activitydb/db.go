// Package activitydb archives the activity log of each run into sqlite.
package activitydb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stravatools/lib/platforms/strava/feed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

func wrapOpen(err error) error {
	return fmt.Errorf("open activity db: %w", err)
}

type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database at `path` if needed and applies the schema.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0700)
		if err != nil {
			return nil, wrapOpen(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpen(err)
	}

	// sqlite does not like concurrent writers
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, wrapOpen(err)
	}
	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, wrapOpen(err)
	}

	return &DB{db: db, now: time.Now}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

const upsertActivity = `
insert into activity (
    id, athlete, display_time, started_at, title,
    distance, duration, elevation, kudoed, seen_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (id) do update set
    athlete = excluded.athlete,
    display_time = excluded.display_time,
    started_at = excluded.started_at,
    title = excluded.title,
    distance = excluded.distance,
    duration = excluded.duration,
    elevation = excluded.elevation,
    kudoed = excluded.kudoed,
    seen_at = excluded.seen_at
`

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// SaveActivities inserts or updates every activity in a single transaction.
// A dirty activity is stored with the kudo it was given.
func (d *DB) SaveActivities(ctx context.Context, activities []feed.Activity) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertActivity)
	if err != nil {
		return err
	}
	defer stmt.Close()

	seenAt := d.now().Unix()
	for _, a := range activities {
		_, err = stmt.ExecContext(
			ctx,
			a.Id,
			a.Athlete,
			a.Time,
			unixOrZero(a.Datetime),
			a.Title,
			a.Distance,
			a.Duration,
			a.Elevation,
			a.Kudoed,
			seenAt,
		)
		if err != nil {
			return fmt.Errorf("save activity %s: %w", a.Id, err)
		}
	}

	return tx.Commit()
}

const listActivities = `
select id, athlete, display_time, started_at, title, distance, duration, elevation, kudoed
from activity
order by started_at desc, id
`

// ListActivities returns every archived activity, newest first.
func (d *DB) ListActivities(ctx context.Context) ([]feed.Activity, error) {
	rows, err := d.db.QueryContext(ctx, listActivities)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []feed.Activity
	for rows.Next() {
		var a feed.Activity
		var startedAt int64
		err = rows.Scan(
			&a.Id,
			&a.Athlete,
			&a.Time,
			&startedAt,
			&a.Title,
			&a.Distance,
			&a.Duration,
			&a.Elevation,
			&a.Kudoed,
		)
		if err != nil {
			return nil, err
		}
		if startedAt != 0 {
			a.Datetime = time.Unix(startedAt, 0).UTC()
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
