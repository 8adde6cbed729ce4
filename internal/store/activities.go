package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"granfondo/internal/analysis"
)

// UpsertActivity inserts or updates an activity
func (db *DB) UpsertActivity(ctx context.Context, a analysis.ActivityRecord) error {
	if a.ActivityID == 0 || a.AthleteID == "" || a.Date.IsZero() {
		return fmt.Errorf("%w: activity %d missing id, athlete or date", analysis.ErrInvalidRecord, a.ActivityID)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO activities (
			id, athlete_id, name, sport_type, start_date,
			distance, moving_time, total_elevation_gain, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			name = excluded.name,
			sport_type = excluded.sport_type,
			start_date = excluded.start_date,
			distance = excluded.distance,
			moving_time = excluded.moving_time,
			total_elevation_gain = excluded.total_elevation_gain,
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ActivityID, a.AthleteID, a.Name, a.SportType,
		a.Date.UTC().Format(time.RFC3339),
		a.Distance, a.MovingTime, a.ElevationGain,
	)
	return err
}

// Activities returns activities whose start date falls within r, oldest first.
// A zero range returns everything.
func (db *DB) Activities(ctx context.Context, r analysis.DateRange) ([]analysis.ActivityRecord, error) {
	from, to := rangeBounds(r)
	rows, err := db.QueryContext(ctx, `
		SELECT id, athlete_id, name, sport_type, start_date,
			distance, moving_time, total_elevation_gain
		FROM activities
		WHERE start_date >= ? AND start_date < ?
		ORDER BY start_date, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []analysis.ActivityRecord
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// CountActivities returns the number of stored activities
func (db *DB) CountActivities(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activities").Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(s scanner) (*analysis.ActivityRecord, error) {
	var a analysis.ActivityRecord
	var startDate string
	var movingTime sql.NullInt64

	if err := s.Scan(
		&a.ActivityID, &a.AthleteID, &a.Name, &a.SportType, &startDate,
		&a.Distance, &movingTime, &a.ElevationGain,
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: activity %d start date %q", analysis.ErrInvalidRecord, a.ActivityID, startDate)
	}
	a.Date = t
	a.MovingTime = int(movingTime.Int64)
	return &a, nil
}

// rangeBounds converts a date range into RFC3339 text bounds [from, to)
func rangeBounds(r analysis.DateRange) (string, string) {
	if r.IsZero() {
		return "0000-01-01T00:00:00Z", "9999-12-31T00:00:00Z"
	}
	from := analysis.Day(r.Start)
	to := analysis.Day(r.End).AddDate(0, 0, 1)
	return from.Format(time.RFC3339), to.Format(time.RFC3339)
}
