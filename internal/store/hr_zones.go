package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"granfondo/internal/analysis"
)

// UpsertHRZones inserts or updates the time-in-zone summary for an activity.
// Records are keyed by activity, so a re-sync overwrites rather than duplicates.
func (db *DB) UpsertHRZones(ctx context.Context, r analysis.HRZoneRecord) error {
	if r.ActivityID == 0 {
		return ErrMissingActivityID
	}
	if r.AthleteID == "" || r.Date.IsZero() {
		return fmt.Errorf("%w: hr zones for activity %d missing athlete or date", analysis.ErrInvalidRecord, r.ActivityID)
	}
	if err := analysis.ValidateZones(r.Zones); err != nil {
		return fmt.Errorf("activity %d: %w", r.ActivityID, err)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO heart_rate_zones (
			activity_id, athlete_id, start_date,
			zone_1_seconds, zone_2_seconds, zone_3_seconds, zone_4_seconds, zone_5_seconds,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			start_date = excluded.start_date,
			zone_1_seconds = excluded.zone_1_seconds,
			zone_2_seconds = excluded.zone_2_seconds,
			zone_3_seconds = excluded.zone_3_seconds,
			zone_4_seconds = excluded.zone_4_seconds,
			zone_5_seconds = excluded.zone_5_seconds,
			updated_at = CURRENT_TIMESTAMP
	`,
		r.ActivityID, r.AthleteID, r.Date.UTC().Format(time.RFC3339),
		r.Zones[0], r.Zones[1], r.Zones[2], r.Zones[3], r.Zones[4],
	)
	return err
}

// HRZones returns zone records whose start date falls within r, oldest first.
// A stored row with a missing zone value yields ErrInvalidRecord.
func (db *DB) HRZones(ctx context.Context, r analysis.DateRange) ([]analysis.HRZoneRecord, error) {
	from, to := rangeBounds(r)
	rows, err := db.QueryContext(ctx, `
		SELECT activity_id, athlete_id, start_date,
			zone_1_seconds, zone_2_seconds, zone_3_seconds, zone_4_seconds, zone_5_seconds
		FROM heart_rate_zones
		WHERE start_date >= ? AND start_date < ?
		ORDER BY start_date, activity_id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []analysis.HRZoneRecord
	for rows.Next() {
		rec, err := scanHRZones(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanHRZones(s scanner) (*analysis.HRZoneRecord, error) {
	var rec analysis.HRZoneRecord
	var startDate string
	var zones [analysis.NumZones]sql.NullFloat64

	if err := s.Scan(
		&rec.ActivityID, &rec.AthleteID, &startDate,
		&zones[0], &zones[1], &zones[2], &zones[3], &zones[4],
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: hr zones for activity %d start date %q", analysis.ErrInvalidRecord, rec.ActivityID, startDate)
	}
	rec.Date = t

	for i, z := range zones {
		if !z.Valid {
			return nil, fmt.Errorf("%w: activity %d zone %d is missing", analysis.ErrInvalidRecord, rec.ActivityID, i+1)
		}
		rec.Zones[i] = z.Float64
	}
	return &rec, nil
}
