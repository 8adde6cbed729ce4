package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"granfondo/internal/analysis"
)

// Source reads competition data straight from the ingest database
type Source struct {
	db Querier
}

// NewSource creates a source over db
func NewSource(db Querier) *Source {
	return &Source{db: db}
}

// Athletes returns the roster ordered by ID
func (s *Source) Athletes(ctx context.Context) ([]analysis.Athlete, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, COALESCE(firstname, ''), COALESCE(lastname, '')
		FROM athletes
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying athletes: %w", err)
	}
	defer rows.Close()

	var athletes []analysis.Athlete
	for rows.Next() {
		var id, first, last string
		if err := rows.Scan(&id, &first, &last); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(first + " " + last)
		if name == "" {
			name = id
		}
		athletes = append(athletes, analysis.Athlete{ID: id, Name: name})
	}
	return athletes, rows.Err()
}

// Activities returns cleaned activities started within r, excluding
// non-competition sports. A zero range returns everything.
func (s *Source) Activities(ctx context.Context, r analysis.DateRange) ([]analysis.ActivityRecord, error) {
	from, to := bounds(r)
	rows, err := s.db.Query(ctx, `
		SELECT id, athlete_id::text, COALESCE(name, ''), COALESCE(sport_type, ''),
			start_date::timestamptz, distance, moving_time, total_elevation_gain
		FROM activities
		WHERE start_date >= $1 AND start_date < $2
		ORDER BY start_date, id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	var raw []analysis.ActivityRecord
	for rows.Next() {
		var a analysis.ActivityRecord
		var distance, movingTime, elevation pgtype.Float8
		if err := rows.Scan(
			&a.ActivityID, &a.AthleteID, &a.Name, &a.SportType,
			&a.Date, &distance, &movingTime, &elevation,
		); err != nil {
			return nil, err
		}
		a.Date = a.Date.UTC()
		a.Distance = distance.Float64
		a.MovingTime = int(movingTime.Float64)
		a.ElevationGain = elevation.Float64
		raw = append(raw, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return analysis.CleanActivities(raw), nil
}

// HRZones returns zone records whose activity started within r.
// A NULL zone column is an ErrInvalidRecord; excluded sports are skipped.
func (s *Source) HRZones(ctx context.Context, r analysis.DateRange) ([]analysis.HRZoneRecord, error) {
	from, to := bounds(r)
	rows, err := s.db.Query(ctx, `
		SELECT z.activity_id, a.athlete_id::text, a.start_date::timestamptz, COALESCE(a.sport_type, ''),
			z.zone_1_seconds, z.zone_2_seconds, z.zone_3_seconds, z.zone_4_seconds, z.zone_5_seconds
		FROM heart_rate_zones z
		JOIN activities a ON a.id = z.activity_id
		WHERE a.start_date >= $1 AND a.start_date < $2
		ORDER BY a.start_date, z.activity_id, z.id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying heart rate zones: %w", err)
	}
	defer rows.Close()

	var records []analysis.HRZoneRecord
	for rows.Next() {
		var rec analysis.HRZoneRecord
		var sport string
		var zones [analysis.NumZones]pgtype.Float8
		if err := rows.Scan(
			&rec.ActivityID, &rec.AthleteID, &rec.Date, &sport,
			&zones[0], &zones[1], &zones[2], &zones[3], &zones[4],
		); err != nil {
			return nil, err
		}
		if analysis.IsExcludedSport(analysis.NormalizeSportType(sport, 0)) {
			continue
		}
		rec.Date = rec.Date.UTC()
		for i, z := range zones {
			if !z.Valid {
				return nil, fmt.Errorf("%w: activity %d zone %d is missing", analysis.ErrInvalidRecord, rec.ActivityID, i+1)
			}
			rec.Zones[i] = z.Float64
		}
		if err := analysis.ValidateZones(rec.Zones); err != nil {
			return nil, fmt.Errorf("activity %d: %w", rec.ActivityID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// bounds converts a date range into a half-open timestamp interval
func bounds(r analysis.DateRange) (time.Time, time.Time) {
	if r.IsZero() {
		return time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return analysis.Day(r.Start), analysis.Day(r.End).AddDate(0, 0, 1)
}
