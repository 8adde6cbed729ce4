package supabase

import (
	"context"
	"fmt"

	"granfondo/internal/analysis"
)

// Athletes returns the roster in competition form
func (c *Client) Athletes(ctx context.Context) ([]analysis.Athlete, error) {
	rows, err := c.GetAthletes(ctx)
	if err != nil {
		return nil, err
	}
	athletes := make([]analysis.Athlete, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		athletes = append(athletes, analysis.Athlete{ID: string(row.ID), Name: row.DisplayName()})
	}
	return athletes, nil
}

// Activities returns cleaned activities within r, excluding non-competition sports
func (c *Client) Activities(ctx context.Context, r analysis.DateRange) ([]analysis.ActivityRecord, error) {
	rows, err := c.GetActivities(ctx, r)
	if err != nil {
		return nil, err
	}
	raw := make([]analysis.ActivityRecord, 0, len(rows))
	for _, row := range rows {
		raw = append(raw, ToActivityRecord(row))
	}
	return analysis.CleanActivities(raw), nil
}

// HRZones returns zone records within r. A row with a NULL zone is an
// ErrInvalidRecord; rows for excluded sports are skipped.
func (c *Client) HRZones(ctx context.Context, r analysis.DateRange) ([]analysis.HRZoneRecord, error) {
	rows, err := c.GetHeartRateZones(ctx, r)
	if err != nil {
		return nil, err
	}
	records := make([]analysis.HRZoneRecord, 0, len(rows))
	for _, row := range rows {
		if row.Activities == nil || row.Activities.AthleteID == "" {
			continue
		}
		if analysis.IsExcludedSport(analysis.NormalizeSportType(row.Activities.SportType, 0)) {
			continue
		}
		rec, err := ToHRZoneRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ToActivityRecord converts an API row. Missing numeric columns become zero.
func ToActivityRecord(row Activity) analysis.ActivityRecord {
	return analysis.ActivityRecord{
		ActivityID:    row.ID,
		AthleteID:     string(row.AthleteID),
		Date:          row.StartDate.Time,
		Name:          row.Name,
		SportType:     row.SportType,
		Distance:      deref(row.Distance),
		MovingTime:    int(deref(row.MovingTime)),
		ElevationGain: deref(row.TotalElevationGain),
	}
}

// ToHRZoneRecord converts an API row, rejecting rows with a missing zone value
func ToHRZoneRecord(row HeartRateZones) (analysis.HRZoneRecord, error) {
	var rec analysis.HRZoneRecord
	if row.ActivityID != nil {
		rec.ActivityID = *row.ActivityID
	}
	if row.Activities != nil {
		rec.AthleteID = string(row.Activities.AthleteID)
		rec.Date = row.Activities.StartDate.Time
	}

	zones := []*float64{row.Zone1Seconds, row.Zone2Seconds, row.Zone3Seconds, row.Zone4Seconds, row.Zone5Seconds}
	for i, z := range zones {
		if z == nil {
			return rec, fmt.Errorf("%w: activity %d zone %d is missing", analysis.ErrInvalidRecord, rec.ActivityID, i+1)
		}
		rec.Zones[i] = *z
	}
	if err := analysis.ValidateZones(rec.Zones); err != nil {
		return rec, fmt.Errorf("activity %d: %w", rec.ActivityID, err)
	}
	return rec, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
