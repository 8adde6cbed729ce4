package service

import (
	"context"

	"granfondo/internal/analysis"
)

// Source supplies the raw competition records
type Source interface {
	Athletes(ctx context.Context) ([]analysis.Athlete, error)
	Activities(ctx context.Context, r analysis.DateRange) ([]analysis.ActivityRecord, error)
	HRZones(ctx context.Context, r analysis.DateRange) ([]analysis.HRZoneRecord, error)
}

// dataset is everything loaded for one standings computation
type dataset struct {
	athletes   []analysis.Athlete
	activities []analysis.ActivityRecord
	hrRecords  []analysis.HRZoneRecord
}
