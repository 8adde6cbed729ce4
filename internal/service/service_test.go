package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"granfondo/internal/analysis"
	"granfondo/internal/store"
)

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db, err := store.NewTestDB(sqlDB)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func testWeeks(t *testing.T) []analysis.CompetitionWeek {
	t.Helper()
	weeks, err := analysis.ComputeWeeks(date(2025, 8, 11), 8, analysis.CalendarVerbatim)
	if err != nil {
		t.Fatalf("ComputeWeeks failed: %v", err)
	}
	return weeks
}

// fakeSource serves fixed records, filtered by range like a real source
type fakeSource struct {
	athletes   []analysis.Athlete
	activities []analysis.ActivityRecord
	hrRecords  []analysis.HRZoneRecord
	err        error
}

func (f *fakeSource) Athletes(ctx context.Context) ([]analysis.Athlete, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.athletes, nil
}

func (f *fakeSource) Activities(ctx context.Context, r analysis.DateRange) ([]analysis.ActivityRecord, error) {
	var out []analysis.ActivityRecord
	for _, a := range f.activities {
		if r.IsZero() || r.Contains(a.Date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSource) HRZones(ctx context.Context, r analysis.DateRange) ([]analysis.HRZoneRecord, error) {
	var out []analysis.HRZoneRecord
	for _, rec := range f.hrRecords {
		if r.IsZero() || r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func zones(z1, z2, z3, z4, z5 float64) analysis.ZoneDurations {
	return analysis.ZoneDurations{z1, z2, z3, z4, z5}
}

// competitionData is a small season: alice rides daily in week 2, bob rides
// hard twice, carol only rode before the start
func competitionData() *fakeSource {
	src := &fakeSource{
		athletes: []analysis.Athlete{
			{ID: "alice", Name: "Alice"},
			{ID: "bob", Name: "Bob"},
			{ID: "carol", Name: "Carol"},
		},
	}

	id := int64(1)
	add := func(athlete string, when time.Time, sport string, meters float64, z analysis.ZoneDurations) {
		src.activities = append(src.activities, analysis.ActivityRecord{
			ActivityID: id, AthleteID: athlete, Date: when, Name: sport + " session",
			SportType: sport, Distance: meters, MovingTime: 3600,
		})
		src.hrRecords = append(src.hrRecords, analysis.HRZoneRecord{
			ActivityID: id, AthleteID: athlete, Date: when, Zones: z,
		})
		id++
	}

	for d := 15; d <= 20; d++ {
		add("alice", at(2025, 8, d, 7), analysis.SportPeloton, 32186.88, zones(3600, 0, 0, 0, 0))
	}
	add("bob", at(2025, 8, 12, 18), analysis.SportBike, 48280.32, zones(0, 0, 0, 0, 3600))
	add("bob", at(2025, 8, 19, 18), analysis.SportBike, 48280.32, zones(0, 0, 0, 3600, 0))
	add("carol", at(2025, 8, 1, 9), analysis.SportRun, 5000, zones(0, 0, 3600, 0, 0))
	for d := 8; d <= 10; d++ {
		add("carol", at(2025, 8, d, 9), analysis.SportRun, 5000, zones(0, 0, 3600, 0, 0))
	}

	// A duplicate zone record for bob's first ride must not double count
	dup := src.hrRecords[6]
	src.hrRecords = append(src.hrRecords, dup)
	return src
}
