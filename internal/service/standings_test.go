package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"granfondo/internal/analysis"
)

func TestStandings_Leaderboard(t *testing.T) {
	svc := NewStandingsService(competitionData(), testWeeks(t), DefaultStreakLookbackDays)

	entries, err := svc.Leaderboard(context.Background(), date(2025, 8, 20))
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}

	want := []struct {
		id      string
		total   float64
		current float64
		behind  float64
	}{
		{"bob", 9, 4, 0},
		{"alice", 6, 3, 3},
		{"carol", 0, 0, 9},
	}
	if len(entries) != len(want) {
		t.Fatalf("len(entries) = %d, want %d", len(entries), len(want))
	}
	for i, w := range want {
		e := entries[i]
		if e.AthleteID != w.id || e.TotalPoints != w.total || e.CurrentWeekPoints != w.current || e.PointsBehind != w.behind {
			t.Errorf("entries[%d] = %+v, want %s total=%v current=%v behind=%v", i, e, w.id, w.total, w.current, w.behind)
		}
	}
}

func TestStandings_LeaderboardBeforeStart(t *testing.T) {
	svc := NewStandingsService(competitionData(), testWeeks(t), DefaultStreakLookbackDays)

	entries, err := svc.Leaderboard(context.Background(), date(2025, 8, 1))
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	for _, e := range entries {
		if e.TotalPoints != 0 {
			t.Errorf("%s total = %v before the start, want 0", e.AthleteID, e.TotalPoints)
		}
	}
}

func TestStandings_WeeklyScores(t *testing.T) {
	svc := NewStandingsService(competitionData(), testWeeks(t), DefaultStreakLookbackDays)
	ctx := context.Background()

	ws, err := svc.WeeklyScores(ctx, 2, date(2025, 8, 20))
	if err != nil {
		t.Fatalf("WeeklyScores failed: %v", err)
	}
	if ws.Week.Status != analysis.StatusCurrent {
		t.Errorf("status = %q, want current", ws.Week.Status)
	}
	got := []string{ws.Scores[0].AthleteID, ws.Scores[1].AthleteID, ws.Scores[2].AthleteID}
	if got[0] != "bob" || got[1] != "alice" || got[2] != "carol" {
		t.Errorf("order = %v, want [bob alice carol]", got)
	}
	if ws.Scores[0].Points != 4 || ws.Scores[1].Points != 3 {
		t.Errorf("points = %v/%v, want 4/3", ws.Scores[0].Points, ws.Scores[1].Points)
	}

	if _, err := svc.WeeklyScores(ctx, 9, date(2025, 8, 20)); !errors.Is(err, ErrWeekNotFound) {
		t.Errorf("err = %v, want ErrWeekNotFound", err)
	}
}

func TestStandings_Streaks(t *testing.T) {
	svc := NewStandingsService(competitionData(), testWeeks(t), DefaultStreakLookbackDays)
	ctx := context.Background()

	streaks, err := svc.Streaks(ctx, date(2025, 8, 20))
	if err != nil {
		t.Fatalf("Streaks failed: %v", err)
	}

	want := []struct {
		id      string
		current int
		longest int
		badge   string
	}{
		{"alice", 6, 6, "Star"},
		{"bob", 1, 1, ""},
		{"carol", 0, 3, ""},
	}
	if len(streaks) != len(want) {
		t.Fatalf("len(streaks) = %d, want %d", len(streaks), len(want))
	}
	for i, w := range want {
		s := streaks[i]
		if s.AthleteID != w.id || s.Current != w.current || s.Longest != w.longest || s.Badge.Name != w.badge {
			t.Errorf("streaks[%d] = %+v, want %s %d/%d %q", i, s, w.id, w.current, w.longest, w.badge)
		}
	}

	// Later activities are ignored when asking about an earlier day
	past, err := svc.Streaks(ctx, date(2025, 8, 17))
	if err != nil {
		t.Fatalf("Streaks failed: %v", err)
	}
	if past[0].AthleteID != "alice" || past[0].Current != 3 {
		t.Errorf("alice on 8/17 = %+v, want current 3", past[0])
	}
}

func TestStandings_StreakLookbackExcluded(t *testing.T) {
	svc := NewStandingsService(competitionData(), testWeeks(t), 0)

	streaks, err := svc.Streaks(context.Background(), date(2025, 8, 20))
	if err != nil {
		t.Fatalf("Streaks failed: %v", err)
	}
	for _, s := range streaks {
		if s.AthleteID == "carol" && s.Longest != 0 {
			t.Errorf("carol longest = %d without lookback, want 0", s.Longest)
		}
	}
}

func TestStandings_Performance(t *testing.T) {
	svc := NewStandingsService(competitionData(), testWeeks(t), DefaultStreakLookbackDays)

	rows, err := svc.Performance(context.Background())
	if err != nil {
		t.Fatalf("Performance failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4", len(rows))
	}

	want := []analysis.PerformanceRow{
		{Week: 1, AthleteID: "alice", Points: 3, CyclingMiles: 60, Activities: 3},
		{Week: 1, AthleteID: "bob", Points: 5, CyclingMiles: 30, Activities: 1},
		{Week: 2, AthleteID: "alice", Points: 3, CyclingMiles: 60, Activities: 3},
		{Week: 2, AthleteID: "bob", Points: 4, CyclingMiles: 30, Activities: 1},
	}
	for i, w := range want {
		r := rows[i]
		if r.Week != w.Week || r.AthleteID != w.AthleteID || r.Points != w.Points ||
			math.Abs(r.CyclingMiles-w.CyclingMiles) > 0.05 || r.Activities != w.Activities {
			t.Errorf("rows[%d] = %+v, want %+v", i, r, w)
		}
	}
}

func TestStandings_SportMileage(t *testing.T) {
	svc := NewStandingsService(competitionData(), testWeeks(t), DefaultStreakLookbackDays)

	totals, err := svc.SportMileage(context.Background())
	if err != nil {
		t.Fatalf("SportMileage failed: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("len(totals) = %d, want 2 (pre-start runs excluded)", len(totals))
	}
	if totals[0].Sport != analysis.SportPeloton || totals[0].Miles != 120 || totals[0].Activities != 6 {
		t.Errorf("totals[0] = %+v, want Peloton 120mi 6 activities", totals[0])
	}
}

func TestStandings_AthleteDetail(t *testing.T) {
	svc := NewStandingsService(competitionData(), testWeeks(t), DefaultStreakLookbackDays)
	ctx := context.Background()

	d, err := svc.AthleteDetail(ctx, "alice", date(2025, 8, 20))
	if err != nil {
		t.Fatalf("AthleteDetail failed: %v", err)
	}
	if d.Standing.Rank != 2 || d.Standing.TotalPoints != 6 {
		t.Errorf("standing = %+v, want rank 2 with 6 points", d.Standing)
	}
	if d.Streak.Current != 6 {
		t.Errorf("streak = %+v, want current 6", d.Streak)
	}
	if d.Stats.Activities != 6 || d.Stats.TotalCyclingMiles != 120 || d.Stats.WeeklyCyclingMiles != 60 {
		t.Errorf("stats = %+v", d.Stats)
	}
	if len(d.Weekly) != 8 || d.Weekly[0].Points != 3 || d.Weekly[2].Points != 0 {
		t.Errorf("weekly = %+v", d.Weekly)
	}
	if d.LastSession == nil || !analysis.Day(d.LastSession.Date).Equal(date(2025, 8, 20)) {
		t.Errorf("last session = %+v, want 2025-08-20", d.LastSession)
	}

	if _, err := svc.AthleteDetail(ctx, "zed", date(2025, 8, 20)); !errors.Is(err, ErrAthleteNotFound) {
		t.Errorf("err = %v, want ErrAthleteNotFound", err)
	}
}

func TestStandings_InvalidRecord(t *testing.T) {
	src := competitionData()
	src.hrRecords = append(src.hrRecords, analysis.HRZoneRecord{
		ActivityID: 99, AthleteID: "bob", Date: date(2025, 8, 13), Zones: zones(0, -60, 0, 0, 0),
	})
	svc := NewStandingsService(src, testWeeks(t), DefaultStreakLookbackDays)

	if _, err := svc.Leaderboard(context.Background(), date(2025, 8, 20)); !errors.Is(err, analysis.ErrInvalidRecord) {
		t.Errorf("err = %v, want ErrInvalidRecord", err)
	}
}

func TestStandings_SourceError(t *testing.T) {
	src := competitionData()
	src.err = errors.New("source down")
	svc := NewStandingsService(src, testWeeks(t), DefaultStreakLookbackDays)

	if _, err := svc.Leaderboard(context.Background(), date(2025, 8, 20)); err == nil {
		t.Error("expected error when the source fails")
	}
}

func TestStandings_FromSyncedStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	weeks := testWeeks(t)

	standings := NewStandingsService(db, weeks, DefaultStreakLookbackDays)
	sync := NewSyncService(competitionData(), db, standings.TrackedSpan())
	if _, err := sync.SyncAll(ctx, nil); err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}

	entries, err := standings.Leaderboard(ctx, date(2025, 8, 20))
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if entries[0].AthleteID != "bob" || entries[0].TotalPoints != 9 {
		t.Errorf("leader = %+v, want bob with 9", entries[0])
	}

	streaks, err := standings.Streaks(ctx, date(2025, 8, 20))
	if err != nil {
		t.Fatalf("Streaks failed: %v", err)
	}
	if streaks[0].AthleteID != "alice" || streaks[0].Current != 6 {
		t.Errorf("top streak = %+v, want alice 6", streaks[0])
	}
}

func TestStandings_WeeksAndProgress(t *testing.T) {
	svc := NewStandingsService(competitionData(), testWeeks(t), -1)

	states := svc.Weeks(date(2025, 8, 20))
	if len(states) != 8 || states[0].Status != analysis.StatusCompleted || states[1].Status != analysis.StatusCurrent {
		t.Errorf("states = %+v", states)
	}

	p := svc.Progress(date(2025, 8, 20))
	if p.Phase != analysis.PhaseInProgress || p.CurrentWeek != 2 || p.DaysElapsed != 10 {
		t.Errorf("progress = %+v", p)
	}

	if got := svc.TrackedSpan().Start; !got.Equal(date(2025, 6, 12)) {
		t.Errorf("tracked start = %v, want 2025-06-12", got)
	}
}

// rangeRecorder notes every range the service asks its source for
type rangeRecorder struct {
	Source
	ranges map[string]bool
}

func (r *rangeRecorder) Activities(ctx context.Context, dr analysis.DateRange) ([]analysis.ActivityRecord, error) {
	r.ranges[rangeLabel(dr)] = true
	return r.Source.Activities(ctx, dr)
}

func (r *rangeRecorder) HRZones(ctx context.Context, dr analysis.DateRange) ([]analysis.HRZoneRecord, error) {
	r.ranges[rangeLabel(dr)] = true
	return r.Source.HRZones(ctx, dr)
}

func rangeLabel(r analysis.DateRange) string {
	return r.Start.Format("2006-01-02") + ".." + r.End.Format("2006-01-02")
}

func TestStandings_QueryRangesCoverReads(t *testing.T) {
	ctx := context.Background()
	rec := &rangeRecorder{Source: competitionData(), ranges: map[string]bool{}}
	weeks := testWeeks(t)
	svc := NewStandingsService(rec, weeks, DefaultStreakLookbackDays)
	ref := date(2025, 8, 20)

	if _, err := svc.Leaderboard(ctx, ref); err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	for _, w := range weeks {
		if _, err := svc.WeeklyScores(ctx, w.Index, ref); err != nil {
			t.Fatalf("WeeklyScores(%d) failed: %v", w.Index, err)
		}
	}
	if _, err := svc.Streaks(ctx, ref); err != nil {
		t.Fatalf("Streaks failed: %v", err)
	}
	if _, err := svc.Performance(ctx); err != nil {
		t.Fatalf("Performance failed: %v", err)
	}
	if _, err := svc.SportMileage(ctx); err != nil {
		t.Fatalf("SportMileage failed: %v", err)
	}
	if _, err := svc.AthleteDetail(ctx, "alice", ref); err != nil {
		t.Fatalf("AthleteDetail failed: %v", err)
	}

	listed := map[string]bool{}
	for _, r := range svc.QueryRanges() {
		listed[rangeLabel(r)] = true
	}
	for r := range rec.ranges {
		if !listed[r] {
			t.Errorf("range %s was read but is not in QueryRanges", r)
		}
	}
	if len(svc.QueryRanges()) != len(weeks)+2 {
		t.Errorf("len(QueryRanges) = %d, want %d", len(svc.QueryRanges()), len(weeks)+2)
	}
}
