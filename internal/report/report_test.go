package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"granfondo/internal/analysis"
	"granfondo/internal/service"
)

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestLeaderboard(t *testing.T) {
	var buf bytes.Buffer
	entries := []analysis.LeaderboardEntry{
		{Rank: 1, AthleteID: "bob", Name: "Bob", TotalPoints: 9, CurrentWeekPoints: 4, Activities: 2},
		{Rank: 2, AthleteID: "alice", Name: "Alice", TotalPoints: 6.5, CurrentWeekPoints: 3, PointsBehind: 2.5, Activities: 1200},
		{Rank: 3, AthleteID: "carol"},
	}
	if err := Leaderboard(&buf, entries); err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	assertContains(t, buf.String(), "1st", "2nd", "3rd", "Bob", "Alice", "carol", "6.5", "2.5", "1,200")
}

func TestLeaderboard_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := Leaderboard(&buf, nil); err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	assertContains(t, buf.String(), "No athletes yet")
}

func TestWeeksAndProgress(t *testing.T) {
	weeks, err := analysis.ComputeWeeks(time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC), 8, analysis.CalendarVerbatim)
	if err != nil {
		t.Fatalf("ComputeWeeks failed: %v", err)
	}
	ref := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	if err := Weeks(&buf, analysis.WeekStates(weeks, ref)); err != nil {
		t.Fatalf("Weeks failed: %v", err)
	}
	assertContains(t, buf.String(), "Mon Aug 11 - Sun Aug 17", "completed", "current", "upcoming")

	buf.Reset()
	if err := Progress(&buf, analysis.Progress(weeks, ref)); err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	assertContains(t, buf.String(), "Week 2 of 8", "10 days elapsed")

	buf.Reset()
	Progress(&buf, analysis.Progress(weeks, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)))
	assertContains(t, buf.String(), "Starts in 10 days")
}

func TestWeekScores(t *testing.T) {
	var buf bytes.Buffer
	ws := &service.WeekScores{
		Week: analysis.WeekState{Status: analysis.StatusCurrent, Label: "Week 2 (08/18 - 08/24)"},
		Scores: []analysis.WeeklyScore{
			{AthleteID: "bob", Points: 4, Breakdown: analysis.ZonePoints{0, 0, 0, 4, 0}, Records: 1},
		},
	}
	if err := WeekScores(&buf, ws, map[string]string{"bob": "Bob"}); err != nil {
		t.Fatalf("WeekScores failed: %v", err)
	}
	assertContains(t, buf.String(), "Week 2 (08/18 - 08/24)", "Bob", "4.0")
}

func TestStreaks(t *testing.T) {
	var buf bytes.Buffer
	streaks := []service.AthleteStreak{
		{Streak: analysis.Streak{AthleteID: "alice", Current: 14, Longest: 20}, Name: "Alice", Badge: analysis.StreakBadge(14)},
		{Streak: analysis.Streak{AthleteID: "bob", Current: 1, Longest: 1}, Name: "Bob", Badge: analysis.StreakBadge(1)},
	}
	if err := Streaks(&buf, streaks); err != nil {
		t.Fatalf("Streaks failed: %v", err)
	}
	assertContains(t, buf.String(), "Alice", "14 days", "20 days", "Fire", "1 day")
}

func TestPerformanceAndMileage(t *testing.T) {
	var buf bytes.Buffer
	rows := []analysis.PerformanceRow{
		{Week: 1, AthleteID: "a", Name: "Alice", Points: 1234, CyclingMiles: 60.5, Activities: 3, DateRange: "Week 1 (08/11 - 08/17)"},
	}
	if err := Performance(&buf, rows); err != nil {
		t.Fatalf("Performance failed: %v", err)
	}
	assertContains(t, buf.String(), "Week 1 (08/11 - 08/17)", "1,234", "60.5 mi")

	buf.Reset()
	totals := []analysis.SportTotals{{Sport: "Peloton", Miles: 1520.25, Hours: 40.5, Activities: 60}}
	if err := SportMileage(&buf, totals); err != nil {
		t.Fatalf("SportMileage failed: %v", err)
	}
	assertContains(t, buf.String(), "Peloton", "1,520", "40.50")
}

func TestSyncSummary(t *testing.T) {
	var buf bytes.Buffer
	r := &service.SyncResult{
		RunID:             "run-1",
		AthletesStored:    3,
		ActivitiesFetched: 12,
		ActivitiesStored:  11,
		Errors:            []error{errors.New("storing activity 7: boom")},
	}
	if err := SyncSummary(&buf, r, 1500*time.Millisecond); err != nil {
		t.Fatalf("SyncSummary failed: %v", err)
	}
	assertContains(t, buf.String(), "1 errors", "run-1", "activities 11/12", "storing activity 7: boom")
}

func TestLastSync(t *testing.T) {
	now := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	if got := LastSync(time.Time{}, now); got != "never synced" {
		t.Errorf("LastSync(zero) = %q, want never synced", got)
	}
	if got := LastSync(now.Add(-3*time.Minute), now); got != "synced 3 minutes ago" {
		t.Errorf("LastSync = %q, want synced 3 minutes ago", got)
	}
}
