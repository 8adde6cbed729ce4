package analysis

import (
	"math"
	"testing"
)

func TestNormalizeSportType(t *testing.T) {
	tests := []struct {
		raw       string
		elevation float64
		expected  string
	}{
		{"Ride", 0, "Peloton"},
		{"Ride", 120, "Bike"},
		{"root='Ride'", 0, "Peloton"},
		{`root="Ride"`, 45, "Bike"},
		{"root=Ride", 0, "Peloton"},
		{"root='VirtualRide'", 0, "VirtualRide"},
		{"Peloton", 10, "Bike"},
		{"Run", 30, "Run"},
		{"root='Run'", 0, "Run"},
		{"Tennis", 0, "Tennis"},
		{"", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeSportType(tt.raw, tt.elevation); got != tt.expected {
				t.Errorf("NormalizeSportType(%q, %v) = %q, want %q", tt.raw, tt.elevation, got, tt.expected)
			}
		})
	}
}

func TestIsCycling(t *testing.T) {
	for _, s := range []string{"Ride", "VirtualRide", "Peloton", "Bike"} {
		if !IsCycling(s) {
			t.Errorf("IsCycling(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"Run", "Walk", "Tennis", ""} {
		if IsCycling(s) {
			t.Errorf("IsCycling(%q) = true, want false", s)
		}
	}
	if !IsExcludedSport("Tennis") || IsExcludedSport("Bike") {
		t.Error("only Tennis is excluded")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{0, "N/A"},
		{-5, "N/A"},
		{45, "45s"},
		{60, "1m 0s"},
		{125, "2m 5s"},
		{3600, "1h 0m 0s"},
		{3723, "1h 2m 3s"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatDuration(tt.seconds); got != tt.expected {
				t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.expected)
			}
		})
	}
}

func TestMetersToMiles(t *testing.T) {
	if got := MetersToMiles(1609.344); math.Abs(got-1) > 1e-9 {
		t.Errorf("MetersToMiles(1609.344) = %v, want 1", got)
	}
	if got := MetersToMiles(-10); got != 0 {
		t.Errorf("MetersToMiles(-10) = %v, want 0", got)
	}
}

func TestWeeklyPerformance(t *testing.T) {
	weeks := mustWeeks(t, date(2025, 8, 11), 2)
	athletes := []Athlete{{ID: "a", Name: "Alice"}, {ID: "b", Name: "Bob"}}
	activities := []ActivityRecord{
		{AthleteID: "a", Date: date(2025, 8, 12), SportType: "Bike", Distance: 2 * MetersPerMile},
		{AthleteID: "a", Date: date(2025, 8, 13), SportType: "Run", Distance: 5000},
		{AthleteID: "a", Date: date(2025, 8, 19), SportType: "Peloton", Distance: MetersPerMile},
		{AthleteID: "b", Date: date(2025, 8, 12), SportType: "Bike", Distance: MetersPerMile},
	}
	records := []HRZoneRecord{
		hr("a", date(2025, 8, 12), 3600, 0, 0, 0, 2700), // 1 + 3.75
		hr("a", date(2025, 8, 19), 0, 3600, 0, 0, 0),
	}

	rows, err := WeeklyPerformance(athletes, weeks, activities, records)
	if err != nil {
		t.Fatalf("WeeklyPerformance failed: %v", err)
	}
	// bob has no HR data so gets no rows
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	w1 := rows[0]
	if w1.Week != 1 || w1.AthleteID != "a" {
		t.Errorf("rows[0] = %+v", w1)
	}
	if w1.Points != 4 {
		t.Errorf("Points = %d, want 4 (truncated)", w1.Points)
	}
	if w1.CyclingMiles != 2 {
		t.Errorf("CyclingMiles = %v, want 2", w1.CyclingMiles)
	}
	if w1.Activities != 2 {
		t.Errorf("Activities = %d, want 2", w1.Activities)
	}
	if w1.DateRange != "Week 1 (08/11 - 08/17)" {
		t.Errorf("DateRange = %q", w1.DateRange)
	}
	if rows[1].Week != 2 || rows[1].Points != 2 || rows[1].CyclingMiles != 1 {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}

func TestSportMileage(t *testing.T) {
	weeks := mustWeeks(t, date(2025, 8, 11), 2)
	activities := []ActivityRecord{
		{Date: date(2025, 8, 12), SportType: "Bike", Distance: 10 * MetersPerMile, MovingTime: 3600},
		{Date: date(2025, 8, 13), SportType: "Bike", Distance: 5 * MetersPerMile, MovingTime: 1800},
		{Date: date(2025, 8, 13), SportType: "Run", Distance: 3 * MetersPerMile, MovingTime: 1800},
		{Date: date(2025, 8, 20), SportType: "Peloton", Distance: 50 * MetersPerMile, MovingTime: 7200},
	}

	totals := SportMileage(activities, weeks[0].Range())
	if len(totals) != 2 {
		t.Fatalf("len(totals) = %d, want 2", len(totals))
	}
	if totals[0].Sport != "Bike" || totals[0].Miles != 15 || totals[0].Hours != 1.5 || totals[0].Activities != 2 {
		t.Errorf("totals[0] = %+v", totals[0])
	}
	if totals[1].Sport != "Run" || totals[1].Miles != 3 {
		t.Errorf("totals[1] = %+v", totals[1])
	}
}

func TestAthleteTotals(t *testing.T) {
	weeks := mustWeeks(t, date(2025, 8, 11), 2)
	activities := []ActivityRecord{
		{AthleteID: "a", Date: date(2025, 8, 12), SportType: "Bike", Distance: 20 * MetersPerMile, MovingTime: 3600, ElevationGain: 300},
		{AthleteID: "a", Date: date(2025, 8, 19), SportType: "Peloton", Distance: 10 * MetersPerMile, MovingTime: 1800},
		{AthleteID: "a", Date: date(2025, 8, 20), SportType: "Run", Distance: 30 * MetersPerMile, MovingTime: 1200, ElevationGain: 500},
		{AthleteID: "b", Date: date(2025, 8, 19), SportType: "Bike", Distance: 99 * MetersPerMile},
	}

	stats := AthleteTotals("a", activities, weeks[1].Range())
	if stats.Activities != 3 {
		t.Errorf("Activities = %d, want 3", stats.Activities)
	}
	if stats.TotalCyclingMiles != 30 {
		t.Errorf("TotalCyclingMiles = %v, want 30", stats.TotalCyclingMiles)
	}
	if stats.WeeklyCyclingMiles != 10 {
		t.Errorf("WeeklyCyclingMiles = %v, want 10", stats.WeeklyCyclingMiles)
	}
	if stats.LongestRideMiles != 20 {
		t.Errorf("LongestRideMiles = %v, want 20", stats.LongestRideMiles)
	}
	if stats.MovingTime != 6600 {
		t.Errorf("MovingTime = %d, want 6600", stats.MovingTime)
	}
	if stats.MostElevation != 500 {
		t.Errorf("MostElevation = %v, want 500", stats.MostElevation)
	}
}

func TestCleanActivities(t *testing.T) {
	raw := []ActivityRecord{
		{ActivityID: 1, Name: "root='Ride'", SportType: "root='Ride'"},
		{ActivityID: 2, Name: "Hill repeats", SportType: "Ride", ElevationGain: 120},
		{ActivityID: 3, Name: "Doubles", SportType: "root=Tennis"},
		{ActivityID: 4, Name: "Easy run", SportType: "Run"},
	}

	got := CleanActivities(raw)
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	if got[0].Name != "Ride" || got[0].SportType != SportPeloton {
		t.Errorf("activity 1 = %q/%q, want Ride/Peloton", got[0].Name, got[0].SportType)
	}
	if got[1].SportType != SportBike {
		t.Errorf("activity 2 sport = %q, want Bike", got[1].SportType)
	}
	if got[2].ActivityID != 4 {
		t.Errorf("got[2].ActivityID = %d, want 4", got[2].ActivityID)
	}
	if raw[0].SportType != "root='Ride'" {
		t.Error("CleanActivities must not modify its input")
	}
}
