package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MetersPerMile converts meters to statute miles
const MetersPerMile = 1609.344

// Sport types used by the competition
const (
	SportRide        = "Ride"
	SportVirtualRide = "VirtualRide"
	SportPeloton     = "Peloton"
	SportBike        = "Bike"
	SportRun         = "Run"
	SportTennis      = "Tennis"
)

// NormalizeSportType cleans a sport type as stored by the ingest pipeline.
// Serialized enum wrappers like root='Ride' are stripped, plain rides are
// indoor (Peloton) unless they gained elevation, in which case they are Bike.
func NormalizeSportType(raw string, elevationGain float64) string {
	s := stripRootWrapper(raw)
	if s == SportRide {
		s = SportPeloton
	}
	if s == SportPeloton && elevationGain > 0 {
		s = SportBike
	}
	return s
}

func stripRootWrapper(v string) string {
	if !strings.HasPrefix(v, "root=") {
		return v
	}
	v = strings.TrimPrefix(v, "root=")
	if len(v) >= 2 {
		if (v[0] == '\'' && v[len(v)-1] == '\'') || (v[0] == '"' && v[len(v)-1] == '"') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// IsCycling reports whether a normalized sport type counts as cycling
func IsCycling(sport string) bool {
	switch sport {
	case SportRide, SportVirtualRide, SportPeloton, SportBike:
		return true
	}
	return false
}

// IsExcludedSport reports whether a sport is outside the competition
func IsExcludedSport(sport string) bool {
	return sport == SportTennis
}

// CleanActivities normalizes names and sport types of raw activities and
// drops sports outside the competition. The input is not modified.
func CleanActivities(raw []ActivityRecord) []ActivityRecord {
	out := make([]ActivityRecord, 0, len(raw))
	for _, a := range raw {
		a.Name = stripRootWrapper(a.Name)
		a.SportType = NormalizeSportType(a.SportType, a.ElevationGain)
		if IsExcludedSport(a.SportType) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// MetersToMiles converts a distance in meters to miles
func MetersToMiles(meters float64) float64 {
	if meters <= 0 {
		return 0
	}
	return meters / MetersPerMile
}

// FormatDuration renders seconds as "1h 2m 3s", "2m 3s" or "3s"
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "N/A"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// PerformanceRow is one athlete's results for one week
type PerformanceRow struct {
	Week         int     `json:"week"`
	AthleteID    string  `json:"athlete_id"`
	Name         string  `json:"name"`
	Points       int     `json:"points"`
	CyclingMiles float64 `json:"cycling_miles"`
	Activities   int     `json:"activities"`
	DateRange    string  `json:"date_range"`
}

// WeeklyPerformance builds a week by athlete table for every athlete with HR
// data in a week. Points are truncated to whole numbers for display.
func WeeklyPerformance(athletes []Athlete, weeks []CompetitionWeek, activities []ActivityRecord, hrRecords []HRZoneRecord) ([]PerformanceRow, error) {
	var rows []PerformanceRow
	for _, w := range weeks {
		for _, a := range athletes {
			ws, err := WeeklyScoreFor(a.ID, w, hrRecords)
			if err != nil {
				return nil, err
			}
			if ws.Records == 0 {
				continue
			}
			var meters float64
			var count int
			for _, act := range activities {
				if act.AthleteID != a.ID || !w.Contains(act.Date) {
					continue
				}
				count++
				if IsCycling(act.SportType) {
					meters += act.Distance
				}
			}
			rows = append(rows, PerformanceRow{
				Week:         w.Index,
				AthleteID:    a.ID,
				Name:         a.Name,
				Points:       int(ws.Points),
				CyclingMiles: round1(MetersToMiles(meters)),
				Activities:   count,
				DateRange:    w.Label(),
			})
		}
	}
	return rows, nil
}

// SportTotals aggregates one sport's activities
type SportTotals struct {
	Sport      string  `json:"sport"`
	Miles      float64 `json:"miles"`
	Hours      float64 `json:"hours"`
	Activities int     `json:"activities"`
}

// SportMileage totals miles, hours and activity counts per sport inside r
func SportMileage(activities []ActivityRecord, r DateRange) []SportTotals {
	bySport := make(map[string]*SportTotals)
	for _, a := range activities {
		if !r.IsZero() && !r.Contains(a.Date) {
			continue
		}
		t, ok := bySport[a.SportType]
		if !ok {
			t = &SportTotals{Sport: a.SportType}
			bySport[a.SportType] = t
		}
		t.Miles += MetersToMiles(a.Distance)
		t.Hours += float64(a.MovingTime) / secondsPerHour
		t.Activities++
	}

	totals := make([]SportTotals, 0, len(bySport))
	for _, t := range bySport {
		t.Miles = math.Round(t.Miles*100) / 100
		t.Hours = math.Round(t.Hours*100) / 100
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Miles != totals[j].Miles {
			return totals[i].Miles > totals[j].Miles
		}
		return totals[i].Sport < totals[j].Sport
	})
	return totals
}

// AthleteStats are personal aggregates over an athlete's activities
type AthleteStats struct {
	AthleteID          string  `json:"athlete_id"`
	Activities         int     `json:"activities"`
	TotalCyclingMiles  float64 `json:"total_cycling_miles"`
	WeeklyCyclingMiles float64 `json:"weekly_cycling_miles"`
	MovingTime         int     `json:"moving_time"` // seconds
	LongestRideMiles   float64 `json:"longest_ride_miles"`
	MostElevation      float64 `json:"most_elevation"` // meters
}

// AthleteTotals aggregates an athlete's activities; week bounds the weekly figure
func AthleteTotals(athleteID string, activities []ActivityRecord, week DateRange) AthleteStats {
	stats := AthleteStats{AthleteID: athleteID}
	var total, weekly, longest float64
	for _, a := range activities {
		if a.AthleteID != athleteID {
			continue
		}
		stats.Activities++
		stats.MovingTime += a.MovingTime
		if a.ElevationGain > stats.MostElevation {
			stats.MostElevation = a.ElevationGain
		}
		if !IsCycling(a.SportType) {
			continue
		}
		total += a.Distance
		if a.Distance > longest {
			longest = a.Distance
		}
		if !week.IsZero() && week.Contains(a.Date) {
			weekly += a.Distance
		}
	}
	stats.TotalCyclingMiles = round1(MetersToMiles(total))
	stats.WeeklyCyclingMiles = round1(MetersToMiles(weekly))
	stats.LongestRideMiles = round1(MetersToMiles(longest))
	return stats
}
