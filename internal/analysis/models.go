package analysis

import (
	"errors"
	"time"
)

// ErrInvalidConfiguration is returned for bad competition parameters
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrInvalidRecord is returned for malformed or out-of-range input data
var ErrInvalidRecord = errors.New("invalid record")

// NumZones is the number of heart rate zones scored
const NumZones = 5

// Athlete is a roster entry
type Athlete struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ActivityRecord is a single recorded activity
type ActivityRecord struct {
	ActivityID    int64     `json:"activity_id"`
	AthleteID     string    `json:"athlete_id"`
	Date          time.Time `json:"date"`
	Name          string    `json:"name"`
	SportType     string    `json:"sport_type"`
	Distance      float64   `json:"distance"`       // meters
	MovingTime    int       `json:"moving_time"`    // seconds
	ElevationGain float64   `json:"elevation_gain"` // meters
}

// ZoneDurations holds seconds spent in zones 1 through 5 (index 0 is zone 1)
type ZoneDurations [NumZones]float64

// Add returns the elementwise sum of two duration sets
func (z ZoneDurations) Add(o ZoneDurations) ZoneDurations {
	var out ZoneDurations
	for i := range z {
		out[i] = z[i] + o[i]
	}
	return out
}

// HRZoneRecord is the time-in-zone summary for one activity
type HRZoneRecord struct {
	ActivityID int64         `json:"activity_id"`
	AthleteID  string        `json:"athlete_id"`
	Date       time.Time     `json:"date"`
	Zones      ZoneDurations `json:"zones"`
}

// ZonePoints holds the points contributed by each zone
type ZonePoints [NumZones]float64

// Total sums all zones
func (p ZonePoints) Total() float64 {
	var total float64
	for _, v := range p {
		total += v
	}
	return total
}

// WeeklyScore is an athlete's scoring summary for one competition week
type WeeklyScore struct {
	AthleteID string     `json:"athlete_id"`
	Week      int        `json:"week"`
	Points    float64    `json:"points"`
	Breakdown ZonePoints `json:"breakdown"`
	Records   int        `json:"records"`
}

// Streak is the consecutive-day activity summary for an athlete
type Streak struct {
	AthleteID string `json:"athlete_id"`
	Current   int    `json:"current"`
	Longest   int    `json:"longest"`
}

// LeaderboardEntry is one row of the season standings
type LeaderboardEntry struct {
	Rank              int     `json:"rank"`
	AthleteID         string  `json:"athlete_id"`
	Name              string  `json:"name"`
	TotalPoints       float64 `json:"total_points"`
	CurrentWeekPoints float64 `json:"current_week_points"`
	Activities        int     `json:"activities"`
	PointsBehind      float64 `json:"points_behind"`
}

// DateRange is an inclusive range of calendar days.
// The zero value means unbounded.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the range is unbounded
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether the day of t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Extend returns the range widened by the given number of days before the start
func (r DateRange) Extend(daysBefore int) DateRange {
	return DateRange{Start: r.Start.AddDate(0, 0, -daysBefore), End: r.End}
}

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole number of days from a to b
func daysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
