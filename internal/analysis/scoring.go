package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// ZoneMultipliers are the points awarded per hour in each zone
var ZoneMultipliers = [NumZones]float64{1, 2, 3, 4, 5}

const secondsPerHour = 3600.0

// ValidateZones rejects negative, NaN and infinite durations
func ValidateZones(z ZoneDurations) error {
	for i, sec := range z {
		if math.IsNaN(sec) || math.IsInf(sec, 0) {
			return fmt.Errorf("%w: zone %d duration is not a finite number", ErrInvalidRecord, i+1)
		}
		if sec < 0 {
			return fmt.Errorf("%w: zone %d duration is negative (%v)", ErrInvalidRecord, i+1, sec)
		}
	}
	return nil
}

// ZoneBreakdown converts each zone's duration to points
func ZoneBreakdown(z ZoneDurations) (ZonePoints, error) {
	if err := ValidateZones(z); err != nil {
		return ZonePoints{}, err
	}
	var p ZonePoints
	for i, sec := range z {
		p[i] = sec / secondsPerHour * ZoneMultipliers[i]
	}
	return p, nil
}

// ScorePoints returns the weighted points for a set of zone durations.
// Fractional hours yield fractional points.
func ScorePoints(z ZoneDurations) (float64, error) {
	p, err := ZoneBreakdown(z)
	if err != nil {
		return 0, err
	}
	return p.Total(), nil
}

// validateRecord checks the fields every HR record must carry
func validateRecord(r HRZoneRecord) error {
	if r.AthleteID == "" {
		return fmt.Errorf("%w: hr record for activity %d has no athlete", ErrInvalidRecord, r.ActivityID)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: hr record for activity %d has no date", ErrInvalidRecord, r.ActivityID)
	}
	if err := ValidateZones(r.Zones); err != nil {
		return fmt.Errorf("athlete %s on %s: %w", r.AthleteID, r.Date.Format("2006-01-02"), err)
	}
	return nil
}

// WeeklyScoreFor sums an athlete's points for the records falling inside week
func WeeklyScoreFor(athleteID string, week CompetitionWeek, records []HRZoneRecord) (WeeklyScore, error) {
	total, n, err := weekDurations(athleteID, week, records)
	if err != nil {
		return WeeklyScore{}, err
	}
	p, err := ZoneBreakdown(total)
	if err != nil {
		return WeeklyScore{}, err
	}
	return WeeklyScore{AthleteID: athleteID, Week: week.Index, Points: p.Total(), Breakdown: p, Records: n}, nil
}

// weekDurations totals the athlete's raw zone seconds inside week. Seconds
// are summed before conversion so the result does not depend on record order.
func weekDurations(athleteID string, week CompetitionWeek, records []HRZoneRecord) (ZoneDurations, int, error) {
	var total ZoneDurations
	n := 0
	for _, r := range records {
		if r.AthleteID != athleteID || !week.Contains(r.Date) {
			continue
		}
		if err := validateRecord(r); err != nil {
			return ZoneDurations{}, 0, err
		}
		total = total.Add(r.Zones)
		n++
	}
	return total, n, nil
}

// DedupeByActivity keeps the first HR record for each activity ID.
// Records without an activity ID are always kept.
func DedupeByActivity(records []HRZoneRecord) ([]HRZoneRecord, int) {
	seen := make(map[int64]bool, len(records))
	kept := make([]HRZoneRecord, 0, len(records))
	for _, r := range records {
		if r.ActivityID != 0 {
			if seen[r.ActivityID] {
				continue
			}
			seen[r.ActivityID] = true
		}
		kept = append(kept, r)
	}
	return kept, len(records) - len(kept)
}

// SeasonLeaderboard ranks athletes by points earned in current and completed weeks.
// Ties break on current-week points, then athlete ID.
func SeasonLeaderboard(athletes []Athlete, weeks []CompetitionWeek, records []HRZoneRecord, ref time.Time) ([]LeaderboardEntry, error) {
	for _, r := range records {
		if err := validateRecord(r); err != nil {
			return nil, err
		}
	}

	current, hasCurrent := ClassifyDate(ref, weeks)

	entries := make([]LeaderboardEntry, 0, len(athletes))
	for _, a := range athletes {
		entry := LeaderboardEntry{AthleteID: a.ID, Name: a.Name}
		var season ZoneDurations
		for _, w := range weeks {
			if !w.Counted(ref) {
				continue
			}
			week, n, err := weekDurations(a.ID, w, records)
			if err != nil {
				return nil, err
			}
			season = season.Add(week)
			entry.Activities += n
			if hasCurrent && w.Index == current.Index {
				if entry.CurrentWeekPoints, err = ScorePoints(week); err != nil {
					return nil, err
				}
			}
		}
		total, err := ScorePoints(season)
		if err != nil {
			return nil, err
		}
		entry.TotalPoints = total
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.CurrentWeekPoints != b.CurrentWeekPoints {
			return a.CurrentWeekPoints > b.CurrentWeekPoints
		}
		return a.AthleteID < b.AthleteID
	})

	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].PointsBehind = entries[0].TotalPoints - entries[i].TotalPoints
	}
	return entries, nil
}
