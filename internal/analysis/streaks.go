package analysis

import (
	"fmt"
	"sort"
	"time"
)

// ActiveDates returns the distinct days on which the athlete logged an activity.
// HR zone data alone never makes a day active.
func ActiveDates(athleteID string, activities []ActivityRecord) []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, a := range activities {
		if a.AthleteID != athleteID || a.Date.IsZero() {
			continue
		}
		d := Day(a.Date)
		if seen[d] {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// AthleteStreak computes the current and longest consecutive-day streaks.
//
// The current streak is the run ending at the latest active date when that
// date is today or yesterday; otherwise it has lapsed and is 0. A non-zero
// span bounds the dates that may be supplied.
func AthleteStreak(athleteID string, activeDates []time.Time, today time.Time, span DateRange) (Streak, error) {
	streak := Streak{AthleteID: athleteID}
	if len(activeDates) == 0 {
		return streak, nil
	}

	ref := Day(today)
	days := make([]time.Time, 0, len(activeDates))
	for _, t := range activeDates {
		d := Day(t)
		if !span.IsZero() && !span.Contains(d) {
			return Streak{}, fmt.Errorf("%w: athlete %s active date %s outside %s..%s", ErrInvalidRecord,
				athleteID, d.Format("2006-01-02"), span.Start.Format("2006-01-02"), span.End.Format("2006-01-02"))
		}
		if d.After(ref) {
			return Streak{}, fmt.Errorf("%w: athlete %s active date %s is after %s", ErrInvalidRecord,
				athleteID, d.Format("2006-01-02"), ref.Format("2006-01-02"))
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 0
	var prev time.Time
	for i, d := range days {
		switch {
		case i == 0:
			run = 1
		case d.Equal(prev):
			// duplicate day
		case daysBetween(prev, d) == 1:
			run++
		default:
			run = 1
		}
		if run > streak.Longest {
			streak.Longest = run
		}
		prev = d
	}

	if daysBetween(prev, ref) <= 1 {
		streak.Current = run
	}
	return streak, nil
}

// Badge is a streak achievement tier
type Badge struct {
	Emoji string `json:"emoji"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// StreakBadge returns the badge earned by a streak of the given length
func StreakBadge(days int) Badge {
	switch {
	case days >= 30:
		return Badge{Emoji: "🏆", Name: "Legend", Color: "#FFD700"}
	case days >= 14:
		return Badge{Emoji: "🔥", Name: "Fire", Color: "#FF4500"}
	case days >= 7:
		return Badge{Emoji: "⚡", Name: "Lightning", Color: "#1E90FF"}
	case days >= 3:
		return Badge{Emoji: "⭐", Name: "Star", Color: "#32CD32"}
	default:
		return Badge{Color: "#808080"}
	}
}
