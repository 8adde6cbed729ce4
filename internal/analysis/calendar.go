package analysis

import (
	"fmt"
	"time"
)

// DaysPerWeek is the length of every competition week
const DaysPerWeek = 7

// CalendarMode controls how the configured start date maps to week 1
type CalendarMode string

const (
	// CalendarVerbatim starts week 1 on the configured date
	CalendarVerbatim CalendarMode = "verbatim"
	// CalendarAlignMonday moves the start forward to the nearest Monday
	CalendarAlignMonday CalendarMode = "align_monday"
)

// WeekStatus describes a week relative to a reference date
type WeekStatus string

const (
	StatusUpcoming  WeekStatus = "upcoming"
	StatusCurrent   WeekStatus = "current"
	StatusCompleted WeekStatus = "completed"
)

// CompetitionWeek is one 7-day block of the competition
type CompetitionWeek struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether the day of t falls inside the week
func (w CompetitionWeek) Contains(t time.Time) bool {
	return w.Range().Contains(t)
}

// Range returns the week as an inclusive date range
func (w CompetitionWeek) Range() DateRange {
	return DateRange{Start: w.Start, End: w.End}
}

// Status classifies the week relative to ref
func (w CompetitionWeek) Status(ref time.Time) WeekStatus {
	switch d := Day(ref); {
	case w.Contains(d):
		return StatusCurrent
	case w.End.Before(d):
		return StatusCompleted
	default:
		return StatusUpcoming
	}
}

// Counted reports whether the week contributes to season totals as of ref
func (w CompetitionWeek) Counted(ref time.Time) bool {
	return w.Status(ref) != StatusUpcoming
}

// Label returns a display label like "Week 1 (08/11 - 08/17)"
func (w CompetitionWeek) Label() string {
	return fmt.Sprintf("Week %d (%s - %s)", w.Index, w.Start.Format("01/02"), w.End.Format("01/02"))
}

// ParseStartDate parses a YYYY-MM-DD competition start date
func ParseStartDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start date %q: %v", ErrInvalidConfiguration, s, err)
	}
	return t, nil
}

// ParseCalendarMode validates a calendar mode string; empty means verbatim
func ParseCalendarMode(s string) (CalendarMode, error) {
	switch CalendarMode(s) {
	case "", CalendarVerbatim:
		return CalendarVerbatim, nil
	case CalendarAlignMonday:
		return CalendarAlignMonday, nil
	default:
		return "", fmt.Errorf("%w: unknown calendar mode %q", ErrInvalidConfiguration, s)
	}
}

// ComputeWeeks builds the ordered competition schedule
func ComputeWeeks(start time.Time, weekCount int, mode CalendarMode) ([]CompetitionWeek, error) {
	if weekCount <= 0 {
		return nil, fmt.Errorf("%w: week count must be positive, got %d", ErrInvalidConfiguration, weekCount)
	}
	if start.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidConfiguration)
	}

	first := Day(start)
	switch mode {
	case "", CalendarVerbatim:
	case CalendarAlignMonday:
		first = nextMonday(first)
	default:
		return nil, fmt.Errorf("%w: unknown calendar mode %q", ErrInvalidConfiguration, mode)
	}

	weeks := make([]CompetitionWeek, weekCount)
	for i := range weeks {
		s := first.AddDate(0, 0, i*DaysPerWeek)
		weeks[i] = CompetitionWeek{
			Index: i + 1,
			Start: s,
			End:   s.AddDate(0, 0, DaysPerWeek-1),
		}
	}
	return weeks, nil
}

// nextMonday returns d if it is a Monday, otherwise the following Monday
func nextMonday(d time.Time) time.Time {
	offset := (int(time.Monday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}

// ClassifyDate returns the week containing date, if any
func ClassifyDate(date time.Time, weeks []CompetitionWeek) (CompetitionWeek, bool) {
	for _, w := range weeks {
		if w.Contains(date) {
			return w, true
		}
	}
	return CompetitionWeek{}, false
}

// Span returns the full competition range, or the zero range for no weeks
func Span(weeks []CompetitionWeek) DateRange {
	if len(weeks) == 0 {
		return DateRange{}
	}
	return DateRange{Start: weeks[0].Start, End: weeks[len(weeks)-1].End}
}

// WeekState is a week annotated with its status as of a reference date
type WeekState struct {
	CompetitionWeek
	Status WeekStatus `json:"status"`
	Label  string     `json:"label"`
}

// WeekStates annotates every week with its status as of ref
func WeekStates(weeks []CompetitionWeek, ref time.Time) []WeekState {
	states := make([]WeekState, len(weeks))
	for i, w := range weeks {
		states[i] = WeekState{CompetitionWeek: w, Status: w.Status(ref), Label: w.Label()}
	}
	return states
}

// Phase is the competition's overall state
type Phase string

const (
	PhasePre        Phase = "pre-competition"
	PhaseInProgress Phase = "in-progress"
	PhasePost       Phase = "post-competition"
)

// CompetitionProgress summarises where ref falls in the competition
type CompetitionProgress struct {
	Phase           Phase   `json:"phase"`
	CurrentWeek     int     `json:"current_week"` // 0 before start, len(weeks)+1 after end
	TotalWeeks      int     `json:"total_weeks"`
	DaysUntilStart  int     `json:"days_until_start"`
	DaysElapsed     int     `json:"days_elapsed"`
	DaysRemaining   int     `json:"days_remaining"`
	TotalDays       int     `json:"total_days"`
	PercentComplete float64 `json:"percent_complete"`
}

// Progress reports the competition phase and day counters as of ref
func Progress(weeks []CompetitionWeek, ref time.Time) CompetitionProgress {
	p := CompetitionProgress{TotalWeeks: len(weeks)}
	if len(weeks) == 0 {
		return p
	}

	span := Span(weeks)
	today := Day(ref)
	p.TotalDays = daysBetween(span.Start, span.End) + 1

	switch {
	case today.Before(span.Start):
		p.Phase = PhasePre
		p.DaysUntilStart = daysBetween(today, span.Start)
		p.DaysRemaining = p.TotalDays
	case today.After(span.End):
		p.Phase = PhasePost
		p.CurrentWeek = len(weeks) + 1
		p.DaysElapsed = p.TotalDays
		p.PercentComplete = 100
	default:
		p.Phase = PhaseInProgress
		w, _ := ClassifyDate(today, weeks)
		p.CurrentWeek = w.Index
		p.DaysElapsed = daysBetween(span.Start, today) + 1
		p.DaysRemaining = daysBetween(today, span.End)
		p.PercentComplete = float64(p.DaysElapsed) / float64(p.TotalDays) * 100
	}
	return p
}
