package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"granfondo/internal/analysis"
)

// ErrWeekNotFound is returned for a week index outside the competition
var ErrWeekNotFound = errors.New("week not found")

// ErrAthleteNotFound is returned for an athlete missing from the roster
var ErrAthleteNotFound = errors.New("athlete not found")

// StandingsService answers read-only competition queries from a Source
type StandingsService struct {
	source       Source
	weeks        []analysis.CompetitionWeek
	lookbackDays int
}

// NewStandingsService creates a standings service over a computed calendar.
// Negative lookback uses DefaultStreakLookbackDays.
func NewStandingsService(source Source, weeks []analysis.CompetitionWeek, lookbackDays int) *StandingsService {
	if lookbackDays < 0 {
		lookbackDays = DefaultStreakLookbackDays
	}
	return &StandingsService{source: source, weeks: weeks, lookbackDays: lookbackDays}
}

// AthleteStreak is a streak with the athlete's name and badge
type AthleteStreak struct {
	analysis.Streak
	Name  string         `json:"name"`
	Badge analysis.Badge `json:"badge"`
}

// WeekScores are every athlete's scores for one week
type WeekScores struct {
	Week   analysis.WeekState     `json:"week"`
	Scores []analysis.WeeklyScore `json:"scores"`
}

// AthleteDetail is everything known about one athlete as of a date
type AthleteDetail struct {
	Athlete     analysis.Athlete          `json:"athlete"`
	Standing    analysis.LeaderboardEntry `json:"standing"`
	Streak      AthleteStreak             `json:"streak"`
	Stats       analysis.AthleteStats     `json:"stats"`
	Weekly      []analysis.WeeklyScore    `json:"weekly"`
	Sports      []analysis.SportTotals    `json:"sports"`
	LastSession *analysis.ActivityRecord  `json:"last_session,omitempty"`
}

// Span returns the competition's date range
func (s *StandingsService) Span() analysis.DateRange {
	return analysis.Span(s.weeks)
}

// TrackedSpan is the competition span widened by the streak lookback
func (s *StandingsService) TrackedSpan() analysis.DateRange {
	return s.Span().Extend(s.lookbackDays)
}

// QueryRanges lists every date range the service reads from its source:
// the competition span, the tracked span and each week
func (s *StandingsService) QueryRanges() []analysis.DateRange {
	ranges := []analysis.DateRange{s.Span(), s.TrackedSpan()}
	for _, w := range s.weeks {
		ranges = append(ranges, w.Range())
	}
	return ranges
}

// Weeks returns the calendar annotated with each week's status as of ref
func (s *StandingsService) Weeks(ref time.Time) []analysis.WeekState {
	return analysis.WeekStates(s.weeks, ref)
}

// Progress reports the competition phase as of ref
func (s *StandingsService) Progress(ref time.Time) analysis.CompetitionProgress {
	return analysis.Progress(s.weeks, ref)
}

// Leaderboard ranks every athlete on completed and current weeks as of ref
func (s *StandingsService) Leaderboard(ctx context.Context, ref time.Time) ([]analysis.LeaderboardEntry, error) {
	data, err := s.load(ctx, s.Span(), false)
	if err != nil {
		return nil, err
	}
	return analysis.SeasonLeaderboard(data.athletes, s.weeks, data.hrRecords, ref)
}

// WeeklyScores scores every athlete for the week with the given 1-based index,
// highest first
func (s *StandingsService) WeeklyScores(ctx context.Context, index int, ref time.Time) (*WeekScores, error) {
	week, err := s.week(index)
	if err != nil {
		return nil, err
	}

	data, err := s.load(ctx, week.Range(), false)
	if err != nil {
		return nil, err
	}

	scores := make([]analysis.WeeklyScore, 0, len(data.athletes))
	for _, a := range data.athletes {
		ws, err := analysis.WeeklyScoreFor(a.ID, week, data.hrRecords)
		if err != nil {
			return nil, err
		}
		scores = append(scores, ws)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Points != scores[j].Points {
			return scores[i].Points > scores[j].Points
		}
		return scores[i].AthleteID < scores[j].AthleteID
	})

	return &WeekScores{
		Week:   analysis.WeekState{CompetitionWeek: week, Status: week.Status(ref), Label: week.Label()},
		Scores: scores,
	}, nil
}

// Streaks computes every athlete's streak as of ref, longest current first
func (s *StandingsService) Streaks(ctx context.Context, ref time.Time) ([]AthleteStreak, error) {
	data, err := s.load(ctx, s.TrackedSpan(), true)
	if err != nil {
		return nil, err
	}

	streaks, err := s.streaks(ctx, data, ref)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(streaks, func(i, j int) bool {
		if streaks[i].Current != streaks[j].Current {
			return streaks[i].Current > streaks[j].Current
		}
		if streaks[i].Longest != streaks[j].Longest {
			return streaks[i].Longest > streaks[j].Longest
		}
		return streaks[i].AthleteID < streaks[j].AthleteID
	})
	return streaks, nil
}

// Performance builds the week-by-athlete results table
func (s *StandingsService) Performance(ctx context.Context) ([]analysis.PerformanceRow, error) {
	data, err := s.load(ctx, s.Span(), true)
	if err != nil {
		return nil, err
	}
	return analysis.WeeklyPerformance(data.athletes, s.weeks, data.activities, data.hrRecords)
}

// SportMileage totals each sport over the competition span
func (s *StandingsService) SportMileage(ctx context.Context) ([]analysis.SportTotals, error) {
	span := s.Span()
	activities, err := s.source.Activities(ctx, span)
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}
	return analysis.SportMileage(activities, span), nil
}

// AthleteDetail gathers one athlete's standing, streak, weekly scores and
// activity aggregates as of ref
func (s *StandingsService) AthleteDetail(ctx context.Context, id string, ref time.Time) (*AthleteDetail, error) {
	data, err := s.load(ctx, s.TrackedSpan(), true)
	if err != nil {
		return nil, err
	}

	var athlete *analysis.Athlete
	for i := range data.athletes {
		if data.athletes[i].ID == id {
			athlete = &data.athletes[i]
			break
		}
	}
	if athlete == nil {
		return nil, fmt.Errorf("%w: %s", ErrAthleteNotFound, id)
	}

	board, err := analysis.SeasonLeaderboard(data.athletes, s.weeks, data.hrRecords, ref)
	if err != nil {
		return nil, err
	}

	detail := &AthleteDetail{Athlete: *athlete}
	for _, e := range board {
		if e.AthleteID == id {
			detail.Standing = e
			break
		}
	}

	streak, err := s.streakFor(*athlete, data.activities, ref)
	if err != nil {
		return nil, err
	}
	detail.Streak = streak

	span := s.Span()
	var competition []analysis.ActivityRecord
	for _, a := range data.activities {
		if a.AthleteID == id && span.Contains(a.Date) {
			competition = append(competition, a)
		}
	}

	var current analysis.DateRange
	if w, ok := analysis.ClassifyDate(ref, s.weeks); ok {
		current = w.Range()
	}
	detail.Stats = analysis.AthleteTotals(id, competition, current)
	detail.Sports = analysis.SportMileage(competition, span)

	for _, w := range s.weeks {
		ws, err := analysis.WeeklyScoreFor(id, w, data.hrRecords)
		if err != nil {
			return nil, err
		}
		detail.Weekly = append(detail.Weekly, ws)
	}

	for i := len(competition) - 1; i >= 0; i-- {
		if !analysis.Day(competition[i].Date).After(analysis.Day(ref)) {
			last := competition[i]
			detail.LastSession = &last
			break
		}
	}

	return detail, nil
}

// load fetches the roster and HR records for r, plus activities when asked,
// concurrently. HR records are deduplicated by activity.
func (s *StandingsService) load(ctx context.Context, r analysis.DateRange, withActivities bool) (*dataset, error) {
	var data dataset
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		athletes, err := s.source.Athletes(gctx)
		if err != nil {
			return fmt.Errorf("loading athletes: %w", err)
		}
		data.athletes = athletes
		return nil
	})
	g.Go(func() error {
		records, err := s.source.HRZones(gctx, r)
		if err != nil {
			return fmt.Errorf("loading hr zones: %w", err)
		}
		data.hrRecords = records
		return nil
	})
	if withActivities {
		g.Go(func() error {
			activities, err := s.source.Activities(gctx, r)
			if err != nil {
				return fmt.Errorf("loading activities: %w", err)
			}
			data.activities = activities
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	records, removed := analysis.DedupeByActivity(data.hrRecords)
	if removed > 0 {
		log.Debug().Int("count", removed).Msg("removed duplicate hr zone records")
	}
	data.hrRecords = records
	return &data, nil
}

// streaks computes each athlete's streak in parallel
func (s *StandingsService) streaks(ctx context.Context, data *dataset, ref time.Time) ([]AthleteStreak, error) {
	out := make([]AthleteStreak, len(data.athletes))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range data.athletes {
		i, a := i, a
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			streak, err := s.streakFor(a, data.activities, ref)
			if err != nil {
				return err
			}
			out[i] = streak
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// streakFor counts active days inside the tracked span up to ref.
// Activities after ref are ignored so past dates can be queried.
func (s *StandingsService) streakFor(a analysis.Athlete, activities []analysis.ActivityRecord, ref time.Time) (AthleteStreak, error) {
	span := s.TrackedSpan()
	today := analysis.Day(ref)

	var dates []time.Time
	for _, d := range analysis.ActiveDates(a.ID, activities) {
		if d.After(today) || !span.Contains(d) {
			continue
		}
		dates = append(dates, d)
	}

	streak, err := analysis.AthleteStreak(a.ID, dates, today, span)
	if err != nil {
		return AthleteStreak{}, fmt.Errorf("athlete %s: %w", a.ID, err)
	}
	return AthleteStreak{Streak: streak, Name: a.Name, Badge: analysis.StreakBadge(streak.Current)}, nil
}

func (s *StandingsService) week(index int) (analysis.CompetitionWeek, error) {
	for _, w := range s.weeks {
		if w.Index == index {
			return w, nil
		}
	}
	return analysis.CompetitionWeek{}, fmt.Errorf("%w: %d", ErrWeekNotFound, index)
}
