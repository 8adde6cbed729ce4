package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"granfondo/internal/analysis"
	"granfondo/internal/service"
)

// newTable returns a table with the shared header and row styles.
// highlight is the data row to emphasise, or -1.
func newTable(highlight int, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case row == highlight:
				return leaderRowStyle
			default:
				return tableRowStyle
			}
		}).
		Headers(headers...)
}

func points(v float64) string {
	return humanize.FormatFloat("#,###.#", v)
}

func miles(v float64) string {
	return humanize.FormatFloat("#,###.#", v) + " mi"
}

// Progress writes the competition phase header
func Progress(w io.Writer, p analysis.CompetitionProgress) error {
	var line string
	switch p.Phase {
	case analysis.PhasePre:
		line = fmt.Sprintf("Starts in %d days", p.DaysUntilStart)
	case analysis.PhasePost:
		line = "Competition complete"
	default:
		line = fmt.Sprintf("Week %d of %d  %d days elapsed, %d remaining",
			p.CurrentWeek, p.TotalWeeks, p.DaysElapsed, p.DaysRemaining)
	}
	_, err := fmt.Fprintf(w, "%s\n%s %s\n",
		titleStyle.Render("Gran Fondo"),
		renderProgressBar(p.PercentComplete/100, 28),
		subtitleStyle.Render(line))
	return err
}

// Weeks writes the calendar with each week's status
func Weeks(w io.Writer, states []analysis.WeekState) error {
	t := newTable(-1, "Week", "Dates", "Status")
	for _, s := range states {
		t.Row(
			strconv.Itoa(s.Index),
			s.Start.Format("Mon Jan 2")+" - "+s.End.Format("Mon Jan 2"),
			statusStyle(string(s.Status)).Render(string(s.Status)),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Leaderboard writes the season standings
func Leaderboard(w io.Writer, entries []analysis.LeaderboardEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, warningStyle.Render("No athletes yet"))
		return err
	}

	t := newTable(0, "Rank", "Athlete", "Points", "This Week", "Behind", "Sessions")
	for _, e := range entries {
		behind := "-"
		if e.PointsBehind > 0 {
			behind = points(e.PointsBehind)
		}
		t.Row(
			humanize.Ordinal(e.Rank),
			displayName(e.Name, e.AthleteID),
			points(e.TotalPoints),
			points(e.CurrentWeekPoints),
			behind,
			humanize.Comma(int64(e.Activities)),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// WeekScores writes one week's scores with the zone breakdown
func WeekScores(w io.Writer, ws *service.WeekScores, names map[string]string) error {
	if _, err := fmt.Fprintln(w, titleStyle.Render(ws.Week.Label)+" "+statusStyle(string(ws.Week.Status)).Render(string(ws.Week.Status))); err != nil {
		return err
	}

	t := newTable(0, "Athlete", "Points", "Z1", "Z2", "Z3", "Z4", "Z5", "Records")
	for _, s := range ws.Scores {
		row := []string{displayName(names[s.AthleteID], s.AthleteID), points(s.Points)}
		for _, z := range s.Breakdown {
			row = append(row, points(z))
		}
		row = append(row, strconv.Itoa(s.Records))
		t.Row(row...)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Streaks writes every athlete's streak with badge
func Streaks(w io.Writer, streaks []service.AthleteStreak) error {
	t := newTable(-1, "Athlete", "Current", "Longest", "Badge")
	for _, s := range streaks {
		badge := ""
		if s.Badge.Name != "" {
			badge = lipgloss.NewStyle().Foreground(lipgloss.Color(s.Badge.Color)).Render(s.Badge.Emoji + " " + s.Badge.Name)
		}
		t.Row(
			displayName(s.Name, s.AthleteID),
			pluralDays(s.Current),
			pluralDays(s.Longest),
			badge,
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Performance writes the week-by-athlete results table
func Performance(w io.Writer, rows []analysis.PerformanceRow) error {
	t := newTable(-1, "Week", "Athlete", "Points", "Cycling", "Sessions")
	for _, r := range rows {
		t.Row(
			r.DateRange,
			displayName(r.Name, r.AthleteID),
			humanize.Comma(int64(r.Points)),
			miles(r.CyclingMiles),
			strconv.Itoa(r.Activities),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// SportMileage writes per-sport totals
func SportMileage(w io.Writer, totals []analysis.SportTotals) error {
	t := newTable(-1, "Sport", "Miles", "Hours", "Sessions")
	for _, s := range totals {
		t.Row(s.Sport, miles(s.Miles), humanize.FormatFloat("#,###.##", s.Hours), humanize.Comma(int64(s.Activities)))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// SyncSummary writes the outcome of a sync run
func SyncSummary(w io.Writer, r *service.SyncResult, elapsed time.Duration) error {
	status := successStyle.Render("Sync complete")
	if len(r.Errors) > 0 {
		status = warningStyle.Render(fmt.Sprintf("Sync complete with %d errors", len(r.Errors)))
	}
	if _, err := fmt.Fprintf(w, "%s in %s (run %s)\n", status, elapsed.Round(time.Millisecond), r.RunID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  athletes %s, activities %s/%s, hr zones %s/%s, duplicates %d\n",
		humanize.Comma(int64(r.AthletesStored)),
		humanize.Comma(int64(r.ActivitiesStored)), humanize.Comma(int64(r.ActivitiesFetched)),
		humanize.Comma(int64(r.HRZonesStored)), humanize.Comma(int64(r.HRZonesFetched)),
		r.DuplicateHRZones); err != nil {
		return err
	}
	for _, e := range r.Errors {
		if _, err := fmt.Fprintln(w, "  "+errorStyle.Render(e.Error())); err != nil {
			return err
		}
	}
	return nil
}

// LastSync describes when data was last synced relative to now
func LastSync(at, now time.Time) string {
	if at.IsZero() {
		return "never synced"
	}
	return "synced " + humanize.RelTime(at, now, "ago", "from now")
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return name
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return strconv.Itoa(n) + " days"
}
