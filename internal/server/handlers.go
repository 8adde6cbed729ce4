package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"granfondo/internal/analysis"
	"granfondo/internal/service"
)

// RegisterRoutes mounts the read-only standings API on r.
// Every route accepts ?today=YYYY-MM-DD to evaluate as of another date.
func RegisterRoutes(r fiber.Router, svc *service.StandingsService, now func() time.Time) {
	r.Get("/weeks", func(c *fiber.Ctx) error {
		ref, err := refDate(c, now)
		if err != nil {
			return err
		}
		return c.JSON(svc.Weeks(ref))
	})

	r.Get("/progress", func(c *fiber.Ctx) error {
		ref, err := refDate(c, now)
		if err != nil {
			return err
		}
		return c.JSON(svc.Progress(ref))
	})

	r.Get("/leaderboard", func(c *fiber.Ctx) error {
		ref, err := refDate(c, now)
		if err != nil {
			return err
		}
		entries, err := svc.Leaderboard(c.UserContext(), ref)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(entries)
	})

	r.Get("/weeks/:index/scores", func(c *fiber.Ctx) error {
		ref, err := refDate(c, now)
		if err != nil {
			return err
		}
		index, err := strconv.Atoi(c.Params("index"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "week index must be a number")
		}
		scores, err := svc.WeeklyScores(c.UserContext(), index, ref)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(scores)
	})

	r.Get("/streaks", func(c *fiber.Ctx) error {
		ref, err := refDate(c, now)
		if err != nil {
			return err
		}
		streaks, err := svc.Streaks(c.UserContext(), ref)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(streaks)
	})

	r.Get("/performance", func(c *fiber.Ctx) error {
		rows, err := svc.Performance(c.UserContext())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(rows)
	})

	r.Get("/mileage", func(c *fiber.Ctx) error {
		totals, err := svc.SportMileage(c.UserContext())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(totals)
	})

	r.Get("/athletes/:id", func(c *fiber.Ctx) error {
		ref, err := refDate(c, now)
		if err != nil {
			return err
		}
		detail, err := svc.AthleteDetail(c.UserContext(), c.Params("id"), ref)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(detail)
	})
}

// refDate reads the evaluation date from ?today, falling back to the clock
func refDate(c *fiber.Ctx, now func() time.Time) (time.Time, error) {
	raw := c.Query("today")
	if raw == "" {
		return analysis.Day(now()), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "today must be YYYY-MM-DD")
	}
	return t, nil
}

// httpError maps domain errors onto status codes
func httpError(err error) error {
	switch {
	case errors.Is(err, service.ErrWeekNotFound), errors.Is(err, service.ErrAthleteNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, analysis.ErrInvalidRecord), errors.Is(err, analysis.ErrInvalidConfiguration):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
