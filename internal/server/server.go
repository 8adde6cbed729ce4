package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"granfondo/internal/service"
)

// ShutdownTimeout bounds how long in-flight requests get on shutdown
const ShutdownTimeout = 5 * time.Second

// Server exposes the standings over HTTP
type Server struct {
	App       *fiber.App
	Standings *service.StandingsService
	Now       func() time.Time
}

// NewServer builds the fiber app and registers every route.
// A nil now uses time.Now.
func NewServer(standings *service.StandingsService, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{App: app, Standings: standings, Now: now}
	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	RegisterRoutes(s.App.Group("/api"), s.Standings, s.Now)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.App.Listen(addr)
	}()
	log.Info().Str("addr", addr).Msg("serving standings")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	log.Info().Msg("shutting down")
	return s.App.ShutdownWithContext(shutdownCtx)
}
