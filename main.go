package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"granfondo/internal/analysis"
	"granfondo/internal/cache"
	"granfondo/internal/config"
	"granfondo/internal/postgres"
	"granfondo/internal/report"
	"granfondo/internal/server"
	"granfondo/internal/service"
	"granfondo/internal/store"
	"granfondo/internal/supabase"
)

// loadConfig reads and validates the config named by --config
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if errors.Is(err, config.ErrNoConfig) {
		return nil, fmt.Errorf("%w: run `granfondo init` to create one", err)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !c.IsSet("log-level") {
		level, _ := zerolog.ParseLevel(cfg.Log.Level)
		zerolog.SetGlobalLevel(level)
	}
	return cfg, nil
}

// refDate is --today, or the current date
func refDate(c *cli.Context) (time.Time, error) {
	if !c.IsSet("today") {
		return analysis.Day(time.Now()), nil
	}
	t, err := time.Parse("2006-01-02", c.String("today"))
	if err != nil {
		return time.Time{}, fmt.Errorf("--today must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// remoteSource connects to the configured upstream without caching
func remoteSource(ctx context.Context, cfg *config.Config) (service.Source, func(), error) {
	switch cfg.Source.Kind {
	case config.SourceSupabase:
		return supabase.NewClient(cfg.Source.SupabaseURL, cfg.Source.SupabaseKey), func() {}, nil
	case config.SourcePostgres:
		pool, err := postgres.Connect(ctx, cfg.Source.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewSource(pool), pool.Close, nil
	case config.SourceLocal:
		db, err := store.Open(cfg.Source.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown source %q", analysis.ErrInvalidConfiguration, cfg.Source.Kind)
}

// cacheStore is Redis when configured, otherwise process memory
func cacheStore(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	if cfg.Cache.RedisAddr == "" {
		return cache.NewMemory(), func() {}, nil
	}
	rdb, err := cache.ConnectRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	return rdb, func() { rdb.Close() }, nil
}

// standings builds the standings service over a cached source. The returned
// func releases every connection.
func standings(c *cli.Context) (*service.StandingsService, func(), error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	weeks, err := cfg.CompetitionWeeks()
	if err != nil {
		return nil, nil, err
	}

	src, closeSrc, err := remoteSource(c.Context, cfg)
	if err != nil {
		return nil, nil, err
	}
	cs, closeCache, err := cacheStore(c.Context, cfg)
	if err != nil {
		closeSrc()
		return nil, nil, err
	}

	svc := service.NewStandingsService(cache.NewSource(src, cs, cfg.CacheTTL()), weeks, cfg.Competition.StreakLookbackDays)
	return svc, func() {
		closeCache()
		closeSrc()
	}, nil
}

func initConfig(c *cli.Context) error {
	created, err := config.CreateExample(c.String("config"))
	if err != nil {
		return err
	}
	if !created {
		log.Info().Msg("config already exists")
		return nil
	}
	dir, _ := config.GetConfigDir()
	log.Info().Str("dir", dir).Msg("created example config; add your Supabase URL and key")
	return nil
}

func weeks(c *cli.Context) error {
	svc, done, err := standings(c)
	if err != nil {
		return err
	}
	defer done()
	ref, err := refDate(c)
	if err != nil {
		return err
	}

	if err := report.Progress(c.App.Writer, svc.Progress(ref)); err != nil {
		return err
	}
	return report.Weeks(c.App.Writer, svc.Weeks(ref))
}

func leaderboard(c *cli.Context) error {
	svc, done, err := standings(c)
	if err != nil {
		return err
	}
	defer done()
	ref, err := refDate(c)
	if err != nil {
		return err
	}

	entries, err := svc.Leaderboard(c.Context, ref)
	if err != nil {
		return err
	}
	return report.Leaderboard(c.App.Writer, entries)
}

func scores(c *cli.Context) error {
	svc, done, err := standings(c)
	if err != nil {
		return err
	}
	defer done()
	ref, err := refDate(c)
	if err != nil {
		return err
	}

	index := c.Int("week")
	if index == 0 {
		p := svc.Progress(ref)
		index = max(1, min(p.CurrentWeek, p.TotalWeeks))
	}

	ws, err := svc.WeeklyScores(c.Context, index, ref)
	if err != nil {
		return err
	}
	board, err := svc.Leaderboard(c.Context, ref)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(board))
	for _, e := range board {
		names[e.AthleteID] = e.Name
	}
	return report.WeekScores(c.App.Writer, ws, names)
}

func streaks(c *cli.Context) error {
	svc, done, err := standings(c)
	if err != nil {
		return err
	}
	defer done()
	ref, err := refDate(c)
	if err != nil {
		return err
	}

	s, err := svc.Streaks(c.Context, ref)
	if err != nil {
		return err
	}
	return report.Streaks(c.App.Writer, s)
}

func performance(c *cli.Context) error {
	svc, done, err := standings(c)
	if err != nil {
		return err
	}
	defer done()

	rows, err := svc.Performance(c.Context)
	if err != nil {
		return err
	}
	if err := report.Performance(c.App.Writer, rows); err != nil {
		return err
	}
	totals, err := svc.SportMileage(c.Context)
	if err != nil {
		return err
	}
	return report.SportMileage(c.App.Writer, totals)
}

func syncStore(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Source.Kind == config.SourceLocal {
		return fmt.Errorf("%w: sync needs a supabase or postgres source", analysis.ErrInvalidConfiguration)
	}
	weeks, err := cfg.CompetitionWeeks()
	if err != nil {
		return err
	}

	remote, closeRemote, err := remoteSource(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeRemote()

	db, err := store.Open(cfg.Source.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	span := analysis.Span(weeks).Extend(cfg.Competition.StreakLookbackDays)
	svc := service.NewSyncService(remote, db, span)

	if at, id, err := svc.LastSync(c.Context); err == nil && id != "" {
		log.Info().Str("run_id", id).Str("last", report.LastSync(at, time.Now())).Msg("previous sync")
	}

	progress := make(chan service.SyncProgress)
	go func() {
		for p := range progress {
			log.Debug().Str("phase", p.Phase).Int("completed", p.Completed).Int("total", p.Total).Msg("sync")
		}
	}()

	start := time.Now()
	result, err := svc.SyncAll(c.Context, progress)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		log.Warn().Err(e).Msg("record skipped")
	}

	// A shared cache would otherwise serve pre-sync data until it expires
	if cfg.Cache.RedisAddr != "" {
		cs, closeCache, err := cacheStore(c.Context, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("cache not invalidated")
		} else {
			cached := cache.NewSource(db, cs, cfg.CacheTTL())
			ranges := service.NewStandingsService(cached, weeks, cfg.Competition.StreakLookbackDays).QueryRanges()
			if err := cached.Invalidate(c.Context, ranges...); err != nil {
				log.Warn().Err(err).Msg("cache not invalidated")
			}
			closeCache()
		}
	}

	return report.SyncSummary(c.App.Writer, result, time.Since(start))
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, done, err := standings(c)
	if err != nil {
		return err
	}
	defer done()

	var now func() time.Time
	if c.IsSet("today") {
		ref, err := refDate(c)
		if err != nil {
			return err
		}
		now = func() time.Time { return ref }
	}

	address := cfg.Server.Address
	if c.IsSet("address") {
		address = c.String("address")
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return server.NewServer(svc, now).Run(ctx, address)
}

func main() {
	app := &cli.App{
		Name:     "granfondo",
		HelpName: "granfondo",
		Usage:    "Gran Fondo cycling competition standings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "config file (default ~/.granfondo/config.json)",
				EnvVars: []string{"GRANFONDO_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "env-file",
				Value:   ".env",
				Usage:   "dotenv file with credentials",
				EnvVars: []string{"GRANFONDO_ENV_FILE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level",
				EnvVars: []string{"GRANFONDO_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "today",
				Usage: "evaluate as of this date (YYYY-MM-DD)",
			},
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			log.Error().Err(err).Msg(c.App.Name)
		},
		Before: func(c *cli.Context) error {
			level, err := zerolog.ParseLevel(c.String("log-level"))
			if err != nil {
				return err
			}
			zerolog.SetGlobalLevel(level)
			zerolog.DurationFieldUnit = time.Millisecond
			zerolog.DurationFieldInteger = false
			log.Logger = log.Output(
				zerolog.ConsoleWriter{
					Out:        c.App.ErrWriter,
					TimeFormat: time.RFC3339,
				},
			)
			return config.LoadEnvFile(c.String("env-file"))
		},
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "write an example config file",
				Action: initConfig,
			},
			{
				Name:   "weeks",
				Usage:  "show the competition calendar and progress",
				Action: weeks,
			},
			{
				Name:   "leaderboard",
				Usage:  "rank athletes on completed and current weeks",
				Action: leaderboard,
			},
			{
				Name:  "scores",
				Usage: "show every athlete's points for one week",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "week",
						Usage: "week number (default current week)",
					},
				},
				Action: scores,
			},
			{
				Name:   "streaks",
				Usage:  "show daily activity streaks",
				Action: streaks,
			},
			{
				Name:   "performance",
				Usage:  "show weekly results and mileage by sport",
				Action: performance,
			},
			{
				Name:   "sync",
				Usage:  "copy the remote records into the local database",
				Action: syncStore,
			},
			{
				Name:  "serve",
				Usage: "serve the standings as a JSON API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "address",
						Usage:   "listen address (default from config)",
						EnvVars: []string{"GRANFONDO_ADDRESS"},
					},
				},
				Action: serve,
			},
		},
	}
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}
