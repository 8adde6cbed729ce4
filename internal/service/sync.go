package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"granfondo/internal/analysis"
	"granfondo/internal/store"
)

// SyncService copies competition data from a remote source into the local store
type SyncService struct {
	remote Source
	store  *store.DB
	span   analysis.DateRange
	now    func() time.Time
}

// NewSyncService creates a sync service covering span
func NewSyncService(remote Source, db *store.DB, span analysis.DateRange) *SyncService {
	return &SyncService{
		remote: remote,
		store:  db,
		span:   span,
		now:    time.Now,
	}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase     string // "fetch", "athletes", "activities", "hr_zones"
	Total     int
	Completed int
	Error     error
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	RunID             string
	AthletesStored    int
	ActivitiesFetched int
	ActivitiesStored  int
	HRZonesFetched    int
	HRZonesStored     int
	DuplicateHRZones  int
	RemoteRequests    int // 0 when the remote does not count requests
	Errors            []error
}

// requestCounter is implemented by remotes that rate limit their requests
type requestCounter interface {
	RateLimitStatus() (requests int, pausedUntil time.Time)
}

// SyncAll fetches athletes, activities and HR zones for the span in parallel
// and upserts them into the store. Individual records that fail to store are
// collected in the result rather than aborting the run.
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", result.RunID).Logger()
	logger.Info().Time("from", s.span.Start).Time("to", s.span.End).Msg("sync started")

	send(progress, SyncProgress{Phase: PhaseFetch})

	var data dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		athletes, err := s.remote.Athletes(gctx)
		if err != nil {
			return fmt.Errorf("fetching athletes: %w", err)
		}
		data.athletes = athletes
		return nil
	})
	g.Go(func() error {
		activities, err := s.remote.Activities(gctx, s.span)
		if err != nil {
			return fmt.Errorf("fetching activities: %w", err)
		}
		data.activities = activities
		return nil
	})
	g.Go(func() error {
		records, err := s.remote.HRZones(gctx, s.span)
		if err != nil {
			return fmt.Errorf("fetching hr zones: %w", err)
		}
		data.hrRecords = records
		return nil
	})
	if err := g.Wait(); err != nil {
		return result, err
	}

	result.ActivitiesFetched = len(data.activities)
	result.HRZonesFetched = len(data.hrRecords)

	// Athletes first: activities and zones reference them
	for i, a := range data.athletes {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.store.UpsertAthlete(ctx, a); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("storing athlete %s: %w", a.ID, err))
			continue
		}
		result.AthletesStored++
		send(progress, SyncProgress{Phase: PhaseAthletes, Total: len(data.athletes), Completed: i + 1})
	}

	for i, a := range data.activities {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.store.UpsertActivity(ctx, a); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("storing activity %d: %w", a.ActivityID, err))
			continue
		}
		result.ActivitiesStored++
		send(progress, SyncProgress{Phase: PhaseActivities, Total: len(data.activities), Completed: i + 1})
	}

	records, removed := analysis.DedupeByActivity(data.hrRecords)
	result.DuplicateHRZones = removed
	if removed > 0 {
		logger.Warn().Int("count", removed).Msg("dropped duplicate hr zone records")
	}

	for i, r := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.store.UpsertHRZones(ctx, r); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("storing hr zones for activity %d: %w", r.ActivityID, err))
			continue
		}
		result.HRZonesStored++
		send(progress, SyncProgress{Phase: PhaseHRZones, Total: len(records), Completed: i + 1})
	}

	if err := s.store.SetSyncState(ctx, store.SyncKeyLastSync, s.now().UTC().Format(time.RFC3339)); err != nil {
		return result, fmt.Errorf("recording sync time: %w", err)
	}
	if err := s.store.SetSyncState(ctx, store.SyncKeyLastSyncID, result.RunID); err != nil {
		return result, fmt.Errorf("recording sync id: %w", err)
	}

	if rc, ok := s.remote.(requestCounter); ok {
		requests, pausedUntil := rc.RateLimitStatus()
		result.RemoteRequests = requests
		if pausedUntil.After(s.now()) {
			logger.Warn().Time("paused_until", pausedUntil).Msg("remote is throttling requests")
		}
	}

	logger.Info().
		Int("requests", result.RemoteRequests).
		Int("athletes", result.AthletesStored).
		Int("activities", result.ActivitiesStored).
		Int("hr_zones", result.HRZonesStored).
		Int("errors", len(result.Errors)).
		Msg("sync finished")

	return result, nil
}

// LastSync returns when the store was last synced and the run ID, if ever
func (s *SyncService) LastSync(ctx context.Context) (time.Time, string, error) {
	v, err := s.store.GetSyncState(ctx, store.SyncKeyLastSync)
	if err != nil || v == "" {
		return time.Time{}, "", err
	}
	at, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("parsing last sync time %q: %w", v, err)
	}
	id, err := s.store.GetSyncState(ctx, store.SyncKeyLastSyncID)
	if err != nil {
		return time.Time{}, "", err
	}
	return at, id, nil
}

func send(progress chan<- SyncProgress, p SyncProgress) {
	if progress != nil {
		progress <- p
	}
}
