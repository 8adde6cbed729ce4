package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"granfondo/internal/analysis"
)

const keyPrefix = "granfondo:"

// Backing is the data source being memoised
type Backing interface {
	Athletes(ctx context.Context) ([]analysis.Athlete, error)
	Activities(ctx context.Context, r analysis.DateRange) ([]analysis.ActivityRecord, error)
	HRZones(ctx context.Context, r analysis.DateRange) ([]analysis.HRZoneRecord, error)
}

// Source memoises reads from a Backing for a fixed TTL.
// Cache failures are logged and fall through to the backing source.
type Source struct {
	inner Backing
	store Store
	ttl   time.Duration
}

// NewSource wraps inner. A non-positive ttl uses DefaultTTL.
func NewSource(inner Backing, store Store, ttl time.Duration) *Source {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Source{inner: inner, store: store, ttl: ttl}
}

// Athletes implements the source interface
func (s *Source) Athletes(ctx context.Context) ([]analysis.Athlete, error) {
	return cached(ctx, s, keyPrefix+"athletes", s.inner.Athletes)
}

// Activities implements the source interface
func (s *Source) Activities(ctx context.Context, r analysis.DateRange) ([]analysis.ActivityRecord, error) {
	return cached(ctx, s, rangeKey("activities", r), func(ctx context.Context) ([]analysis.ActivityRecord, error) {
		return s.inner.Activities(ctx, r)
	})
}

// HRZones implements the source interface
func (s *Source) HRZones(ctx context.Context, r analysis.DateRange) ([]analysis.HRZoneRecord, error) {
	return cached(ctx, s, rangeKey("hr_zones", r), func(ctx context.Context) ([]analysis.HRZoneRecord, error) {
		return s.inner.HRZones(ctx, r)
	})
}

// Invalidate drops the roster and the cached entries for each range
func (s *Source) Invalidate(ctx context.Context, ranges ...analysis.DateRange) error {
	keys := []string{keyPrefix + "athletes"}
	for _, r := range ranges {
		keys = append(keys, rangeKey("activities", r), rangeKey("hr_zones", r))
	}
	return s.store.Delete(ctx, keys...)
}

func rangeKey(kind string, r analysis.DateRange) string {
	if r.IsZero() {
		return keyPrefix + kind + ":all"
	}
	return fmt.Sprintf("%s%s:%s:%s", keyPrefix, kind, r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}

func cached[T any](ctx context.Context, s *Source, key string, load func(context.Context) (T, error)) (T, error) {
	if data, ok, err := s.store.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			log.Debug().Str("key", key).Msg("cache hit")
			return v, nil
		}
		log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return v, nil
}
