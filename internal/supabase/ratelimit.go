package supabase

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter spaces out requests and honours Retry-After on 429 responses
type RateLimiter struct {
	mu sync.Mutex

	// Minimum interval between requests
	minInterval time.Duration
	lastRequest time.Time

	// Set when the server asks us to back off
	pausedUntil time.Time

	requests int
}

// NewRateLimiter creates a rate limiter with the given minimum spacing
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{minInterval: minInterval}
}

// Wait blocks until a request can be made
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Server-requested pause
	if wait := time.Until(r.pausedUntil); wait > 0 {
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}

	// Enforce minimum interval between requests
	if elapsed := time.Since(r.lastRequest); elapsed < r.minInterval {
		if err := r.sleep(ctx, r.minInterval-elapsed); err != nil {
			return err
		}
	}

	r.requests++
	r.lastRequest = time.Now()
	return nil
}

// sleep releases the lock while waiting. Callers must hold r.mu.
func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Unlock()
	defer r.mu.Lock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateFromResponse pauses further requests when the server reports throttling.
// Retry-After is read as seconds; a missing header pauses for one second.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return
	}

	wait := time.Second
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			wait = time.Duration(secs) * time.Second
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if until := time.Now().Add(wait); until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
}

// Status returns the number of requests made and when the current pause ends
func (r *RateLimiter) Status() (requests int, pausedUntil time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests, r.pausedUntil
}
