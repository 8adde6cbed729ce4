package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"granfondo/internal/analysis"
)

const (
	restPath = "/rest/v1"

	// PageSize is the number of rows requested per page
	PageSize = 1000

	maxRetries         = 3
	defaultMinInterval = 50 * time.Millisecond
)

// ErrThrottled is returned when the server keeps answering 429
var ErrThrottled = errors.New("supabase: too many requests")

// Client reads competition data from a Supabase project's REST endpoint
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *RateLimiter
	pageSize    int
}

// NewClient creates a client for the project at baseURL.
// The key is sent both as the apikey header and as a bearer token.
func NewClient(baseURL, apiKey string) *Client {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey})
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		httpClient:  oauth2.NewClient(context.Background(), tokenSource),
		rateLimiter: NewRateLimiter(defaultMinInterval),
		pageSize:    PageSize,
	}
}

// GetAthletes fetches the athletes table
func (c *Client) GetAthletes(ctx context.Context) ([]Athlete, error) {
	params := url.Values{}
	params.Set("select", "id,firstname,lastname")
	params.Set("order", "id.asc")

	var athletes []Athlete
	if err := c.getAll(ctx, "/athletes", params, func(body io.Reader) (int, error) {
		var page []Athlete
		if err := json.NewDecoder(body).Decode(&page); err != nil {
			return 0, fmt.Errorf("decoding athletes: %w", err)
		}
		athletes = append(athletes, page...)
		return len(page), nil
	}); err != nil {
		return nil, err
	}
	return athletes, nil
}

// GetActivities fetches activities started within r, with the athlete embedded
func (c *Client) GetActivities(ctx context.Context, r analysis.DateRange) ([]Activity, error) {
	params := url.Values{}
	params.Set("select", "*,athletes(firstname,lastname)")
	addRangeFilter(params, "start_date", r)
	params.Set("order", "start_date.asc,id.asc")

	var activities []Activity
	if err := c.getAll(ctx, "/activities", params, func(body io.Reader) (int, error) {
		var page []Activity
		if err := json.NewDecoder(body).Decode(&page); err != nil {
			return 0, fmt.Errorf("decoding activities: %w", err)
		}
		activities = append(activities, page...)
		return len(page), nil
	}); err != nil {
		return nil, err
	}
	return activities, nil
}

// GetHeartRateZones fetches zone rows whose activity started within r.
// The inner join drops zone rows that have no matching activity.
func (c *Client) GetHeartRateZones(ctx context.Context, r analysis.DateRange) ([]HeartRateZones, error) {
	params := url.Values{}
	params.Set("select", "*,activities!inner(athlete_id,name,start_date,sport_type)")
	addRangeFilter(params, "activities.start_date", r)
	params.Set("order", "activity_id.asc,id.asc")

	var zones []HeartRateZones
	if err := c.getAll(ctx, "/heart_rate_zones", params, func(body io.Reader) (int, error) {
		var page []HeartRateZones
		if err := json.NewDecoder(body).Decode(&page); err != nil {
			return 0, fmt.Errorf("decoding heart rate zones: %w", err)
		}
		zones = append(zones, page...)
		return len(page), nil
	}); err != nil {
		return nil, err
	}
	return zones, nil
}

// RateLimitStatus returns the limiter's request count and pause deadline
func (c *Client) RateLimitStatus() (requests int, pausedUntil time.Time) {
	return c.rateLimiter.Status()
}

func addRangeFilter(params url.Values, column string, r analysis.DateRange) {
	if r.IsZero() {
		return
	}
	params.Add(column, "gte."+analysis.Day(r.Start).Format(time.RFC3339))
	params.Add(column, "lt."+analysis.Day(r.End).AddDate(0, 0, 1).Format(time.RFC3339))
}

// getAll pages through a table until a short page is returned
func (c *Client) getAll(ctx context.Context, table string, params url.Values, decode func(io.Reader) (int, error)) error {
	for offset := 0; ; offset += c.pageSize {
		p := url.Values{}
		for k, v := range params {
			p[k] = v
		}
		p.Set("limit", strconv.Itoa(c.pageSize))
		p.Set("offset", strconv.Itoa(offset))

		resp, err := c.get(ctx, table, p)
		if err != nil {
			return fmt.Errorf("fetching %s at offset %d: %w", table, offset, err)
		}
		n, err := decode(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}
		if n < c.pageSize {
			return nil
		}
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := c.baseURL + restPath + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	for attempt := 0; ; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		c.rateLimiter.UpdateFromResponse(resp)

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt+1 >= maxRetries {
				return nil, ErrThrottled
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
		}

		return resp, nil
	}
}
