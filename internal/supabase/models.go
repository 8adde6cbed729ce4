package supabase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Athlete is a row of the athletes table
type Athlete struct {
	ID        ID     `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// DisplayName joins first and last name, falling back to the ID
func (a Athlete) DisplayName() string {
	name := strings.TrimSpace(a.Firstname + " " + a.Lastname)
	if name == "" {
		return string(a.ID)
	}
	return name
}

// Activity is a row of the activities table with the embedded athlete
type Activity struct {
	ID                 int64     `json:"id"`
	AthleteID          ID        `json:"athlete_id"`
	Name               string    `json:"name"`
	SportType          string    `json:"sport_type"`
	StartDate          Timestamp `json:"start_date"`
	Distance           *float64  `json:"distance"`             // meters
	MovingTime         *float64  `json:"moving_time"`          // seconds
	TotalElevationGain *float64  `json:"total_elevation_gain"` // meters
	Athletes           *Athlete  `json:"athletes"`
}

// HeartRateZones is a row of the heart_rate_zones table with the embedded activity.
// Zone values are pointers so that NULL columns can be told apart from zero.
type HeartRateZones struct {
	ActivityID   *int64        `json:"activity_id"`
	Zone1Seconds *float64      `json:"zone_1_seconds"`
	Zone2Seconds *float64      `json:"zone_2_seconds"`
	Zone3Seconds *float64      `json:"zone_3_seconds"`
	Zone4Seconds *float64      `json:"zone_4_seconds"`
	Zone5Seconds *float64      `json:"zone_5_seconds"`
	Activities   *ZoneActivity `json:"activities"`
}

// ZoneActivity is the activity embedded in a heart_rate_zones row
type ZoneActivity struct {
	AthleteID ID        `json:"athlete_id"`
	Name      string    `json:"name"`
	StartDate Timestamp `json:"start_date"`
	SportType string    `json:"sport_type"`
}

// ID is an identifier that may arrive as a JSON number or string
type ID string

// UnmarshalJSON accepts numbers, strings and null
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Timestamp parses the timestamp formats PostgREST emits for
// timestamp and timestamptz columns. Values without an offset are UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}
