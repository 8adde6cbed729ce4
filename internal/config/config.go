package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"granfondo/internal/analysis"
)

// Source kinds
const (
	SourceSupabase = "supabase"
	SourcePostgres = "postgres"
	SourceLocal    = "local"
)

// Config represents the application configuration
type Config struct {
	Competition CompetitionConfig `json:"competition"`
	Source      SourceConfig      `json:"source"`
	Cache       CacheConfig       `json:"cache"`
	Server      ServerConfig      `json:"server"`
	Log         LogConfig         `json:"log"`
}

// CompetitionConfig defines the calendar
type CompetitionConfig struct {
	StartDate          string `json:"start_date"` // YYYY-MM-DD
	Weeks              int    `json:"weeks"`
	Calendar           string `json:"calendar"` // "verbatim" or "align_monday"
	StreakLookbackDays int    `json:"streak_lookback_days"`
}

// SourceConfig selects where records are read from
type SourceConfig struct {
	Kind        string `json:"kind"`
	SupabaseURL string `json:"supabase_url,omitempty"`
	SupabaseKey string `json:"supabase_key,omitempty"`
	PostgresURL string `json:"postgres_url,omitempty"`
	DBPath      string `json:"db_path,omitempty"` // local SQLite copy; empty uses ~/.granfondo/data.db
}

// CacheConfig controls memoisation of source reads
type CacheConfig struct {
	TTLSeconds    int    `json:"ttl_seconds"`
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Address string `json:"address"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `json:"level"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Competition: CompetitionConfig{
			StartDate:          "2025-08-11",
			Weeks:              8,
			Calendar:           string(analysis.CalendarVerbatim),
			StreakLookbackDays: 60,
		},
		Source: SourceConfig{
			Kind: SourceSupabase,
		},
		Cache: CacheConfig{
			TTLSeconds: 60,
		},
		Server: ServerConfig{
			Address: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration from path, or ~/.granfondo/config.json when
// path is empty, then applies defaults and environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := getConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Keys absent from the file keep their defaults; explicit zeros are kept
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.ApplyEnv()
	return &cfg, nil
}

// applyDefaults fills emptied values from DefaultConfig. A zero streak
// lookback is meaningful and left alone.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Competition.StartDate == "" {
		c.Competition.StartDate = defaults.Competition.StartDate
	}
	if c.Competition.Weeks == 0 {
		c.Competition.Weeks = defaults.Competition.Weeks
	}
	if c.Competition.Calendar == "" {
		c.Competition.Calendar = defaults.Competition.Calendar
	}
	if c.Source.Kind == "" {
		c.Source.Kind = defaults.Source.Kind
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = defaults.Cache.TTLSeconds
	}
	if c.Server.Address == "" {
		c.Server.Address = defaults.Server.Address
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// ApplyEnv overrides secrets and endpoints from the environment
func (c *Config) ApplyEnv() {
	overrides := map[string]*string{
		"SUPABASE_URL":   &c.Source.SupabaseURL,
		"SUPABASE_KEY":   &c.Source.SupabaseKey,
		"POSTGRES_URL":   &c.Source.PostgresURL,
		"REDIS_ADDR":     &c.Cache.RedisAddr,
		"REDIS_PASSWORD": &c.Cache.RedisPassword,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}

// LoadEnvFile loads KEY=value pairs from a .env file into the environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to path, or ~/.granfondo/config.json when empty
func Save(path string, cfg *Config) error {
	if path == "" {
		p, err := getConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample writes an example config file if none exists.
// It reports whether a file was written.
func CreateExample(path string) (bool, error) {
	if path == "" {
		p, err := getConfigPath()
		if err != nil {
			return false, err
		}
		path = p
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	example := DefaultConfig()
	example.Source.SupabaseURL = "https://YOUR_PROJECT.supabase.co"
	example.Source.SupabaseKey = "YOUR_SUPABASE_KEY"

	if err := Save(path, &example); err != nil {
		return false, err
	}
	return true, nil
}

// Validate checks the config for usable values
func (c *Config) Validate() error {
	if _, err := analysis.ParseStartDate(c.Competition.StartDate); err != nil {
		return fmt.Errorf("competition.start_date: %w", err)
	}
	if c.Competition.Weeks <= 0 {
		return fmt.Errorf("%w: competition.weeks must be positive, got %d", analysis.ErrInvalidConfiguration, c.Competition.Weeks)
	}
	if _, err := analysis.ParseCalendarMode(c.Competition.Calendar); err != nil {
		return fmt.Errorf("competition.calendar: %w", err)
	}
	if c.Competition.StreakLookbackDays < 0 {
		return fmt.Errorf("%w: competition.streak_lookback_days must not be negative", analysis.ErrInvalidConfiguration)
	}

	switch c.Source.Kind {
	case SourceSupabase:
		if c.Source.SupabaseURL == "" || c.Source.SupabaseURL == "https://YOUR_PROJECT.supabase.co" {
			return fmt.Errorf("%w: source.supabase_url is required (or set SUPABASE_URL)", analysis.ErrInvalidConfiguration)
		}
		if c.Source.SupabaseKey == "" || c.Source.SupabaseKey == "YOUR_SUPABASE_KEY" {
			return fmt.Errorf("%w: source.supabase_key is required (or set SUPABASE_KEY)", analysis.ErrInvalidConfiguration)
		}
	case SourcePostgres:
		if c.Source.PostgresURL == "" {
			return fmt.Errorf("%w: source.postgres_url is required (or set POSTGRES_URL)", analysis.ErrInvalidConfiguration)
		}
	case SourceLocal:
	default:
		return fmt.Errorf("%w: source.kind must be %q, %q or %q, got %q", analysis.ErrInvalidConfiguration,
			SourceSupabase, SourcePostgres, SourceLocal, c.Source.Kind)
	}

	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("%w: cache.ttl_seconds must not be negative", analysis.ErrInvalidConfiguration)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", analysis.ErrInvalidConfiguration, err)
	}

	return nil
}

// CompetitionWeeks computes the calendar described by the config
func (c *Config) CompetitionWeeks() ([]analysis.CompetitionWeek, error) {
	start, err := analysis.ParseStartDate(c.Competition.StartDate)
	if err != nil {
		return nil, err
	}
	mode, err := analysis.ParseCalendarMode(c.Competition.Calendar)
	if err != nil {
		return nil, err
	}
	return analysis.ComputeWeeks(start, c.Competition.Weeks, mode)
}

// CacheTTL returns the cache lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".granfondo"), nil
}
