package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Roster
		`CREATE TABLE IF NOT EXISTS athletes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Activities (one row per recorded activity)
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY,
			athlete_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			sport_type TEXT NOT NULL DEFAULT '',
			start_date TEXT NOT NULL,
			distance REAL NOT NULL DEFAULT 0,
			moving_time INTEGER NOT NULL DEFAULT 0,
			total_elevation_gain REAL NOT NULL DEFAULT 0,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (athlete_id) REFERENCES athletes(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_start_date ON activities(start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_athlete ON activities(athlete_id)`,

		// Time in heart rate zone per activity; NULL means the device sent nothing
		`CREATE TABLE IF NOT EXISTS heart_rate_zones (
			activity_id INTEGER PRIMARY KEY,
			athlete_id TEXT NOT NULL,
			start_date TEXT NOT NULL,
			zone_1_seconds REAL,
			zone_2_seconds REAL,
			zone_3_seconds REAL,
			zone_4_seconds REAL,
			zone_5_seconds REAL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (athlete_id) REFERENCES athletes(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_hr_zones_start_date ON heart_rate_zones(start_date)`,

		// Sync State (key-value store for sync tracking)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
