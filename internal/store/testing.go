package store

import (
	"database/sql"
)

// NewTestDB migrates an existing connection, typically an in-memory database.
// This is only intended for use in tests.
func NewTestDB(sqlDB *sql.DB) (*DB, error) {
	return wrap(sqlDB)
}
