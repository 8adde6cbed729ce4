package store

import (
	"context"
	"fmt"

	"granfondo/internal/analysis"
)

// UpsertAthlete inserts or updates a roster entry
func (db *DB) UpsertAthlete(ctx context.Context, a analysis.Athlete) error {
	if a.ID == "" {
		return fmt.Errorf("%w: athlete without id", analysis.ErrInvalidRecord)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO athletes (id, name, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = CURRENT_TIMESTAMP
	`, a.ID, a.Name)
	return err
}

// Athletes returns the full roster ordered by ID
func (db *DB) Athletes(ctx context.Context) ([]analysis.Athlete, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name FROM athletes ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var athletes []analysis.Athlete
	for rows.Next() {
		var a analysis.Athlete
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		athletes = append(athletes, a)
	}
	return athletes, rows.Err()
}
