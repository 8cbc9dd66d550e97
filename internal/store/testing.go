package store

import (
	"database/sql"
)

// NewTestDB wraps an already open database (typically ":memory:") and runs
// migrations on it. This is only intended for use in tests.
func NewTestDB(sqlDB *sql.DB) (*DB, error) {
	return wrap(sqlDB)
}
