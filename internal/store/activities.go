package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

const activityColumns = `id, athlete_id, name, type, sport_type, description,
	start_date, start_date_local, timezone,
	distance, moving_time, elapsed_time, total_elevation_gain,
	elev_low, elev_high, average_speed, max_speed, calories, last_run_id`

// upsertActivity inserts or updates an activity, tagging it with the run that saw it last
func upsertActivity(ctx context.Context, ex execer, a *Activity) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO activities (
			id, athlete_id, name, type, sport_type, description,
			start_date, start_date_local, timezone,
			distance, moving_time, elapsed_time, total_elevation_gain,
			elev_low, elev_high, average_speed, max_speed, calories, last_run_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			name = excluded.name,
			type = excluded.type,
			sport_type = excluded.sport_type,
			description = excluded.description,
			start_date = excluded.start_date,
			start_date_local = excluded.start_date_local,
			timezone = excluded.timezone,
			distance = excluded.distance,
			moving_time = excluded.moving_time,
			elapsed_time = excluded.elapsed_time,
			total_elevation_gain = excluded.total_elevation_gain,
			elev_low = excluded.elev_low,
			elev_high = excluded.elev_high,
			average_speed = excluded.average_speed,
			max_speed = excluded.max_speed,
			calories = excluded.calories,
			last_run_id = excluded.last_run_id,
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ID, a.AthleteID, a.Name, a.Type, a.SportType, a.Description,
		a.StartDate.UTC().Format(time.RFC3339), a.StartDateLocal.UTC().Format(time.RFC3339), a.Timezone,
		a.Distance, a.MovingTime, a.ElapsedTime, a.TotalElevationGain,
		a.ElevLow, a.ElevHigh, a.AverageSpeed, a.MaxSpeed, a.Calories, a.LastRunID,
	)
	return err
}

// GetActivity retrieves an activity by ID
func (db *DB) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	row := db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)

	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	return a, err
}

// ListActivities returns activities ordered by start date descending
func (db *DB) ListActivities(ctx context.Context, limit, offset int) ([]Activity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		ORDER BY start_date DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}

	return activities, rows.Err()
}

// CountActivities returns the total number of archived activities
func (db *DB) CountActivities(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activities").Scan(&count)
	return count, err
}

func scanActivity(row rowScanner) (*Activity, error) {
	var a Activity
	var startDate, startDateLocal string
	var sportType, description, timezone, lastRunID sql.NullString

	err := row.Scan(
		&a.ID, &a.AthleteID, &a.Name, &a.Type, &sportType, &description,
		&startDate, &startDateLocal, &timezone,
		&a.Distance, &a.MovingTime, &a.ElapsedTime, &a.TotalElevationGain,
		&a.ElevLow, &a.ElevHigh, &a.AverageSpeed, &a.MaxSpeed, &a.Calories, &lastRunID,
	)
	if err != nil {
		return nil, err
	}

	a.SportType = sportType.String
	a.Description = description.String
	a.Timezone = timezone.String
	a.LastRunID = lastRunID.String

	var parseErr error
	a.StartDate, parseErr = time.Parse(time.RFC3339, startDate)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing start_date %q: %w", startDate, parseErr)
	}
	a.StartDateLocal, parseErr = time.Parse(time.RFC3339, startDateLocal)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing start_date_local %q: %w", startDateLocal, parseErr)
	}

	return &a, nil
}
