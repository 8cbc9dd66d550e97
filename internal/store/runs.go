package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LastExportKey is the sync_state key holding the finish time of the latest export
const LastExportKey = "last_export"

// runTimeLayout is fixed-width so finished_at sorts as text
const runTimeLayout = "2006-01-02T15:04:05.000Z"

// SaveExport archives the activities of a finished export together with its
// run record, all in one transaction. run.ID is assigned if empty.
func (db *DB) SaveExport(ctx context.Context, run *ExportRun, activities []Activity) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range activities {
		a := activities[i]
		a.LastRunID = run.ID
		if err := upsertActivity(ctx, tx, &a); err != nil {
			return fmt.Errorf("storing activity %d: %w", a.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO export_runs (
			id, athlete_id, shape, output_path, activity_count,
			total_distance_km, total_time_hours, total_elevation_m,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.AthleteID, run.Shape, run.OutputPath, run.ActivityCount,
		run.TotalDistance, run.TotalTime, run.TotalElevation,
		run.StartedAt.UTC().Format(runTimeLayout), run.FinishedAt.UTC().Format(runTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording export run: %w", err)
	}

	if err := setSyncState(ctx, tx, LastExportKey, run.FinishedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("updating sync state: %w", err)
	}

	return tx.Commit()
}

const exportRunColumns = `id, athlete_id, shape, output_path, activity_count,
	total_distance_km, total_time_hours, total_elevation_m, started_at, finished_at`

// GetExportRun retrieves an export run by ID
func (db *DB) GetExportRun(ctx context.Context, id string) (*ExportRun, error) {
	row := db.QueryRowContext(ctx, `SELECT `+exportRunColumns+` FROM export_runs WHERE id = ?`, id)
	return scanExportRun(row)
}

// LatestExportRun returns the most recently finished export run
func (db *DB) LatestExportRun(ctx context.Context) (*ExportRun, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+exportRunColumns+`
		FROM export_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`)
	return scanExportRun(row)
}

func scanExportRun(row rowScanner) (*ExportRun, error) {
	var r ExportRun
	var athleteID sql.NullInt64
	var startedAt, finishedAt string

	err := row.Scan(
		&r.ID, &athleteID, &r.Shape, &r.OutputPath, &r.ActivityCount,
		&r.TotalDistance, &r.TotalTime, &r.TotalElevation, &startedAt, &finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	r.AthleteID = athleteID.Int64

	if r.StartedAt, err = time.Parse(runTimeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at %q: %w", startedAt, err)
	}
	if r.FinishedAt, err = time.Parse(runTimeLayout, finishedAt); err != nil {
		return nil, fmt.Errorf("parsing finished_at %q: %w", finishedAt, err)
	}

	return &r, nil
}
