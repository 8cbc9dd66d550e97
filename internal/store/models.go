package store

import "time"

// Activity represents an archived Strava activity summary
type Activity struct {
	ID                 int64     `db:"id"`
	AthleteID          int64     `db:"athlete_id"`
	Name               string    `db:"name"`
	Type               string    `db:"type"`
	SportType          string    `db:"sport_type"`
	Description        string    `db:"description"`
	StartDate          time.Time `db:"start_date"`
	StartDateLocal     time.Time `db:"start_date_local"`
	Timezone           string    `db:"timezone"`
	Distance           float64   `db:"distance"`     // meters
	MovingTime         int       `db:"moving_time"`  // seconds
	ElapsedTime        int       `db:"elapsed_time"` // seconds
	TotalElevationGain float64   `db:"total_elevation_gain"`
	ElevLow            *float64  `db:"elev_low"`  // nullable
	ElevHigh           *float64  `db:"elev_high"` // nullable
	AverageSpeed       float64   `db:"average_speed"` // m/s
	MaxSpeed           float64   `db:"max_speed"`     // m/s
	Calories           *float64  `db:"calories"`      // nullable
	LastRunID          string    `db:"last_run_id"`
}

// ExportRun records one successful export
type ExportRun struct {
	ID             string    `db:"id"`
	AthleteID      int64     `db:"athlete_id"`
	Shape          string    `db:"shape"`
	OutputPath     string    `db:"output_path"`
	ActivityCount  int       `db:"activity_count"`
	TotalDistance  int64     `db:"total_distance_km"`
	TotalTime      int64     `db:"total_time_hours"`
	TotalElevation int64     `db:"total_elevation_m"`
	StartedAt      time.Time `db:"started_at"`
	FinishedAt     time.Time `db:"finished_at"`
}
