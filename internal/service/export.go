package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/oauth2"

	"strava-export/internal/auth"
	"strava-export/internal/export"
	"strava-export/internal/store"
	"strava-export/internal/strava"
)

// ChartPoints is how many recent activity distances are kept for the summary chart
const ChartPoints = 30

// TokenExchanger trades the configured refresh token for an access token
type TokenExchanger interface {
	Exchange(ctx context.Context) (*oauth2.Token, error)
}

// ActivityFetcher pulls the athlete's full activity history
type ActivityFetcher interface {
	GetAllActivities(ctx context.Context, onPage func(page, count int)) ([]strava.Activity, error)
}

// FetcherFactory builds a fetcher authorized by the exchanged token
type FetcherFactory func(ctx context.Context, ts oauth2.TokenSource) ActivityFetcher

// Archiver records a finished export
type Archiver interface {
	SaveExport(ctx context.Context, run *store.ExportRun, activities []store.Activity) error
}

// ExportOptions configures one export run
type ExportOptions struct {
	Shape      export.Shape
	OutputPath string
	// Location renders export dates; nil means time.Local
	Location *time.Location
	// Archive is optional
	Archive Archiver
	// Now defaults to time.Now
	Now    func() time.Time
	Logger *slog.Logger
}

// ExportResult contains the results of an export run
type ExportResult struct {
	Document   export.Document
	Stats      export.Stats
	Shape      export.Shape
	OutputPath string
	Fetched    int
	AthleteID  int64
	// RecentDistances holds km per activity for the newest ChartPoints
	// activities, oldest first
	RecentDistances []float64
	// RunID is set when the export was archived
	RunID string
}

// ExportService runs the exchange, fetch, transform and write pipeline
type ExportService struct {
	exchanger  TokenExchanger
	newFetcher FetcherFactory
	opts       ExportOptions
}

// NewExportService creates a new export service
func NewExportService(exchanger TokenExchanger, newFetcher FetcherFactory, opts ExportOptions) *ExportService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ExportService{
		exchanger:  exchanger,
		newFetcher: newFetcher,
		opts:       opts,
	}
}

// Run performs one export. Any failure aborts the run; nothing is written
// unless every activity was fetched.
func (s *ExportService) Run(ctx context.Context) (*ExportResult, error) {
	log := s.opts.Logger
	startedAt := s.opts.Now()

	log.Debug("exchanging refresh token")
	token, err := s.exchanger.Exchange(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	fetcher := s.newFetcher(ctx, oauth2.StaticTokenSource(token))

	activities, err := fetcher.GetAllActivities(ctx, func(page, count int) {
		log.Info("fetched page", "page", page, "activities", count)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching activities: %w", err)
	}
	log.Info("fetched activities", "total", len(activities))

	doc, err := export.Build(s.opts.Shape, activities, export.BuildOptions{
		Now:      s.opts.Now(),
		Location: s.opts.Location,
	})
	if err != nil {
		return nil, err
	}

	if err := export.WriteFile(s.opts.OutputPath, doc); err != nil {
		return nil, err
	}
	log.Info("wrote document", "path", s.opts.OutputPath, "shape", s.opts.Shape)

	result := &ExportResult{
		Document:        doc,
		Stats:           doc.Summary(),
		Shape:           s.opts.Shape,
		OutputPath:      s.opts.OutputPath,
		Fetched:         len(activities),
		AthleteID:       athleteID(token, activities),
		RecentDistances: recentDistances(activities, ChartPoints),
	}

	if s.opts.Archive == nil {
		return result, nil
	}

	run := &store.ExportRun{
		AthleteID:      result.AthleteID,
		Shape:          s.opts.Shape.String(),
		OutputPath:     s.opts.OutputPath,
		ActivityCount:  result.Stats.TotalActivities,
		TotalDistance:  result.Stats.TotalDistance,
		TotalTime:      result.Stats.TotalTime,
		TotalElevation: result.Stats.TotalElevation,
		StartedAt:      startedAt,
		FinishedAt:     s.opts.Now(),
	}

	archived := make([]store.Activity, len(activities))
	for i, a := range activities {
		archived[i] = *convertActivity(a)
	}

	if err := s.opts.Archive.SaveExport(ctx, run, archived); err != nil {
		return result, fmt.Errorf("archiving export: %w", err)
	}
	result.RunID = run.ID
	log.Debug("archived export", "run_id", run.ID, "activities", len(archived))

	return result, nil
}

// athleteID prefers the athlete in the token response and falls back to the
// owner of the first activity
func athleteID(token *oauth2.Token, activities []strava.Activity) int64 {
	if id := auth.ExtractAthleteID(token); id != 0 {
		return id
	}
	if len(activities) > 0 {
		return activities[0].Athlete.ID
	}
	return 0
}

// recentDistances returns the distance in km of the newest n activities,
// ordered oldest first
func recentDistances(activities []strava.Activity, n int) []float64 {
	sorted := slices.Clone(activities)
	slices.SortStableFunc(sorted, func(a, b strava.Activity) int {
		return b.StartDate.Compare(a.StartDate)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	distances := make([]float64, len(sorted))
	for i, a := range sorted {
		distances[len(sorted)-1-i] = export.KilometersRounded(a.Distance)
	}
	return distances
}

// convertActivity converts a Strava API activity to a store activity
func convertActivity(a strava.Activity) *store.Activity {
	activity := &store.Activity{
		ID:                 a.ID,
		AthleteID:          a.Athlete.ID,
		Name:               a.Name,
		Type:               a.Type,
		SportType:          a.SportType,
		Description:        a.Description,
		StartDate:          a.StartDate,
		StartDateLocal:     a.StartDateLocal,
		Timezone:           a.Timezone,
		Distance:           a.Distance,
		MovingTime:         a.MovingTime,
		ElapsedTime:        a.ElapsedTime,
		TotalElevationGain: a.TotalElevationGain,
		AverageSpeed:       a.AverageSpeed,
		MaxSpeed:           a.MaxSpeed,
	}

	if a.ElevLow != 0 {
		activity.ElevLow = &a.ElevLow
	}
	if a.ElevHigh != 0 {
		activity.ElevHigh = &a.ElevHigh
	}
	if a.Calories > 0 {
		activity.Calories = &a.Calories
	}

	return activity
}
