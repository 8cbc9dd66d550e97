package export

import (
	"fmt"
	"slices"
	"time"

	"strava-export/internal/strava"
)

// lastUpdatedFormat matches JavaScript's Date.toISOString
const lastUpdatedFormat = "2006-01-02T15:04:05.000Z"

// Document is a complete output file body
type Document interface {
	Summary() Stats
}

// ExportDocument holds stats plus every activity, newest first
type ExportDocument struct {
	LastUpdated string           `json:"lastUpdated"`
	Stats       Stats            `json:"stats"`
	Activities  []ExportActivity `json:"activities"`
}

// Summary returns the document's stats
func (d *ExportDocument) Summary() Stats { return d.Stats }

// DashboardDocument is the stats with the recent activity list merged in flat
type DashboardDocument struct {
	Stats
	LastUpdated      string              `json:"lastUpdated"`
	RecentActivities []DashboardActivity `json:"recentActivities"`
}

// Summary returns the document's stats
func (d *DashboardDocument) Summary() Stats { return d.Stats }

// BuildOptions carries the environment a document is built in
type BuildOptions struct {
	// Now stamps lastUpdated
	Now time.Time
	// Location renders export dates; nil means time.Local
	Location *time.Location
}

// Build transforms and aggregates activities into the document for shape
func Build(shape Shape, activities []strava.Activity, opts BuildOptions) (Document, error) {
	lastUpdated := FormatLastUpdated(opts.Now)

	switch shape {
	case ExportShape:
		converted := make([]ExportActivity, len(activities))
		for i, a := range activities {
			converted[i] = ToExport(a, opts.Location)
		}
		stats := AggregateExport(converted)

		slices.SortStableFunc(converted, func(a, b ExportActivity) int {
			return b.startDate.Compare(a.startDate)
		})

		return &ExportDocument{
			LastUpdated: lastUpdated,
			Stats:       stats,
			Activities:  converted,
		}, nil

	case DashboardShape:
		return &DashboardDocument{
			Stats:            AggregateRaw(activities),
			LastUpdated:      lastUpdated,
			RecentActivities: RecentActivities(activities, RecentLimit),
		}, nil

	default:
		return nil, fmt.Errorf("building document: %w %v", ErrUnknownShape, shape)
	}
}

// FormatLastUpdated renders t in UTC with millisecond precision
func FormatLastUpdated(t time.Time) string {
	return t.UTC().Format(lastUpdatedFormat)
}
