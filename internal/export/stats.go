package export

import (
	"math"
	"slices"

	"strava-export/internal/strava"
)

// RecentLimit is how many activities the dashboard lists
const RecentLimit = 10

// Stats are the aggregate counters written with every document. Totals are
// rounded after summing: distance in km, time in hours, elevation in meters.
type Stats struct {
	TotalActivities int            `json:"totalActivities"`
	ByType          map[string]int `json:"byType"`
	TotalDistance   int64          `json:"totalDistance"`
	TotalTime       int64          `json:"totalTime"`
	TotalElevation  int64          `json:"totalElevation"`
}

// statEntry is one activity's contribution to Stats
type statEntry struct {
	activityType string
	km           float64
	movingSecs   float64
	elevation    float64
}

func aggregate(entries []statEntry) Stats {
	stats := Stats{
		TotalActivities: len(entries),
		ByType:          make(map[string]int),
	}

	var distance, hours, elevation float64
	for _, e := range entries {
		stats.ByType[typeOrUnknown(e.activityType)]++
		distance += e.km
		hours += e.movingSecs / secondsPerHour
		elevation += e.elevation
	}

	stats.TotalDistance = int64(math.Round(distance))
	stats.TotalTime = int64(math.Round(hours))
	stats.TotalElevation = int64(math.Round(elevation))
	return stats
}

// AggregateExport folds export records, summing their already-rounded distances
func AggregateExport(activities []ExportActivity) Stats {
	entries := make([]statEntry, len(activities))
	for i, a := range activities {
		entries[i] = statEntry{
			activityType: a.Type,
			km:           a.Distance,
			movingSecs:   float64(a.MovingTime),
			elevation:    a.ElevationGain,
		}
	}
	return aggregate(entries)
}

// AggregateRaw folds raw activities, converting meters to km per activity
func AggregateRaw(activities []strava.Activity) Stats {
	entries := make([]statEntry, len(activities))
	for i, a := range activities {
		entries[i] = statEntry{
			activityType: a.Type,
			km:           a.Distance / metersPerKm,
			movingSecs:   float64(a.MovingTime),
			elevation:    a.TotalElevationGain,
		}
	}
	return aggregate(entries)
}

// RecentActivities returns up to n of the most recently started activities,
// newest first, in dashboard form. Ties keep their fetch order.
func RecentActivities(activities []strava.Activity, n int) []DashboardActivity {
	sorted := slices.Clone(activities)
	slices.SortStableFunc(sorted, func(a, b strava.Activity) int {
		return b.StartDate.Compare(a.StartDate)
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}

	recent := make([]DashboardActivity, len(sorted))
	for i, a := range sorted {
		recent[i] = ToDashboard(a)
	}
	return recent
}
