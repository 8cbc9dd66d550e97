package export

import (
	"fmt"
	"math"
	"time"

	"strava-export/internal/strava"
)

const (
	metersPerKm       = 1000.0
	secondsPerMinute  = 60.0
	secondsPerHour    = 3600.0
	unknownType       = "Unknown"
	activityDateFmt   = "Jan 2, 2006, 3:04:05 PM"
	gpxFilenameFormat = "activities/%d.gpx"
)

// ExportActivity is the flat per-activity record of the export document
type ExportActivity struct {
	ID            int64   `json:"Activity ID"`
	Date          string  `json:"Activity Date"`
	Name          string  `json:"Activity Name"`
	Type          string  `json:"Activity Type"`
	Description   string  `json:"Activity Description"`
	ElapsedTime   int     `json:"Elapsed Time"`
	Distance      float64 `json:"Distance"` // km, 2 decimals
	Filename      string  `json:"Filename"`
	MovingTime    int     `json:"Moving Time"`
	MaxSpeed      float64 `json:"Max Speed"`
	AverageSpeed  float64 `json:"Average Speed"`
	ElevationGain float64 `json:"Elevation Gain"`
	ElevationLoss float64 `json:"Elevation Loss"`
	ElevationLow  float64 `json:"Elevation Low"`
	ElevationHigh float64 `json:"Elevation High"`
	Calories      float64 `json:"Calories"`

	startDate time.Time
}

// DashboardActivity is the compact entry of the dashboard's recent list
type DashboardActivity struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Date          string `json:"date"`
	Distance      int64  `json:"distance"`      // km
	MovingTime    int64  `json:"movingTime"`    // minutes
	ElevationGain int64  `json:"elevationGain"` // meters
}

// ToExport maps a raw activity to its export record. The date is rendered in loc.
// Elevation loss is not provided by Strava and is always 0.
func ToExport(a strava.Activity, loc *time.Location) ExportActivity {
	if loc == nil {
		loc = time.Local
	}
	return ExportActivity{
		ID:            a.ID,
		Date:          FormatActivityDate(a.StartDate, loc),
		Name:          a.Name,
		Type:          a.Type,
		Description:   a.Description,
		ElapsedTime:   a.ElapsedTime,
		Distance:      KilometersRounded(a.Distance),
		Filename:      fmt.Sprintf(gpxFilenameFormat, a.ID),
		MovingTime:    a.MovingTime,
		MaxSpeed:      a.MaxSpeed,
		AverageSpeed:  a.AverageSpeed,
		ElevationGain: a.TotalElevationGain,
		ElevationLoss: 0,
		ElevationLow:  a.ElevLow,
		ElevationHigh: a.ElevHigh,
		Calories:      a.Calories,
		startDate:     a.StartDate,
	}
}

// ToDashboard maps a raw activity to its dashboard entry
func ToDashboard(a strava.Activity) DashboardActivity {
	return DashboardActivity{
		Name:          a.Name,
		Type:          typeOrUnknown(a.Type),
		Date:          a.StartDate.UTC().Format(time.RFC3339),
		Distance:      roundInt(a.Distance / metersPerKm),
		MovingTime:    roundInt(float64(a.MovingTime) / secondsPerMinute),
		ElevationGain: roundInt(a.TotalElevationGain),
	}
}

// FormatActivityDate renders t like "Sep 2, 2025, 4:37:58 AM"
func FormatActivityDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(activityDateFmt)
}

// KilometersRounded converts meters to kilometers with two decimals
func KilometersRounded(meters float64) float64 {
	return math.Round(meters/10) / 100
}

func roundInt(v float64) int64 {
	return int64(math.Round(v))
}

func typeOrUnknown(t string) string {
	if t == "" {
		return unknownType
	}
	return t
}
