// Package export turns raw Strava activities into the JSON documents this
// tool writes: a flat per-activity export or a compact dashboard summary.
package export

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownShape is returned for an output shape name that isn't recognized
var ErrUnknownShape = errors.New("unknown output shape")

// Shape selects which output document the pipeline produces
type Shape int

const (
	// ExportShape writes every activity as a flat export record plus stats
	ExportShape Shape = iota
	// DashboardShape writes stats merged with the ten most recent activities
	DashboardShape
)

// ParseShape parses "export" or "dashboard"
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "export":
		return ExportShape, nil
	case "dashboard":
		return DashboardShape, nil
	default:
		return 0, fmt.Errorf("%w %q: must be export or dashboard", ErrUnknownShape, s)
	}
}

func (s Shape) String() string {
	switch s {
	case ExportShape:
		return "export"
	case DashboardShape:
		return "dashboard"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}
