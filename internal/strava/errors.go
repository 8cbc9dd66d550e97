package strava

import (
	"errors"
	"fmt"
)

// ErrPageLimit is returned when pagination runs past the configured page cap
var ErrPageLimit = errors.New("page limit reached before an empty page")

// FetchError is returned when the activities endpoint answers a page request
// with a non-200 status.
type FetchError struct {
	Page       int
	StatusCode int
	Status     string // status text, e.g. "Unauthorized"
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch activities: %s", e.Status)
}
