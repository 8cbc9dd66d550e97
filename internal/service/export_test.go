package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"strava-export/internal/auth"
	"strava-export/internal/export"
	"strava-export/internal/store"
	"strava-export/internal/strava"
)

type fakeExchanger struct {
	token *oauth2.Token
	err   error
	calls int
}

func (f *fakeExchanger) Exchange(ctx context.Context) (*oauth2.Token, error) {
	f.calls++
	return f.token, f.err
}

type fakeFetcher struct {
	pages [][]strava.Activity
	err   error
	calls int
	token *oauth2.Token
}

func (f *fakeFetcher) GetAllActivities(ctx context.Context, onPage func(page, count int)) ([]strava.Activity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var all []strava.Activity
	for i, p := range f.pages {
		all = append(all, p...)
		if onPage != nil {
			onPage(i+1, len(p))
		}
	}
	return all, nil
}

func (f *fakeFetcher) factory() FetcherFactory {
	return func(ctx context.Context, ts oauth2.TokenSource) ActivityFetcher {
		tok, err := ts.Token()
		if err == nil {
			f.token = tok
		}
		return f
	}
}

type fakeArchiver struct {
	run        *store.ExportRun
	activities []store.Activity
	err        error
}

func (f *fakeArchiver) SaveExport(ctx context.Context, run *store.ExportRun, activities []store.Activity) error {
	if f.err != nil {
		return f.err
	}
	run.ID = "run-1"
	f.run = run
	f.activities = activities
	return nil
}

var fixedNow = time.Date(2025, 9, 3, 6, 0, 0, 0, time.UTC)

func activity(id int64, typ string, meters float64, start string) strava.Activity {
	ts, err := time.Parse(time.RFC3339, start)
	if err != nil {
		panic(err)
	}
	return strava.Activity{
		ID:         id,
		Athlete:    strava.Athlete{ID: 42},
		Name:       "Activity",
		Type:       typ,
		StartDate:  ts,
		Distance:   meters,
		MovingTime: 1800,
	}
}

func newService(t *testing.T, ex *fakeExchanger, f *fakeFetcher, opts ExportOptions) (*ExportService, string) {
	t.Helper()
	if opts.OutputPath == "" {
		opts.OutputPath = filepath.Join(t.TempDir(), "data", "strava-activities.json")
	}
	opts.Now = func() time.Time { return fixedNow }
	return NewExportService(ex, f.factory(), opts), opts.OutputPath
}

func TestRun_Dashboard(t *testing.T) {
	ex := &fakeExchanger{token: &oauth2.Token{AccessToken: "abc", TokenType: "Bearer"}}
	f := &fakeFetcher{pages: [][]strava.Activity{
		{activity(2, "Run", 5000, "2025-09-02T07:00:00Z"), activity(1, "Ride", 20000, "2025-09-01T07:00:00Z")},
		{activity(0, "Run", 3000, "2025-08-30T07:00:00Z")},
	}}

	svc, path := newService(t, ex, f, ExportOptions{Shape: export.DashboardShape})

	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, "abc", f.token.AccessToken, "fetcher should be authorized by the exchanged token")

	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 3, result.Stats.TotalActivities)
	assert.Equal(t, map[string]int{"Run": 2, "Ride": 1}, result.Stats.ByType)
	assert.Equal(t, int64(42), result.AthleteID)
	assert.Equal(t, []float64{3, 20, 5}, result.RecentDistances)
	assert.Empty(t, result.RunID)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2025-09-03T06:00:00.000Z", doc["lastUpdated"])
	assert.EqualValues(t, 3, doc["totalActivities"])
	assert.Len(t, doc["recentActivities"], 3)
}

func TestRun_ExportShape(t *testing.T) {
	ex := &fakeExchanger{token: &oauth2.Token{AccessToken: "abc"}}
	f := &fakeFetcher{pages: [][]strava.Activity{
		{activity(1, "Run", 12345, "2025-09-01T07:00:00Z"), activity(2, "Walk", 1000, "2025-09-02T07:00:00Z")},
	}}

	svc, path := newService(t, ex, f, ExportOptions{Shape: export.ExportShape, Location: time.UTC})

	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	doc, ok := result.Document.(*export.ExportDocument)
	require.True(t, ok, "document type = %T", result.Document)
	require.Len(t, doc.Activities, 2)
	assert.Equal(t, int64(2), doc.Activities[0].ID, "newest first")
	assert.Equal(t, 12.35, doc.Activities[1].Distance)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRun_AuthFailureSkipsFetchAndWrite(t *testing.T) {
	authErr := &auth.AuthenticationError{StatusCode: 400, Status: "Bad Request", Body: "invalid"}
	ex := &fakeExchanger{err: authErr}
	f := &fakeFetcher{}

	svc, path := newService(t, ex, f, ExportOptions{Shape: export.DashboardShape})

	_, err := svc.Run(context.Background())
	require.Error(t, err)

	var got *auth.AuthenticationError
	assert.True(t, errors.As(err, &got))
	assert.Equal(t, 0, f.calls, "no activity requests after a failed exchange")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

func TestRun_FetchFailureWritesNothing(t *testing.T) {
	ex := &fakeExchanger{token: &oauth2.Token{AccessToken: "abc"}}
	f := &fakeFetcher{err: &strava.FetchError{Page: 2, StatusCode: 500, Status: "Internal Server Error"}}
	archive := &fakeArchiver{}

	svc, path := newService(t, ex, f, ExportOptions{Shape: export.ExportShape, Archive: archive})

	_, err := svc.Run(context.Background())
	require.Error(t, err)

	var fetchErr *strava.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "failed to fetch activities: Internal Server Error", fetchErr.Error())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
	assert.Nil(t, archive.run, "nothing should be archived")
}

func TestRun_EmptyHistory(t *testing.T) {
	ex := &fakeExchanger{token: &oauth2.Token{AccessToken: "abc"}}
	f := &fakeFetcher{}

	svc, path := newService(t, ex, f, ExportOptions{Shape: export.ExportShape})

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.TotalActivities)
	assert.Empty(t, result.RecentDistances)
	assert.Zero(t, result.AthleteID)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"activities": []`)
}

func TestRun_Archive(t *testing.T) {
	ex := &fakeExchanger{token: &oauth2.Token{AccessToken: "abc"}}
	a := activity(7, "Run", 10000, "2025-09-01T07:00:00Z")
	a.Calories = 512
	f := &fakeFetcher{pages: [][]strava.Activity{{a}}}
	archive := &fakeArchiver{}

	svc, path := newService(t, ex, f, ExportOptions{Shape: export.DashboardShape, Archive: archive})

	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	require.NotNil(t, archive.run)
	assert.Equal(t, "dashboard", archive.run.Shape)
	assert.Equal(t, path, archive.run.OutputPath)
	assert.Equal(t, 1, archive.run.ActivityCount)
	assert.Equal(t, int64(10), archive.run.TotalDistance)
	assert.Equal(t, fixedNow, archive.run.FinishedAt)

	require.Len(t, archive.activities, 1)
	stored := archive.activities[0]
	assert.Equal(t, int64(7), stored.ID)
	require.NotNil(t, stored.Calories)
	assert.Equal(t, 512.0, *stored.Calories)
	assert.Nil(t, stored.ElevLow)
}

func TestRun_ArchiveFailureIsReported(t *testing.T) {
	ex := &fakeExchanger{token: &oauth2.Token{AccessToken: "abc"}}
	f := &fakeFetcher{pages: [][]strava.Activity{{activity(1, "Run", 1000, "2025-09-01T07:00:00Z")}}}
	archive := &fakeArchiver{err: errors.New("disk full")}

	svc, path := newService(t, ex, f, ExportOptions{Shape: export.DashboardShape, Archive: archive})

	result, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archiving export")
	require.NotNil(t, result)
	assert.Equal(t, path, result.OutputPath)
}

func TestRun_ArchiveWithSQLite(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ex := &fakeExchanger{token: &oauth2.Token{AccessToken: "abc"}}
	f := &fakeFetcher{pages: [][]strava.Activity{
		{activity(1, "Run", 5000, "2025-09-01T07:00:00Z"), activity(2, "Ride", 25000, "2025-09-02T07:00:00Z")},
	}}

	svc, _ := newService(t, ex, f, ExportOptions{Shape: export.ExportShape, Archive: db})

	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	run, err := db.LatestExportRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.RunID, run.ID)
	assert.Equal(t, "export", run.Shape)

	count, err := db.CountActivities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecentDistances(t *testing.T) {
	var activities []strava.Activity
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		a := activity(int64(i), "Run", float64(1000*(i+1)), "2025-01-01T00:00:00Z")
		a.StartDate = start.AddDate(0, 0, i)
		activities = append(activities, a)
	}

	got := recentDistances(activities, ChartPoints)
	require.Len(t, got, ChartPoints)
	assert.Equal(t, 11.0, got[0], "oldest of the newest 30")
	assert.Equal(t, 40.0, got[len(got)-1], "newest last")
}

func TestConvertActivity(t *testing.T) {
	a := activity(3, "Hike", 4200, "2025-09-01T07:00:00Z")
	a.ElevLow = 12.5
	a.ElevHigh = 90

	got := convertActivity(a)
	assert.Equal(t, int64(42), got.AthleteID)
	require.NotNil(t, got.ElevLow)
	assert.Equal(t, 12.5, *got.ElevLow)
	require.NotNil(t, got.ElevHigh)
	assert.Nil(t, got.Calories)
}
