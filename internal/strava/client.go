package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

const (
	BaseURL = "https://www.strava.com/api/v3"

	// PerPage is the page size requested from /athlete/activities
	PerPage = 200
)

// Client is a Strava API client
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxPages   int
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	maxPages   int
	httpClient *http.Client
}

// WithBaseURL points the client at a different API root
func WithBaseURL(u string) Option {
	return func(o *clientOptions) {
		if u != "" {
			o.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithMaxPages caps pagination. Zero leaves it unbounded.
func WithMaxPages(n int) Option {
	return func(o *clientOptions) { o.maxPages = n }
}

// WithHTTPClient sets the transport the bearer client is built on
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// NewClient creates a new Strava API client. Every request carries
// "Authorization: Bearer <token>" from tokenSource.
func NewClient(ctx context.Context, tokenSource oauth2.TokenSource, opts ...Option) *Client {
	o := clientOptions{baseURL: BaseURL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}

	return &Client{
		httpClient: oauth2.NewClient(ctx, tokenSource),
		baseURL:    o.baseURL,
		maxPages:   o.maxPages,
	}
}

// GetActivities fetches a single page of the athlete's activities
func (c *Client) GetActivities(ctx context.Context, page, perPage int) ([]Activity, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))

	reqURL := c.baseURL + "/athlete/activities?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &FetchError{
			Page:       page,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, fmt.Errorf("decoding activities: %w", err)
	}

	return activities, nil
}

// GetAllActivities requests pages 1, 2, ... one at a time until a page comes
// back empty, and returns every record in request order. On error nothing
// fetched so far is returned. onPage, if set, is called after each non-empty page.
func (c *Client) GetAllActivities(ctx context.Context, onPage func(page, count int)) ([]Activity, error) {
	var allActivities []Activity

	for page := 1; ; page++ {
		if c.maxPages > 0 && page > c.maxPages {
			return nil, fmt.Errorf("fetching page %d: %w", page, ErrPageLimit)
		}

		activities, err := c.GetActivities(ctx, page, PerPage)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}

		if len(activities) == 0 {
			break
		}

		allActivities = append(allActivities, activities...)

		if onPage != nil {
			onPage(page, len(activities))
		}
	}

	return allActivities, nil
}
