package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrMissingAccessToken is returned when the token endpoint answers 2xx
// without an access_token
var ErrMissingAccessToken = errors.New("token response has no access_token")

// Credentials are the secrets exchanged for an access token
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// AuthenticationError is returned when the token endpoint rejects the exchange
type AuthenticationError struct {
	StatusCode int
	Status     string // status text, e.g. "Bad Request"
	Body       string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("failed to get access token: %s - %s", e.Status, e.Body)
}

// Exchanger turns a refresh token into a short-lived access token with a
// single JSON POST to the token endpoint.
type Exchanger struct {
	httpClient *http.Client
	tokenURL   string
	creds      Credentials
}

// NewExchanger creates an Exchanger. A nil client uses http.DefaultClient and
// an empty tokenURL uses Strava's.
func NewExchanger(httpClient *http.Client, tokenURL string, creds Credentials) *Exchanger {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tokenURL == "" {
		tokenURL = TokenURL
	}
	return &Exchanger{
		httpClient: httpClient,
		tokenURL:   tokenURL,
		creds:      creds,
	}
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	GrantType    string `json:"grant_type"`
}

type tokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Exchange performs the refresh-token grant. The returned token keeps the raw
// response as extras so ExtractAthleteID works on it.
func (e *Exchanger) Exchange(ctx context.Context) (*oauth2.Token, error) {
	payload, err := json.Marshal(tokenRequest{
		ClientID:     e.creds.ClientID,
		ClientSecret: e.creds.ClientSecret,
		RefreshToken: e.creds.RefreshToken,
		GrantType:    "refresh_token",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting access token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthenticationError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, ErrMissingAccessToken
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresAt > 0 {
		token.Expiry = time.Unix(tr.ExpiresAt, 0)
	}

	return token.WithExtra(raw), nil
}
