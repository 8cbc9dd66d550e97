package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
)

const (
	// CallbackPort is the port for the OAuth callback server
	CallbackPort = 8089
	// AuthTimeout is how long to wait for the user to complete auth
	AuthTimeout = 5 * time.Minute
)

// LoginOptions tunes the interactive login flow
type LoginOptions struct {
	// Listener for the callback server; defaults to :CallbackPort
	Listener net.Listener
	// Timeout defaults to AuthTimeout
	Timeout time.Duration
	// Out receives the prompts; defaults to os.Stdout
	Out io.Writer
	// OpenURL is handed the authorization URL; defaults to printing it to Out
	OpenURL func(authURL string)
}

// Authenticate runs the authorization-code flow with a local callback server
// and returns the long-lived refresh token along with the first access token.
func Authenticate(ctx context.Context, cfg *oauth2.Config, opts LoginOptions) (*AuthResult, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Timeout == 0 {
		opts.Timeout = AuthTimeout
	}

	// Generate state for CSRF protection
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			sendErr(errChan, fmt.Errorf("state mismatch - possible CSRF attack"))
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}

		if errMsg := r.URL.Query().Get("error"); errMsg != "" {
			sendErr(errChan, fmt.Errorf("auth error: %s", errMsg))
			http.Error(w, "Authentication failed", http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			sendErr(errChan, fmt.Errorf("no code in callback"))
			http.Error(w, "No authorization code", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authentication Successful</title></head>
<body style="font-family: system-ui; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0;">
<div style="text-align: center;">
<h1 style="color: #10B981;">Success!</h1>
<p>You can close this window and return to the terminal.</p>
</div>
</body>
</html>`)
		select {
		case codeChan <- code:
		default:
		}
	})

	listener := opts.Listener
	if listener == nil {
		listener, err = net.Listen("tcp", fmt.Sprintf(":%d", CallbackPort))
		if err != nil {
			return nil, fmt.Errorf("starting callback server: %w", err)
		}
	}

	server := &http.Server{Handler: mux}
	defer shutdownServer(server)

	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			sendErr(errChan, fmt.Errorf("server error: %w", err))
		}
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	if opts.OpenURL != nil {
		opts.OpenURL(authURL)
	} else {
		fmt.Fprintln(opts.Out)
		fmt.Fprintln(opts.Out, "To authenticate with Strava, open this URL in your browser:")
		fmt.Fprintln(opts.Out)
		fmt.Fprintf(opts.Out, "  %s\n", authURL)
		fmt.Fprintln(opts.Out)
	}
	fmt.Fprintln(opts.Out, "Waiting for authentication...")

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-time.After(opts.Timeout):
		return nil, fmt.Errorf("authentication timeout after %v", opts.Timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	return &AuthResult{
		Token:     token,
		AthleteID: ExtractAthleteID(token),
	}, nil
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// generateState creates a random state string for CSRF protection
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// shutdownServer gracefully shuts down the HTTP server
func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
