package cli

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"strava-export/internal/auth"
)

func newAuthCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize in the browser and print a refresh token",
		Long: `Runs the Strava authorization-code flow with a local callback server and
prints the refresh token to put in STRAVA_REFRESH_TOKEN. Register
http://localhost:<port>/callback as the application's callback domain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateLogin(); err != nil {
				return err
			}

			listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
			if err != nil {
				return fmt.Errorf("starting callback server: %w", err)
			}
			actualPort := listener.Addr().(*net.TCPAddr).Port

			oauthCfg := auth.NewOAuthConfig(auth.Config{
				ClientID:     cfg.Strava.ClientID,
				ClientSecret: cfg.Strava.ClientSecret,
				RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", actualPort),
				TokenURL:     cfg.Strava.TokenURL,
			})

			ctx := cmd.Context()
			if a.httpClient != nil {
				ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
			}

			out := cmd.OutOrStdout()
			result, err := auth.Authenticate(ctx, oauthCfg, auth.LoginOptions{
				Listener: listener,
				Out:      out,
			})
			if err != nil {
				return fmt.Errorf("authentication: %w", err)
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "Successfully authenticated as athlete %d!\n", result.AthleteID)
			fmt.Fprintf(out, "Refresh token: %s\n", result.Token.RefreshToken)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Set STRAVA_REFRESH_TOKEN to this value in your environment or .env file.")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", auth.CallbackPort, "local port for the OAuth callback")
	return cmd
}
