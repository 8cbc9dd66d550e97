// Package cli contains the strava-export commands
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"strava-export/internal/config"
)

// app holds state shared by every command of one invocation
type app struct {
	cfgFile string
	envFile string
	verbose bool

	// httpClient is used for every outbound request; nil means http.DefaultClient
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRootCmd builds the command tree. Running it without a subcommand exports.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "strava-export",
		Short: "Export Strava activities to a JSON file",
		Long: `strava-export trades a Strava refresh token for an access token, downloads
the athlete's complete activity history and writes it as JSON, either as a
flat per-activity export or as a compact dashboard summary.

Example usage:
  strava-export                          # dashboard document at data/strava-activities.json
  strava-export --shape export -o out.json
  strava-export auth                     # obtain a refresh token in the browser
  strava-export version`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runExport,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is .strava-export.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	addExportFlags(root)

	root.AddCommand(newExportCmd(a))
	root.AddCommand(newAuthCmd(a))
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command with ctx
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig reads .env, the config file, the environment and cmd's flags,
// then sets up the logger
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log.Level, a.verbose)
	a.logger.Debug("configuration loaded",
		"output", cfg.Output.Path,
		"shape", cfg.Output.Shape,
		"archive", cfg.Archive.Path,
		"max_pages", cfg.Fetch.MaxPages,
	)

	return cfg, nil
}

func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
