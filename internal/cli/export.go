package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"strava-export/internal/auth"
	"strava-export/internal/config"
	"strava-export/internal/export"
	"strava-export/internal/report"
	"strava-export/internal/service"
	"strava-export/internal/store"
	"strava-export/internal/strava"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch every activity and write the JSON document (default command)",
		Args:  cobra.NoArgs,
		RunE:  a.runExport,
	}
	addExportFlags(cmd)
	return cmd
}

func addExportFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("output", "o", config.DefaultOutputPath, "output file path")
	f.String("shape", export.DashboardShape.String(), "document shape: export or dashboard")
	f.String("archive", "", "SQLite archive to record the export in (empty disables)")
	f.Int("max-pages", 0, "fail after this many page requests without an empty page (0 = unlimited)")
	f.String("timezone", "", "IANA timezone for export dates (default is the local zone)")
	f.Bool("no-chart", false, "omit the distance chart from the summary")
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	var archive service.Archiver
	if cfg.Archive.Path != "" {
		db, err := store.Open(cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		defer db.Close()
		archive = db
	}

	exchanger := auth.NewExchanger(a.httpClient, cfg.Strava.TokenURL, cfg.Credentials())

	newFetcher := func(ctx context.Context, ts oauth2.TokenSource) service.ActivityFetcher {
		return strava.NewClient(ctx, ts,
			strava.WithBaseURL(cfg.Strava.BaseURL),
			strava.WithMaxPages(cfg.Fetch.MaxPages),
			strava.WithHTTPClient(a.httpClient),
		)
	}

	svc := service.NewExportService(exchanger, newFetcher, service.ExportOptions{
		Shape:      cfg.Shape(),
		OutputPath: cfg.Output.Path,
		Location:   cfg.Location(),
		Archive:    archive,
		Logger:     a.logger,
	})

	result, err := svc.Run(cmd.Context())
	if err != nil {
		return err
	}

	return report.WriteSummary(cmd.OutOrStdout(), report.Summary{
		OutputPath: result.OutputPath,
		Shape:      result.Shape,
		Stats:      result.Stats,
		Distances:  result.RecentDistances,
		Chart:      cfg.Output.Chart,
		RunID:      result.RunID,
	})
}
