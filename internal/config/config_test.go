package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"strava-export/internal/auth"
	"strava-export/internal/export"
	"strava-export/internal/strava"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Output.Path != "data/strava-activities.json" {
		t.Errorf("Output.Path = %q, want %q", cfg.Output.Path, "data/strava-activities.json")
	}
	if cfg.Output.Shape != "dashboard" {
		t.Errorf("Output.Shape = %q, want %q", cfg.Output.Shape, "dashboard")
	}
	if !cfg.Output.Chart {
		t.Error("Output.Chart should default to true")
	}
	if cfg.Strava.TokenURL != auth.TokenURL {
		t.Errorf("Strava.TokenURL = %q, want %q", cfg.Strava.TokenURL, auth.TokenURL)
	}
	if cfg.Strava.BaseURL != strava.BaseURL {
		t.Errorf("Strava.BaseURL = %q, want %q", cfg.Strava.BaseURL, strava.BaseURL)
	}
	if cfg.Fetch.MaxPages != 0 {
		t.Errorf("Fetch.MaxPages = %d, want 0", cfg.Fetch.MaxPages)
	}
	if cfg.Archive.Path != "" {
		t.Errorf("Archive.Path should be empty, got %q", cfg.Archive.Path)
	}

	// Secrets have no defaults
	if cfg.Strava.ClientID != "" || cfg.Strava.ClientSecret != "" || cfg.Strava.RefreshToken != "" {
		t.Errorf("Strava secrets should be empty, got %+v", cfg.Strava)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
		errContains string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "missing secrets are not checked",
			mutate: func(c *Config) { c.Strava = StravaConfig{} },
		},
		{
			name:   "export shape",
			mutate: func(c *Config) { c.Output.Shape = "export" },
		},
		{
			name:        "unknown shape",
			mutate:      func(c *Config) { c.Output.Shape = "csv" },
			expectError: true,
			errContains: "output.shape",
		},
		{
			name:        "empty output path",
			mutate:      func(c *Config) { c.Output.Path = "" },
			expectError: true,
			errContains: "output.path",
		},
		{
			name:   "valid timezone",
			mutate: func(c *Config) { c.Output.Timezone = "UTC" },
		},
		{
			name:        "invalid timezone",
			mutate:      func(c *Config) { c.Output.Timezone = "Mars/Olympus_Mons" },
			expectError: true,
			errContains: "output.timezone",
		},
		{
			name:        "negative max pages",
			mutate:      func(c *Config) { c.Fetch.MaxPages = -1 },
			expectError: true,
			errContains: "max_pages",
		},
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.Log.Level = "trace" },
			expectError: true,
			errContains: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_InvalidShapeSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Shape = "xml"

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("Validate() error = %v, want ErrInvalidShape", err)
	}
}

func TestValidateLogin(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateLogin(); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("ValidateLogin() error = %v, want ErrMissingCredentials", err)
	}

	cfg.Strava.ClientID = "12345"
	err := cfg.ValidateLogin()
	if err == nil || !strings.Contains(err.Error(), "STRAVA_CLIENT_SECRET") {
		t.Errorf("ValidateLogin() error = %v, want mention of STRAVA_CLIENT_SECRET", err)
	}

	cfg.Strava.ClientSecret = "secret"
	if err := cfg.ValidateLogin(); err != nil {
		t.Errorf("ValidateLogin() unexpected error: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Output.Path != DefaultOutputPath {
		t.Errorf("Output.Path = %q, want %q", cfg.Output.Path, DefaultOutputPath)
	}
	if cfg.Shape() != export.DashboardShape {
		t.Errorf("Shape() = %v, want dashboard", cfg.Shape())
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STRAVA_CLIENT_ID", "12345")
	t.Setenv("STRAVA_CLIENT_SECRET", "shh")
	t.Setenv("STRAVA_REFRESH_TOKEN", "refresh")
	t.Setenv("STRAVA_OUTPUT_SHAPE", "export")
	t.Setenv("STRAVA_OUTPUT_CHART", "false")
	t.Setenv("STRAVA_MAX_PAGES", "7")
	t.Setenv("STRAVA_ARCHIVE_PATH", "/tmp/archive.db")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	creds := cfg.Credentials()
	if creds.ClientID != "12345" || creds.ClientSecret != "shh" || creds.RefreshToken != "refresh" {
		t.Errorf("Credentials() = %+v", creds)
	}
	if cfg.Output.Shape != "export" {
		t.Errorf("Output.Shape = %q, want export", cfg.Output.Shape)
	}
	if cfg.Output.Chart {
		t.Error("Output.Chart = true, want false")
	}
	if cfg.Fetch.MaxPages != 7 {
		t.Errorf("Fetch.MaxPages = %d, want 7", cfg.Fetch.MaxPages)
	}
	if cfg.Archive.Path != "/tmp/archive.db" {
		t.Errorf("Archive.Path = %q", cfg.Archive.Path)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	content := `
output:
  path: from-file.json
  shape: export
  timezone: UTC
log:
  level: debug
`
	if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("STRAVA_OUTPUT_PATH", "from-env.json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("output", "o", "", "")
	flags.String("shape", "", "")
	flags.String("timezone", "", "")
	flags.Int("max-pages", 0, "")
	flags.String("archive", "", "")
	flags.Bool("no-chart", false, "")
	if err := flags.Parse([]string{"--shape", "dashboard", "--no-chart"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	cfg, err := Load(cfgFile, flags)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// env beats file
	if cfg.Output.Path != "from-env.json" {
		t.Errorf("Output.Path = %q, want from-env.json", cfg.Output.Path)
	}
	// flag beats file
	if cfg.Output.Shape != "dashboard" {
		t.Errorf("Output.Shape = %q, want dashboard", cfg.Output.Shape)
	}
	// file beats default
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
	// unset flags leave lower layers alone
	if cfg.Archive.Path != "" {
		t.Errorf("Archive.Path = %q, want empty", cfg.Archive.Path)
	}
	if cfg.Output.Chart {
		t.Error("--no-chart should disable the chart")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("STRAVA_TEST_ONLY_VALUE=from-dotenv\n"), 0600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}
	t.Setenv("STRAVA_TEST_ONLY_VALUE", "")
	os.Unsetenv("STRAVA_TEST_ONLY_VALUE")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error: %v", err)
	}
	if got := os.Getenv("STRAVA_TEST_ONLY_VALUE"); got != "from-dotenv" {
		t.Errorf("STRAVA_TEST_ONLY_VALUE = %q, want from-dotenv", got)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestLocation_DefaultsToLocal(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Location() != time.Local {
		t.Errorf("Location() = %v, want Local", cfg.Location())
	}
}
