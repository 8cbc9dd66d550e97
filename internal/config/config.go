// Package config loads strava-export settings from flags, environment
// variables, an optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"strava-export/internal/auth"
	"strava-export/internal/export"
	"strava-export/internal/strava"
)

// Config represents the application configuration
type Config struct {
	Strava  StravaConfig  `mapstructure:"strava"`
	Output  OutputConfig  `mapstructure:"output"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Log     LogConfig     `mapstructure:"log"`
}

// StravaConfig holds Strava API credentials and endpoints
type StravaConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	TokenURL     string `mapstructure:"token_url"`
	BaseURL      string `mapstructure:"base_url"`
}

// OutputConfig controls the written document
type OutputConfig struct {
	Path     string `mapstructure:"path"`
	Shape    string `mapstructure:"shape"`
	Timezone string `mapstructure:"timezone"`
	Chart    bool   `mapstructure:"chart"`
}

// FetchConfig controls pagination. MaxPages 0 means no limit.
type FetchConfig struct {
	MaxPages int `mapstructure:"max_pages"`
}

// ArchiveConfig points at the optional SQLite archive. Empty disables it.
type ArchiveConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultOutputPath is where the document lands unless overridden
const DefaultOutputPath = "data/strava-activities.json"

var (
	// ErrInvalidShape is returned when output.shape names no known document shape
	ErrInvalidShape = errors.New("invalid output shape")

	// ErrMissingCredentials is returned when the login flow lacks client credentials
	ErrMissingCredentials = errors.New("missing strava client credentials")
)

// envBindings maps config keys to the environment variables that set them
var envBindings = map[string]string{
	"strava.client_id":     "STRAVA_CLIENT_ID",
	"strava.client_secret": "STRAVA_CLIENT_SECRET",
	"strava.refresh_token": "STRAVA_REFRESH_TOKEN",
	"strava.token_url":     "STRAVA_TOKEN_URL",
	"strava.base_url":      "STRAVA_BASE_URL",
	"output.path":          "STRAVA_OUTPUT_PATH",
	"output.shape":         "STRAVA_OUTPUT_SHAPE",
	"output.timezone":      "STRAVA_OUTPUT_TIMEZONE",
	"output.chart":         "STRAVA_OUTPUT_CHART",
	"fetch.max_pages":      "STRAVA_MAX_PAGES",
	"archive.path":         "STRAVA_ARCHIVE_PATH",
	"log.level":            "STRAVA_LOG_LEVEL",
}

// flagBindings maps config keys to command line flag names
var flagBindings = map[string]string{
	"output.path":     "output",
	"output.shape":    "shape",
	"output.timezone": "timezone",
	"fetch.max_pages": "max-pages",
	"archive.path":    "archive",
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Strava: StravaConfig{
			TokenURL: auth.TokenURL,
			BaseURL:  strava.BaseURL,
		},
		Output: OutputConfig{
			Path:  DefaultOutputPath,
			Shape: export.DashboardShape.String(),
			Chart: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load resolves configuration with precedence flag > env > config file > default.
// cfgFile may be empty, in which case .strava-export.yaml is looked up in the
// working directory. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".strava-export")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding --%s: %w", name, err)
				}
			}
		}
		if flags.Changed("no-chart") {
			if off, _ := flags.GetBool("no-chart"); off {
				v.Set("output.chart", false)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("strava.client_id", d.Strava.ClientID)
	v.SetDefault("strava.client_secret", d.Strava.ClientSecret)
	v.SetDefault("strava.refresh_token", d.Strava.RefreshToken)
	v.SetDefault("strava.token_url", d.Strava.TokenURL)
	v.SetDefault("strava.base_url", d.Strava.BaseURL)

	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.shape", d.Output.Shape)
	v.SetDefault("output.timezone", d.Output.Timezone)
	v.SetDefault("output.chart", d.Output.Chart)

	v.SetDefault("fetch.max_pages", d.Fetch.MaxPages)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("log.level", d.Log.Level)
}

// Validate checks settings that would otherwise fail late. Missing secrets
// are not checked here; Strava rejects them during the token exchange.
func (c *Config) Validate() error {
	if _, err := export.ParseShape(c.Output.Shape); err != nil {
		return fmt.Errorf("%w: output.shape must be \"export\" or \"dashboard\", got %q", ErrInvalidShape, c.Output.Shape)
	}

	if c.Output.Path == "" {
		return errors.New("output.path must not be empty")
	}

	if c.Output.Timezone != "" {
		if _, err := time.LoadLocation(c.Output.Timezone); err != nil {
			return fmt.Errorf("output.timezone %q: %w", c.Output.Timezone, err)
		}
	}

	if c.Fetch.MaxPages < 0 {
		return fmt.Errorf("fetch.max_pages must not be negative, got %d", c.Fetch.MaxPages)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	return nil
}

// ValidateLogin checks the client credentials needed by the browser login flow
func (c *Config) ValidateLogin() error {
	if c.Strava.ClientID == "" {
		return fmt.Errorf("%w: STRAVA_CLIENT_ID is required - get it from https://www.strava.com/settings/api", ErrMissingCredentials)
	}
	if c.Strava.ClientSecret == "" {
		return fmt.Errorf("%w: STRAVA_CLIENT_SECRET is required - get it from https://www.strava.com/settings/api", ErrMissingCredentials)
	}
	return nil
}

// Shape returns the parsed output shape
func (c *Config) Shape() export.Shape {
	shape, err := export.ParseShape(c.Output.Shape)
	if err != nil {
		return export.DashboardShape
	}
	return shape
}

// Location returns the timezone used for export dates. Empty means the
// machine's local zone.
func (c *Config) Location() *time.Location {
	if c.Output.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Output.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Credentials returns the secrets used for the refresh token exchange
func (c *Config) Credentials() auth.Credentials {
	return auth.Credentials{
		ClientID:     c.Strava.ClientID,
		ClientSecret: c.Strava.ClientSecret,
		RefreshToken: c.Strava.RefreshToken,
	}
}
