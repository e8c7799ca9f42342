// Package config loads sortie settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Store driver names.
const (
	DriverSQLite   = "sqlite"
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverS3       = "s3"
	DriverPostgres = "postgres"
)

// Drivers lists every supported store driver.
var Drivers = []string{DriverSQLite, DriverFile, DriverMemory, DriverS3, DriverPostgres}

// Config is the process configuration. Command-line flags override it.
type Config struct {
	Home        string `env:"SORTIE_HOME"`
	Profile     string `env:"SORTIE_PROFILE" envDefault:"default"`
	Store       string `env:"SORTIE_STORE" envDefault:"sqlite"`
	DBPath      string `env:"SORTIE_DB_PATH"`
	CampaignDir string `env:"SORTIE_CAMPAIGN_DIR"`
	TeamSize    int    `env:"SORTIE_TEAM_SIZE" envDefault:"0"`
	LogLevel    string `env:"SORTIE_LOG_LEVEL" envDefault:"info"`
	MetricsFile string `env:"SORTIE_METRICS_FILE"`

	S3       S3
	Postgres Postgres
}

// S3 configures the s3 store driver.
type S3 struct {
	Bucket          string `env:"SORTIE_S3_BUCKET"`
	Region          string `env:"SORTIE_S3_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"SORTIE_S3_ENDPOINT"`
	PathStyle       bool   `env:"SORTIE_S3_PATH_STYLE" envDefault:"false"`
	Prefix          string `env:"SORTIE_S3_PREFIX" envDefault:"sortie/"`
	AccessKeyID     string `env:"SORTIE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SORTIE_S3_SECRET_ACCESS_KEY"`
}

// Postgres configures the postgres store driver.
type Postgres struct {
	DSN string `env:"SORTIE_POSTGRES_DSN"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the environment, resolves the home directory and validates.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	home, err := ResolveHome(cfg.Home)
	if err != nil {
		return Config{}, err
	}
	cfg.Home = home
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ResolveHome returns the sortie home directory: override if set, else
// ~/.sortie.
func ResolveHome(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine user home directory")
	}
	return filepath.Join(home, ".sortie"), nil
}

// Validate checks field values.
func (c Config) Validate() error {
	var problems []string
	if !isDriver(c.Store) {
		problems = append(problems, fmt.Sprintf("SORTIE_STORE %q is not one of %s", c.Store, strings.Join(Drivers, ", ")))
	}
	if c.TeamSize < 0 {
		problems = append(problems, fmt.Sprintf("SORTIE_TEAM_SIZE %d is negative", c.TeamSize))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Store == DriverS3 && c.S3.Bucket == "" {
		problems = append(problems, "SORTIE_S3_BUCKET is required for the s3 store")
	}
	if c.Store == DriverPostgres && c.Postgres.DSN == "" {
		problems = append(problems, "SORTIE_POSTGRES_DSN is required for the postgres store")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SQLitePath returns the database path: DBPath if set, else <home>/sortie.db.
func (c Config) SQLitePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.Home, "sortie.db")
}

// SaveDir returns the directory used by the file store.
func (c Config) SaveDir() string {
	return filepath.Join(c.Home, "saves")
}

// ParseLevel maps a level name onto a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("SORTIE_LOG_LEVEL %q is not debug, info, warn or error", s)
	}
	return level, nil
}

func isDriver(s string) bool {
	for _, d := range Drivers {
		if d == s {
			return true
		}
	}
	return false
}
