package config

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SORTIE_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Profile)
	assert.Equal(t, DriverSQLite, cfg.Store)
	assert.Equal(t, 0, cfg.TeamSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.Equal(t, "sortie/", cfg.S3.Prefix)
	assert.Equal(t, filepath.Join(cfg.Home, "sortie.db"), cfg.SQLitePath())
	assert.Equal(t, filepath.Join(cfg.Home, "saves"), cfg.SaveDir())
}

func TestLoad_FromEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SORTIE_HOME", home)
	t.Setenv("SORTIE_PROFILE", "pilot-2")
	t.Setenv("SORTIE_STORE", "s3")
	t.Setenv("SORTIE_TEAM_SIZE", "3")
	t.Setenv("SORTIE_LOG_LEVEL", "debug")
	t.Setenv("SORTIE_DB_PATH", "/tmp/custom.db")
	t.Setenv("SORTIE_S3_BUCKET", "saves")
	t.Setenv("SORTIE_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("SORTIE_S3_PATH_STYLE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, "pilot-2", cfg.Profile)
	assert.Equal(t, DriverS3, cfg.Store)
	assert.Equal(t, 3, cfg.TeamSize)
	assert.Equal(t, "/tmp/custom.db", cfg.SQLitePath())
	assert.Equal(t, "saves", cfg.S3.Bucket)
	assert.True(t, cfg.S3.PathStyle)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"driver", map[string]string{"SORTIE_STORE": "floppy"}, "SORTIE_STORE"},
		{"team size", map[string]string{"SORTIE_TEAM_SIZE": "-1"}, "SORTIE_TEAM_SIZE"},
		{"team size type", map[string]string{"SORTIE_TEAM_SIZE": "two"}, "parse env"},
		{"log level", map[string]string{"SORTIE_LOG_LEVEL": "chatty"}, "SORTIE_LOG_LEVEL"},
		{"s3 bucket", map[string]string{"SORTIE_STORE": "s3"}, "SORTIE_S3_BUCKET"},
		{"postgres dsn", map[string]string{"SORTIE_STORE": "postgres"}, "SORTIE_POSTGRES_DSN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SORTIE_HOME", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolveHome(t *testing.T) {
	got, err := ResolveHome("/x/y/../z")
	require.NoError(t, err)
	assert.Equal(t, "/x/z", got)

	got, err = ResolveHome("")
	require.NoError(t, err)
	assert.Equal(t, ".sortie", filepath.Base(got))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
