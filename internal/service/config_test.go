package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dcad-backend/internal/telemetry"
	"dcad-backend/lib/configutil"

	"github.com/stretchr/testify/require"
)

func TestDatabaseFromURL(t *testing.T) {
	t.Setenv("DATABASE_AUTH_TOKEN", "secret")

	testCases := []struct {
		url      string
		expected configutil.Database
	}{
		{
			url:      "postgres://user:pw@localhost:5432/dcad?sslmode=disable",
			expected: configutil.Database{Driver: configutil.DriverPostgres, Url: "postgres://user:pw@localhost:5432/dcad?sslmode=disable"},
		},
		{
			url:      "libsql://dcad.turso.io",
			expected: configutil.Database{Driver: configutil.DriverLibsql, Url: "libsql://dcad.turso.io", AuthToken: "secret"},
		},
		{
			url:      "file:data/dcad.db",
			expected: configutil.Database{Driver: configutil.DriverSqlite, File: "data/dcad.db"},
		},
	}
	for _, test := range testCases {
		t.Run(test.url, func(t *testing.T) {
			require.Equal(t, test.expected, databaseFromURL(test.url))
		})
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("DATABASE_URL", "")

	cfg, err := ReadConfig()
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	err = os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// only the overridden fields
		batch: { workers: 4 },
		scraper: { retries: 5 },
	}`), 0644)
	require.NoError(t, err)

	cfg, err = ReadConfig()
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Batch.Workers)
	require.Equal(t, time.Second, cfg.BatchOptions().Delay)
	require.Equal(t, 5, cfg.ScraperOptions().Retries)
	require.Equal(t, 30*time.Second, cfg.ScraperOptions().Timeout)
	require.Equal(t, "dcad.db", cfg.Database.File)
}

func TestOpen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.File = ":memory:"
	cfg.Archive.Type = "local"
	cfg.Archive.LocalPath = t.TempDir()

	components, err := Open(context.Background(), cfg, &telemetry.Recorder{})
	require.NoError(t, err)
	defer components.Close()
	require.NotNil(t, components.Archive)

	_, err = components.Service.Detail(context.Background(), "bad", false)
	require.Error(t, err)
}
