package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dcad-backend/internal/archive"
	"dcad-backend/internal/assembler"
	"dcad-backend/internal/batch"
	"dcad-backend/internal/chrono"
	"dcad-backend/internal/scrapers/dcad"
	"dcad-backend/internal/store"
	"dcad-backend/internal/telemetry"
	"dcad-backend/lib/configutil"

	"dario.cat/mergo"
)

type ScraperConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Retries        int    `json:"retries"`
}

type BatchConfig struct {
	Workers     int `json:"workers"`
	DelayMillis int `json:"delay_millis"`
}

type Config struct {
	Database configutil.Database `json:"database"`
	Archive  archive.Config      `json:"archive"`
	Scraper  ScraperConfig       `json:"scraper"`
	Batch    BatchConfig         `json:"batch"`
}

func DefaultConfig() Config {
	return Config{
		Database: configutil.Database{
			Driver: configutil.DriverSqlite,
			File:   "dcad.db",
		},
		Scraper: ScraperConfig{
			BaseURL:        dcad.DefaultBaseURL,
			TimeoutSeconds: 30,
		},
		Batch: BatchConfig{
			Workers:     1,
			DelayMillis: 1000,
		},
	}
}

// ReadConfig reads the nearest config.json5 over the defaults. DATABASE_URL
// in the environment replaces the configured database.
func ReadConfig() (Config, error) {
	cfg, err := configutil.ReadRecursively[Config]("config.json5")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	err = mergo.Merge(&cfg, DefaultConfig())
	if err != nil {
		return Config{}, err
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database = databaseFromURL(url)
	}
	return cfg, nil
}

func databaseFromURL(url string) configutil.Database {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return configutil.Database{Driver: configutil.DriverPostgres, Url: url}
	case strings.HasPrefix(url, "libsql://"), strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"):
		return configutil.Database{
			Driver:    configutil.DriverLibsql,
			Url:       url,
			AuthToken: os.Getenv("DATABASE_AUTH_TOKEN"),
		}
	}
	return configutil.Database{
		Driver: configutil.DriverSqlite,
		File:   strings.TrimPrefix(url, "file:"),
	}
}

func (c Config) ScraperOptions() dcad.Options {
	return dcad.Options{
		BaseURL: c.Scraper.BaseURL,
		Timeout: time.Duration(c.Scraper.TimeoutSeconds) * time.Second,
		Retries: c.Scraper.Retries,
	}
}

func (c Config) BatchOptions() batch.Options {
	return batch.Options{
		Workers: c.Batch.Workers,
		Delay:   time.Duration(c.Batch.DelayMillis) * time.Millisecond,
	}
}

// Components are the wired dependencies of a command.
type Components struct {
	DB      *sql.DB
	Store   store.Store
	Engine  assembler.Engine
	Client  *dcad.Client
	Archive archive.Archive
	Runner  batch.Runner
	Service Service
}

// Open connects and migrates the database, then wires the scraper, archive
// and batch runner around it.
func Open(ctx context.Context, cfg Config, tel telemetry.API) (Components, error) {
	sqldb, err := cfg.Database.OpenDB()
	if err != nil {
		return Components{}, fmt.Errorf("open db: %w", err)
	}
	st := store.New(sqldb, cfg.Database.Dialect(), chrono.StandardTime{}, tel)
	if err := st.Migrate(ctx); err != nil {
		sqldb.Close()
		return Components{}, fmt.Errorf("migrate db: %w", err)
	}

	client, err := dcad.NewClient(cfg.ScraperOptions(), tel)
	if err != nil {
		sqldb.Close()
		return Components{}, fmt.Errorf("init scraper: %w", err)
	}
	arch, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		sqldb.Close()
		return Components{}, fmt.Errorf("init archive: %w", err)
	}

	engine := assembler.NewEngine(tel)
	runner := batch.NewRunner(client, engine, st, arch, tel)
	return Components{
		DB:      sqldb,
		Store:   st,
		Engine:  engine,
		Client:  client,
		Archive: arch,
		Runner:  runner,
		Service: NewService(
			engine,
			WithSnapshots(st),
			WithScraper(runner),
			WithCustomTelemetryAPI(tel),
		),
	}, nil
}

func (c Components) Close() error {
	return c.DB.Close()
}
