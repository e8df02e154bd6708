package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dcad-backend/internal/db"
	"dcad-backend/lib/configutil"
)

const stateDir = "dev/.state"

// CreateDevDB creates and migrates the sqlite database the local config
// points at.
func CreateDevDB() error {
	path := filepath.Join(stateDir, "dcad.db")
	if _, err := os.Stat(path); err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	sqldb, err := configutil.Database{
		Driver: configutil.DriverSqlite,
		File:   path,
	}.OpenDB()
	if err != nil {
		return err
	}
	defer sqldb.Close()
	return db.Migrate(context.Background(), sqldb)
}

const localConfig = `{
  database: {
    driver: "sqlite",
    file: "dev/.state/dcad.db",
  },
  archive: {
    type: "local",
    local_path: "dev/.state/archive",
  },
  batch: {
    workers: 2,
    delay_millis: 1500,
  },
}
`

// WriteLocalConfig writes config.local.json5 in the repository root unless
// one already exists.
func WriteLocalConfig() error {
	const path = "config.local.json5"
	if _, err := os.Stat(path); err == nil {
		fmt.Println("local config already exists at", path)
		return nil
	}
	fmt.Println("writing local config to", path)
	return os.WriteFile(path, []byte(localConfig), 0644)
}

func PrintConfigLocations() {
	slog.Info("commands read config.json5 (overridden by config.local.json5) and telemetry.json5 from the nearest parent directory, DATABASE_URL in the environment or a .env file replaces the configured database.")
}
