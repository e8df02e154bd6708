package configutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const (
	DriverSqlite   = "sqlite"
	DriverLibsql   = "libsql"
	DriverPostgres = "postgres"
)

// Database selects and configures the sql backend.
//
// sqlite opens `file` locally, libsql connects to `url` (or a local `file`)
// with an optional `auth_token`, postgres connects to `url`.
type Database struct {
	Driver    string `json:"driver"`
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// Dialect is the sql dialect spoken by the configured driver, either
// "sqlite" or "postgres". libsql speaks the sqlite dialect.
func (config Database) Dialect() string {
	if config.Driver == DriverPostgres {
		return DriverPostgres
	}
	return DriverSqlite
}

func (config Database) OpenDB() (*sql.DB, error) {
	switch config.Driver {
	case "", DriverSqlite:
		return config.openSqlite()
	case DriverLibsql:
		return config.openLibsql()
	case DriverPostgres:
		if config.Url == "" {
			return nil, fmt.Errorf("postgres: a url was not specified")
		}
		return sql.Open("pgx", config.Url)
	default:
		return nil, fmt.Errorf("unknown database driver %q", config.Driver)
	}
}

func (config Database) openSqlite() (*sql.DB, error) {
	if config.File == "" {
		return nil, fmt.Errorf("sqlite: a path was not specified")
	}
	if config.File != ":memory:" {
		err := os.MkdirAll(filepath.Dir(config.File), 0777)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (config Database) openLibsql() (*sql.DB, error) {
	if config.Url == "" {
		if config.File == "" {
			return nil, fmt.Errorf("libsql: a url or file was not specified")
		}
		return sql.Open("libsql", fmt.Sprintf("file:%s", config.File))
	}

	values := url.Values{}
	if config.AuthToken != "" {
		values.Add("authToken", config.AuthToken)
	}
	return sql.Open("libsql", config.Url+"?"+values.Encode())
}
