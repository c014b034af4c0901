package config

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const memoryDb = ":memory:"

// OpenDB opens the run log, a remote libsql database when a url is given and
// a local sqlite file otherwise.
func (c RunLogConfig) OpenDB() (*sql.DB, error) {
	if c.Url != "" {
		dsn := c.Url
		if c.AuthToken != "" {
			parsed, err := url.Parse(c.Url)
			if err != nil {
				return nil, fmt.Errorf("runlog: url: %w", err)
			}
			query := parsed.Query()
			query.Set("authToken", c.AuthToken)
			parsed.RawQuery = query.Encode()
			dsn = parsed.String()
		}
		return sql.Open("libsql", dsn)
	}

	if c.File == "" {
		return nil, fmt.Errorf("runlog: a path was not specified")
	}
	if c.File != memoryDb {
		err := os.MkdirAll(filepath.Dir(c.File), 0755)
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(c.File)
		if os.IsNotExist(statErr) {
			f, err := os.Create(c.File)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	db, err := sql.Open("sqlite", c.File)
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers, and keeps an in-memory database alive
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
