// Package sqlite keeps the local log of fetched price quotes.
// Calculator inputs are never written here.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// FileName is the quote log file inside the storage dir.
const FileName = "quotes.db"

// schema holds one step per version; PRAGMA user_version records how many
// have been applied.
var schema = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS price_quotes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			token_id   TEXT NOT NULL,
			usd        REAL NOT NULL,
			source     TEXT NOT NULL DEFAULT '',
			fetched_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_token ON price_quotes(token_id, id)`,
	},
}

// DB is the quote log.
type DB struct {
	db   *sql.DB
	path string
}

// Open creates or opens dir/quotes.db in WAL mode with a 5s busy timeout
// and brings the schema up to date.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open quote log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping quote log: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db, path: path}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate quote log: %w", err)
	}
	return d, nil
}

// Path returns the database file location.
func (d *DB) Path() string { return d.path }

// Close closes the connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// SchemaVersion reports how many schema steps have been applied.
func (d *DB) SchemaVersion() (int, error) {
	var v int
	if err := d.db.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (d *DB) migrate() error {
	current, err := d.SchemaVersion()
	if err != nil {
		return err
	}
	for v := current; v < len(schema); v++ {
		tx, err := d.db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range schema[v] {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("schema step %d: %w\nSQL: %s", v+1, err, stmt)
			}
		}
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("schema step %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
