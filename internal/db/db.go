// Package db exports analysis runs to SQLite: the run record, every trial
// of every condition, the per-condition summaries and the group tests.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/temporal-compression/internal/timeutil"
)

// DB is the export database.
type DB struct {
	*sql.DB
	// Clock stamps created_at on saved runs.
	Clock timeutil.Clock
}

// Open opens (or creates) the SQLite file at path, applies the connection
// PRAGMAs and migrates the schema to the latest version.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB, Clock: timeutil.RealClock{}}
	if err := db.applyPragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) applyPragmas() error {
	for _, p := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}
