// Package db persists datasets and their configuration overlays in SQLite
// and assembles them into traffic snapshots.
package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/movement.report/internal/monitoring"
	"github.com/banshee-data/movement.report/internal/timeutil"
)

// ErrNotFound is returned when a dataset does not exist.
var ErrNotFound = errors.New("not found")

var logf = monitoring.Component("db")

// pragmas are applied to every pooled connection.
const pragmas = "?_pragma=foreign_keys(1)" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_pragma=temp_store(MEMORY)"

type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// OpenDB opens the database without touching the schema. Use it for
// migration commands; NewDB is the normal entry point.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+pragmas)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; one connection keeps transactions simple
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &DB{DB: db, clock: timeutil.RealClock{}}, nil
}

// NewDB opens the database and migrates it to the latest schema.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// SetClock replaces the clock used to stamp writes.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}

func (db *DB) nowNanos() int64 {
	return db.clock.Now().UnixNano()
}
