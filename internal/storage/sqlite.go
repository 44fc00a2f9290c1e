// Package storage persists servers, players, settings history, sessions and
// events in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Driver sqlite
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Repository manages the SQLite database connection.
// It holds a single connection, every write goes through one writer.
type Repository struct {
	db *sql.DB
}

// New opens the database at dbPath and applies pending migrations.
func New(ctx context.Context, dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_time_format=sqlite"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", dbPath, err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Counts holds the number of rows per table.
type Counts struct {
	Servers      int64 `json:"servers"`
	Entities     int64 `json:"entities"`
	Settings     int64 `json:"settings"`
	Sessions     int64 `json:"sessions"`
	ServerEvents int64 `json:"server_events"`
	PlayerEvents int64 `json:"player_events"`
}

// Counts returns the row count of every table.
func (r *Repository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM servers),
			(SELECT COUNT(*) FROM entities),
			(SELECT COUNT(*) FROM server_settings),
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM server_events),
			(SELECT COUNT(*) FROM player_events)
	`).Scan(&c.Servers, &c.Entities, &c.Settings, &c.Sessions, &c.ServerEvents, &c.PlayerEvents)

	return c, err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func toSeconds(d time.Duration) float64 {
	return d.Seconds()
}

func fromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
