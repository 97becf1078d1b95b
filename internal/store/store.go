// Package store is the PostgreSQL persistence layer for the dispatch
// scheduler. All prospect status transitions are compare-and-set style
// updates scoped by campaign id, and every transition out of pending
// verifies the affected row count.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/innovareai/outreach-dispatcher/internal/config"
)

var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrShortWrite means a status update affected fewer rows than
	// submitted. The dispatch may already have happened externally while
	// the local record of it did not, so callers must surface this
	// distinctly from ordinary dispatch failures.
	ErrShortWrite = errors.New("store: status update affected fewer rows than expected")
)

// Store wraps the database handle shared by the repositories.
type Store struct {
	db *sql.DB
}

// New wraps an existing database handle (used by tests with sqlmock).
func New(db *sql.DB) *Store { return &Store{db: db} }

// Open connects to PostgreSQL with the configured pool settings and
// verifies the connection before returning.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeMins) * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle for components that need it directly
// (advisory locks).
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }
