package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
)

// ErrUnavailable marks failures to reach the database, as opposed to
// failures of a statement that ran on a live connection.
var ErrUnavailable = errors.New("database unavailable")

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// Open opens the handle and verifies connectivity. A MaxIdleConns of zero
// means every released connection is closed rather than kept for reuse.
func Open(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("database driver is required")
	}
	if cfg.Driver != "duckdb" && cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}

	return db, nil
}

// Conn is the subset of *sql.Conn the readers and executors need.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Close() error
}

// Connector hands out one dedicated connection per acquisition.
type Connector interface {
	Acquire(ctx context.Context) (Conn, error)
}

type PoolConnector struct {
	db *sql.DB
}

func NewConnector(db *sql.DB) *PoolConnector {
	return &PoolConnector{db: db}
}

func (c *PoolConnector) Acquire(ctx context.Context) (Conn, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("%w: connector is not configured", ErrUnavailable)
	}
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %w", ErrUnavailable, err)
	}
	return conn, nil
}

func (c *PoolConnector) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return fmt.Errorf("%w: connector is not configured", ErrUnavailable)
	}
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	return nil
}

// WithConn acquires a connection, runs fn on it, and always releases it.
// A release failure is reported only when fn itself succeeded.
func WithConn(ctx context.Context, connector Connector, fn func(Conn) error) (err error) {
	if connector == nil {
		return fmt.Errorf("%w: connector is not configured", ErrUnavailable)
	}
	conn, err := connector.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("release connection: %w", closeErr)
		}
	}()
	return fn(conn)
}
