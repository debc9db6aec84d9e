// Package database defines the read-only query contract the inspector
// depends on. The concrete MySQL driver lives in the mysql subpackage;
// layers above this package never import it directly.
package database

import (
	"context"
	"time"
)

// DB is the pooled query-execution handle. It is constructed once,
// ping-validated before first use, and closed exactly once at shutdown.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}

// Config holds all settings needed to connect to and pool the database.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// Pool tuning. One invocation runs the fact-gathering queries
	// concurrently, so the pool must allow more than one connection for
	// real parallelism; a pool of one degrades to serial execution.
	MaxConns     int
	MaxIdleConns int

	// Timeouts
	ConnectTimeout time.Duration // time limit for establishing a new connection
	QueryTimeout   time.Duration // deadline the inspector applies to each catalog query
}

// DefaultConfig returns pool settings sized for one diagnostic run.
func DefaultConfig() *Config {
	return &Config{
		MaxConns:       5,
		MaxIdleConns:   2,
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   30 * time.Second,
	}
}
