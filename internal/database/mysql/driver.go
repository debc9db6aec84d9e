// Package mysql implements database.DB on top of database/sql and
// go-sql-driver/mysql, dialing through a caller-supplied transport.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/database"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/errs"
)

// tunnelNet is the network name the forwarded dialer is registered under.
const tunnelNet = "mysql+tunnel"

// ContextDialer yields a connected stream to addr on demand. The SSH tunnel
// implements this; tests can substitute a plain net.Dialer.
type ContextDialer interface {
	DialContext(ctx context.Context, addr string) (net.Conn, error)
}

// Driver is a MySQL implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

// New opens a MySQL connection pool using the provided Config and returns a
// Driver. When dialer is non-nil every pooled connection is carried over it
// instead of a direct TCP dial. New pings the server before returning, so
// connection setup failures surface here rather than on the first query.
func New(ctx context.Context, cfg *database.Config, dialer ContextDialer) (*Driver, error) {
	netName := "tcp"
	if dialer != nil {
		mysql.RegisterDialContext(tunnelNet, func(ctx context.Context, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, addr)
		})
		netName = tunnelNet
	}

	mc := mysql.NewConfig()
	mc.Net = netName
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	mc.ParseTime = true

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	d := &Driver{db: db}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// --- database.DB implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &mysqlRows{rows: rows}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return &mysqlRow{row: d.db.QueryRowContext(ctx, query, args...)}
}

// --- sql.DB type wrappers ---

type mysqlRows struct {
	rows *sql.Rows
}

func (r *mysqlRows) Next() bool                 { return r.rows.Next() }
func (r *mysqlRows) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *mysqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *mysqlRows) Close()                     { _ = r.rows.Close() }
func (r *mysqlRows) Err() error                 { return r.rows.Err() }

type mysqlRow struct {
	row *sql.Row
}

func (r *mysqlRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapError(err, "query row failed")
	}
	return nil
}

// --- error mapping ---

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case 1044, 1045, 1046, 1049: // access denied / unknown database
		return errs.ErrKindConnectionFailed
	case 1040, 1203: // too many connections
		return errs.ErrKindConnectionFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
