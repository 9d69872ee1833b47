/*-------------------------------------------------------------------------
 *
 * jobs-feed - SQLite Connection Provider
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteProvider serves connections to a local SQLite file holding a jobs
// table. It exists for local runs and tests without a PostgreSQL server.
type SQLiteProvider struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens the database at path and verifies it with a ping
func OpenSQLite(ctx context.Context, path string) (*SQLiteProvider, error) {
	startTime := time.Now()
	dsn := sqliteDSN(path, "_pragma=query_only(1)&_pragma=busy_timeout(5000)")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		LogConnection(dsn, time.Since(startTime), err)
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		LogConnection(dsn, time.Since(startTime), err)
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	LogConnection(dsn, time.Since(startTime), nil)
	return &SQLiteProvider{db: db, path: path}, nil
}

// sqliteDSN returns a file: URI for path. The path is percent-encoded so
// that ? and # in file names do not end up in the query string.
func sqliteDSN(path, query string) string {
	u := url.URL{
		Scheme:   "file",
		Opaque:   (&url.URL{Path: path}).EscapedPath(),
		RawQuery: query,
	}
	return u.String()
}

// Acquire reserves a dedicated connection from the sql.DB pool
func (p *SQLiteProvider) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to acquire connection: %w", err)
	}
	return &sqlConn{conn: conn}, nil
}

// Close closes the database
func (p *SQLiteProvider) Close() {
	if err := p.db.Close(); err != nil {
		globalLogger.Info("Close failed", "path", p.path, "error", err)
	}
}

// sqlConn adapts *sql.Conn to Conn
type sqlConn struct {
	conn *sql.Conn
}

func (c *sqlConn) Query(ctx context.Context, query string) (Rows, error) {
	LogQueryDetails(query, nil)
	start := time.Now()

	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		LogQuery(query, time.Since(start), 0, err)
		return nil, err
	}

	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		LogQuery(query, time.Since(start), 0, err)
		return nil, err
	}

	return &sqlRows{rows: rows, columns: columns, query: query, start: start}, nil
}

func (c *sqlConn) Release() {
	_ = c.conn.Close()
}

// sqlRows adapts *sql.Rows to Rows
type sqlRows struct {
	rows    *sql.Rows
	columns []string
	query   string
	start   time.Time
	count   int
	err     error
	closed  bool
}

func (r *sqlRows) Columns() []string { return r.columns }

func (r *sqlRows) Next() bool {
	if r.err != nil {
		return false
	}
	if r.rows.Next() {
		r.count++
		return true
	}
	return false
}

// Values scans the current row into freshly allocated interface values
func (r *sqlRows) Values() ([]any, error) {
	values := make([]any, len(r.columns))
	dest := make([]any, len(r.columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		r.err = err
		return nil, err
	}
	return values, nil
}

func (r *sqlRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *sqlRows) Close() {
	if r.closed {
		return
	}
	r.closed = true
	_ = r.rows.Close()
	LogQuery(r.query, time.Since(r.start), r.count, r.Err())
}
