/*-------------------------------------------------------------------------
 *
 * jobs-feed - PostgreSQL Connection Provider
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"jobs-feed/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplicationName is reported to PostgreSQL in pg_stat_activity
const ApplicationName = "jobs-feed FetchJobsDataLimited"

// ErrNotConnected is returned by Acquire before Connect succeeds or after Close
var ErrNotConnected = errors.New("database client is not connected")

// Client provisions PostgreSQL connections from a pgx pool. The pool
// outlives individual invocations; each Acquire borrows one connection.
type Client struct {
	dbConfig *config.DatabaseConfig
	pool     *pgxpool.Pool
	mu       sync.RWMutex
}

// NewClient creates a new database client from configuration
func NewClient(dbConfig *config.DatabaseConfig) *Client {
	return &Client{dbConfig: dbConfig}
}

// ConnectionString returns the connection string with the password masked
func (c *Client) ConnectionString() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sanitizeConnStr(c.resolveConnStr())
}

func (c *Client) resolveConnStr() string {
	if c.dbConfig != nil {
		return c.dbConfig.BuildConnectionString()
	}
	return "postgres://localhost/postgres?sslmode=disable"
}

// Connect creates the pool and verifies it with a ping. Calling Connect on a
// connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	startTime := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		return nil
	}

	connStr := c.resolveConnStr()

	poolConfig, err := c.poolConfig(connStr)
	if err != nil {
		LogConnection(connStr, time.Since(startTime), err)
		return err
	}

	LogConnectionDetails(connStr, map[string]interface{}{
		"max_conns":          poolConfig.MaxConns,
		"min_conns":          poolConfig.MinConns,
		"max_conn_idle_time": poolConfig.MaxConnIdleTime,
		"connect_timeout":    poolConfig.ConnConfig.ConnectTimeout,
	})

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		LogConnection(connStr, time.Since(startTime), err)
		return fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		LogConnection(connStr, time.Since(startTime), err)
		return fmt.Errorf("unable to ping database: %w", err)
	}

	c.pool = pool
	LogConnection(connStr, time.Since(startTime), nil)
	return nil
}

// poolConfig parses connStr and applies pool settings from configuration
func (c *Client) poolConfig(connStr string) (*pgxpool.Config, error) {
	enhanced, err := addApplicationName(connStr, ApplicationName)
	if err != nil {
		return nil, fmt.Errorf("unable to enhance connection string: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(enhanced)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	if c.dbConfig != nil {
		if c.dbConfig.PoolMaxConns > 0 {
			poolConfig.MaxConns = int32(c.dbConfig.PoolMaxConns)
		}
		if c.dbConfig.PoolMinConns > 0 {
			poolConfig.MinConns = int32(c.dbConfig.PoolMinConns)
		}

		idle, err := c.dbConfig.IdleTime()
		if err != nil {
			return nil, err
		}
		if idle > 0 {
			poolConfig.MaxConnIdleTime = idle
		}

		dial, err := c.dbConfig.DialTimeout()
		if err != nil {
			return nil, err
		}
		if dial > 0 {
			poolConfig.ConnConfig.ConnectTimeout = dial
		}
	}

	// Every session is read-only; this function never writes
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = make(map[string]string)
	}
	poolConfig.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	return poolConfig, nil
}

// addApplicationName adds application_name to a URL-style connection string.
// Keyword/value strings get it appended as another keyword.
func addApplicationName(connStr, appName string) (string, error) {
	if !strings.HasPrefix(connStr, "postgres://") && !strings.HasPrefix(connStr, "postgresql://") {
		if strings.Contains(connStr, "application_name=") {
			return connStr, nil
		}
		return strings.TrimSpace(connStr + " application_name='" + appName + "'"), nil
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return "", fmt.Errorf("invalid connection string: %w", err)
	}

	query := u.Query()
	if !query.Has("application_name") {
		query.Set("application_name", appName)
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}

// Acquire borrows a connection from the pool
func (c *Client) Acquire(ctx context.Context) (Conn, error) {
	c.mu.RLock()
	pool := c.pool
	c.mu.RUnlock()

	if pool == nil {
		return nil, ErrNotConnected
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to acquire connection: %w", err)
	}

	if stat := c.Stats(); stat != nil {
		LogPoolStats(c.ConnectionString(), stat.AcquiredConns(), stat.IdleConns(), stat.MaxConns())
	}

	return &pgConn{conn: conn}, nil
}

// Stats returns a snapshot of pool statistics, or nil when not connected
func (c *Client) Stats() *pgxpool.Stat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pool == nil {
		return nil
	}
	return c.pool.Stat()
}

// Close closes the pool
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

// pgConn adapts a pooled pgx connection to Conn
type pgConn struct {
	conn *pgxpool.Conn
}

func (c *pgConn) Query(ctx context.Context, sql string) (Rows, error) {
	LogQueryDetails(sql, nil)
	start := time.Now()

	// QueryExecModeSimpleProtocol sends the text as-is, with no prepare step
	rows, err := c.conn.Query(ctx, sql, pgx.QueryExecModeSimpleProtocol)
	if err != nil {
		LogQuery(sql, time.Since(start), 0, err)
		return nil, err
	}

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	return &pgRows{rows: rows, columns: columns, query: sql, start: start}, nil
}

func (c *pgConn) Release() {
	c.conn.Release()
}

// pgRows adapts pgx.Rows to Rows and logs the query when closed
type pgRows struct {
	rows    pgx.Rows
	columns []string
	query   string
	start   time.Time
	count   int
	closed  bool
}

func (r *pgRows) Columns() []string { return r.columns }

func (r *pgRows) Next() bool {
	if r.rows.Next() {
		r.count++
		return true
	}
	return false
}

func (r *pgRows) Values() ([]any, error) { return r.rows.Values() }

func (r *pgRows) Err() error { return r.rows.Err() }

func (r *pgRows) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.rows.Close()
	LogQuery(r.query, time.Since(r.start), r.count, r.rows.Err())
}
