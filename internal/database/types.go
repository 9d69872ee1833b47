/*-------------------------------------------------------------------------
 *
 * jobs-feed - Database Access
 *
 * Copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package database provisions connections for the jobs query. A Provider
// hands out scoped connections; each Conn runs plain SQL text and yields a
// cursor over the result.
package database

import (
	"context"
	"fmt"

	"jobs-feed/internal/config"
)

// Provider hands out scoped connections
type Provider interface {
	// Acquire returns a connection the caller must Release
	Acquire(ctx context.Context) (Conn, error)
	// Close shuts down every connection held by the provider
	Close()
}

// Conn is a connection borrowed from a Provider
type Conn interface {
	// Query runs a SQL statement with no bind parameters
	Query(ctx context.Context, sql string) (Rows, error)
	// Release returns the connection to its provider
	Release()
}

// Rows is a forward-only cursor over a query result
type Rows interface {
	// Columns returns the result column names in select-list order
	Columns() []string
	Next() bool
	// Values returns the current row, one value per column
	Values() ([]any, error)
	Err() error
	Close()
}

// NewProvider connects the provider selected by cfg.Driver
func NewProvider(ctx context.Context, cfg *config.DatabaseConfig) (Provider, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.DriverPostgres, "":
		client := NewClient(cfg)
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
