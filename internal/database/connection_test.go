/*-------------------------------------------------------------------------
 *
 * jobs-feed - PostgreSQL Connection Provider Tests
 *
 * Copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"jobs-feed/internal/config"
)

func TestNewClient(t *testing.T) {
	client := NewClient(nil)

	if client == nil {
		t.Fatal("NewClient(nil) returned nil")
	}
	if client.pool != nil {
		t.Error("pool should be nil before Connect")
	}
	if client.Stats() != nil {
		t.Error("Stats() should be nil before Connect")
	}
}

func TestClient_ConnectionStringMasksPassword(t *testing.T) {
	client := NewClient(&config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		Database: "jobs",
		User:     "reader",
		Password: "hunter2",
	})

	got := client.ConnectionString()
	if strings.Contains(got, "hunter2") {
		t.Errorf("ConnectionString() leaked the password: %s", got)
	}
	if got != "postgres://reader:***@db:5432/jobs" {
		t.Errorf("ConnectionString() = %q", got)
	}
}

func TestClient_AcquireBeforeConnect(t *testing.T) {
	client := NewClient(&config.DatabaseConfig{ConnectionString: "postgres://reader@localhost/jobs"})

	_, err := client.Acquire(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Acquire() error = %v, want ErrNotConnected", err)
	}

	// Close on an unconnected client is a no-op
	client.Close()
}

func TestAddApplicationName(t *testing.T) {
	tests := []struct {
		name    string
		connStr string
		want    string
	}{
		{
			name:    "url without query",
			connStr: "postgres://reader@db:5432/jobs",
			want:    "postgres://reader@db:5432/jobs?application_name=jobs-feed+FetchJobsDataLimited",
		},
		{
			name:    "url keeps existing parameters",
			connStr: "postgresql://reader@db/jobs?sslmode=require",
			want:    "postgresql://reader@db/jobs?application_name=jobs-feed+FetchJobsDataLimited&sslmode=require",
		},
		{
			name:    "url with application name already set",
			connStr: "postgres://reader@db/jobs?application_name=custom",
			want:    "postgres://reader@db/jobs?application_name=custom",
		},
		{
			name:    "keyword value form",
			connStr: "host=db user=reader dbname=jobs",
			want:    "host=db user=reader dbname=jobs application_name='jobs-feed FetchJobsDataLimited'",
		},
		{
			name:    "keyword value form with application name",
			connStr: "host=db application_name=custom",
			want:    "host=db application_name=custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := addApplicationName(tt.connStr, ApplicationName)
			if err != nil {
				t.Fatalf("addApplicationName() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("addApplicationName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_PoolConfig(t *testing.T) {
	client := NewClient(&config.DatabaseConfig{
		ConnectionString:    "postgres://reader@db:5432/jobs",
		PoolMaxConns:        4,
		PoolMinConns:        1,
		PoolMaxConnIdleTime: "30s",
		ConnectTimeout:      "3s",
	})

	poolConfig, err := client.poolConfig(client.resolveConnStr())
	if err != nil {
		t.Fatalf("poolConfig() error = %v", err)
	}

	if poolConfig.MaxConns != 4 {
		t.Errorf("MaxConns = %d, want 4", poolConfig.MaxConns)
	}
	if poolConfig.MinConns != 1 {
		t.Errorf("MinConns = %d, want 1", poolConfig.MinConns)
	}
	if poolConfig.MaxConnIdleTime != 30*time.Second {
		t.Errorf("MaxConnIdleTime = %v, want 30s", poolConfig.MaxConnIdleTime)
	}
	if poolConfig.ConnConfig.ConnectTimeout != 3*time.Second {
		t.Errorf("ConnectTimeout = %v, want 3s", poolConfig.ConnConfig.ConnectTimeout)
	}

	params := poolConfig.ConnConfig.RuntimeParams
	if params["default_transaction_read_only"] != "on" {
		t.Error("sessions should be read-only")
	}
	if params["application_name"] != ApplicationName {
		t.Errorf("application_name = %q, want %q", params["application_name"], ApplicationName)
	}
}

func TestClient_PoolConfigInvalidDuration(t *testing.T) {
	client := NewClient(&config.DatabaseConfig{
		ConnectionString:    "postgres://reader@db/jobs",
		PoolMaxConnIdleTime: "later",
	})

	if _, err := client.poolConfig(client.resolveConnStr()); err == nil {
		t.Error("expected error for invalid idle time")
	}
}

func TestClient_ConnectUnreachable(t *testing.T) {
	client := NewClient(&config.DatabaseConfig{
		ConnectionString: "postgres://reader@127.0.0.1:1/jobs?connect_timeout=1&sslmode=disable",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err == nil {
		client.Close()
		t.Fatal("Connect() to a closed port should fail")
	}
	if _, err := client.Acquire(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Acquire() after failed Connect error = %v, want ErrNotConnected", err)
	}
}

// TestClient_Postgres runs the query path against a live server. It is
// skipped unless TEST_JOBSFEED_POSTGRES_CONNECTION_STRING is set.
func TestClient_Postgres(t *testing.T) {
	connStr := os.Getenv("TEST_JOBSFEED_POSTGRES_CONNECTION_STRING")
	if connStr == "" {
		t.Skip("TEST_JOBSFEED_POSTGRES_CONNECTION_STRING not set, skipping PostgreSQL test")
	}

	ctx := context.Background()
	client := NewClient(&config.DatabaseConfig{ConnectionString: connStr})
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	// A second Connect is a no-op
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}

	conn, err := client.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, "SELECT 1 AS one, current_setting('default_transaction_read_only') AS ro")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	defer rows.Close()

	if cols := rows.Columns(); len(cols) != 2 || cols[0] != "one" || cols[1] != "ro" {
		t.Errorf("Columns() = %v", cols)
	}
	if !rows.Next() {
		t.Fatalf("expected one row, err = %v", rows.Err())
	}
	values, err := rows.Values()
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}
	if values[1] != "on" {
		t.Errorf("default_transaction_read_only = %v, want on", values[1])
	}

	if stat := client.Stats(); stat == nil || stat.AcquiredConns() < 1 {
		t.Error("Stats() should report the acquired connection")
	}
}
