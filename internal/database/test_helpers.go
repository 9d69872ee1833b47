/*-------------------------------------------------------------------------
 *
 * jobs-feed - Test Fixtures
 *
 * Copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// TestJob is one row of the jobs fixture table
type TestJob struct {
	ID         int64
	Title      string
	City       string
	Location   string
	Company    string
	JobType    string
	DatePosted string // YYYY-MM-DD
	JobURL     string
}

const createJobsTable = `CREATE TABLE IF NOT EXISTS jobs (
	id INTEGER PRIMARY KEY,
	title TEXT,
	city TEXT,
	location TEXT,
	company TEXT,
	job_type TEXT,
	date_posted DATE,
	job_url TEXT
)`

// SeedSQLiteJobs creates the jobs table in the SQLite file at path and
// inserts jobs into it
func SeedSQLiteJobs(ctx context.Context, path string, jobs []TestJob) error {
	db, err := sql.Open("sqlite", sqliteDSN(path, ""))
	if err != nil {
		return fmt.Errorf("failed to open fixture database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createJobsTable); err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}

	for _, j := range jobs {
		_, err := db.ExecContext(ctx,
			`INSERT INTO jobs (id, title, city, location, company, job_type, date_posted, job_url)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			j.ID, j.Title, j.City, j.Location, j.Company, j.JobType, j.DatePosted, j.JobURL)
		if err != nil {
			return fmt.Errorf("failed to insert job %d: %w", j.ID, err)
		}
	}

	return nil
}

// NewTestSQLiteProvider seeds a fixture database at path and opens it
// read-only. Tests in other packages use it to run the real query.
func NewTestSQLiteProvider(ctx context.Context, path string, jobs []TestJob) (*SQLiteProvider, error) {
	if err := SeedSQLiteJobs(ctx, path, jobs); err != nil {
		return nil, err
	}
	return OpenSQLite(ctx, path)
}

// TestJobs returns n fixture jobs, the first posted most recently
func TestJobs(n int) []TestJob {
	jobs := make([]TestJob, n)
	for i := range jobs {
		day := 28 - (i % 28)
		month := 12 - (i/28)%12
		jobs[i] = TestJob{
			ID:         int64(i + 1),
			Title:      fmt.Sprintf("Engineer %d", i+1),
			City:       "Austin",
			Location:   "Austin, TX",
			Company:    fmt.Sprintf("Company %d", i%7),
			JobType:    "Full-time",
			DatePosted: fmt.Sprintf("2024-%02d-%02d", month, day),
			JobURL:     fmt.Sprintf("https://jobs.example.com/%d", i+1),
		}
	}
	return jobs
}
