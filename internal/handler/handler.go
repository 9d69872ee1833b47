/*-------------------------------------------------------------------------
 *
 * jobs-feed - FetchJobsDataLimited Handler
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package handler implements FetchJobsDataLimited: it returns the most
// recently posted jobs as a JSON body inside a response envelope.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"jobs-feed/internal/database"
	"jobs-feed/internal/jsonvalue"
	"jobs-feed/internal/logging"
	"jobs-feed/internal/telemetry"

	goerrors "github.com/go-errors/errors"
)

// FunctionName identifies this function in logs and traces
const FunctionName = "FetchJobsDataLimited"

// StatusOK is the only status code a successful invocation returns
const StatusOK = 200

// Columns are selected from the jobs table in this order
var Columns = []string{
	"id", "title", "city", "location", "company", "job_type", "date_posted", "job_url",
}

// BuildQuery returns the jobs query for limit. limit must already be
// validated; it is written into the statement text.
func BuildQuery(limit int) string {
	return fmt.Sprintf("SELECT %s FROM jobs ORDER BY date_posted DESC LIMIT %d",
		strings.Join(Columns, ", "), limit)
}

// Event is the invocation input. Limit may be a JSON number or string.
// When it is absent, a limit query string parameter from an API Gateway
// proxy event is used instead.
type Event struct {
	Limit                 json.RawMessage   `json:"limit,omitempty"`
	QueryStringParameters map[string]string `json:"queryStringParameters,omitempty"`
}

// rawLimit returns the limit as raw JSON and whether one was supplied
func (e *Event) rawLimit() (json.RawMessage, bool) {
	if e == nil {
		return nil, false
	}
	if len(e.Limit) > 0 {
		return e.Limit, true
	}
	if v, ok := e.QueryStringParameters["limit"]; ok {
		quoted, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return quoted, true
	}
	return nil, false
}

// Response is the invocation output
type Response struct {
	StatusCode     int    `json:"statusCode"`
	Body           string `json:"body"`
	RecordsFetched int    `json:"records_fetched"`
}

// ConnectionProvider supplies scoped database connections
type ConnectionProvider interface {
	Acquire(ctx context.Context) (database.Conn, error)
}

// Handler serves FetchJobsDataLimited invocations
type Handler struct {
	provider    ConnectionProvider
	instruments *telemetry.Instruments
}

// Option configures a Handler
type Option func(*Handler)

// WithTelemetry sets the instruments used to trace and measure invocations
func WithTelemetry(inst *telemetry.Instruments) Option {
	return func(h *Handler) { h.instruments = inst }
}

// New creates a Handler that draws connections from provider
func New(provider ConnectionProvider, opts ...Option) *Handler {
	h := &Handler{provider: provider}
	for _, opt := range opts {
		opt(h)
	}
	if h.instruments == nil {
		h.instruments = telemetry.New(FunctionName)
	}
	return h
}

// Handle resolves the limit, fetches that many jobs and returns them as a
// JSON array in the response body. Database errors are logged and returned
// unchanged; no partial response is produced.
func (h *Handler) Handle(ctx context.Context, event *Event) (Response, error) {
	limit := ResolveLimit(event)

	ctx, inv := h.instruments.Start(ctx, limit)

	records, err := h.fetchDataLimited(ctx, limit)
	if err != nil {
		inv.End(0, err)
		return Response{}, err
	}

	body, err := jsonvalue.Marshal(records)
	if err != nil {
		logFailure("Serializing records failed", "serialize_records", err)
		inv.End(0, err)
		return Response{}, err
	}

	inv.End(len(records), nil)

	return Response{
		StatusCode:     StatusOK,
		Body:           body,
		RecordsFetched: len(records),
	}, nil
}

// fetchDataLimited runs the jobs query on a connection held for the
// duration of the call
func (h *Handler) fetchDataLimited(ctx context.Context, limit int) ([]jsonvalue.Record, error) {
	conn, err := h.provider.Acquire(ctx)
	if err != nil {
		logFailure("Acquiring database connection failed", "get_db_connection", err)
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, BuildQuery(limit))
	if err != nil {
		logFailure("Query execution failed", "fetch_data_limited", err)
		return nil, err
	}
	defer rows.Close()

	columns := rows.Columns()
	records := make([]jsonvalue.Record, 0, limit)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			logFailure("Query execution failed", "fetch_data_limited", err)
			return nil, err
		}
		records = append(records, jsonvalue.NewRecord(columns, values))
	}

	if err := rows.Err(); err != nil {
		logFailure("Query execution failed", "fetch_data_limited", err)
		return nil, err
	}

	return records, nil
}

// logFailure logs err with the function and sub-operation it occurred in
func logFailure(message, operation string, err error) {
	logging.Error(message,
		"function", FunctionName,
		"operation", operation,
		"error", err.Error(),
		"stack", goerrors.Wrap(err, 1).ErrorStack(),
	)
}
