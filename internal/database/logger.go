/*-------------------------------------------------------------------------
 *
 * jobs-feed - Database Operation Logging
 *
 * Copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"jobs-feed/internal/logging"
)

// LogLevel represents the logging verbosity level for database operations.
// Entries that pass this gate still go through the process-wide level in
// the logging package.
type LogLevel int

const (
	// LogLevelNone disables all database logging
	LogLevelNone LogLevel = iota
	// LogLevelInfo logs connections, queries and errors
	LogLevelInfo
	// LogLevelDebug adds pool settings, pool stats and query starts
	LogLevelDebug
	// LogLevelTrace adds full query text
	LogLevelTrace
)

// Logger emits database operation events
type Logger struct {
	level LogLevel
}

var globalLogger *Logger

func init() {
	globalLogger = &Logger{level: parseLogLevel(os.Getenv("JOBSFEED_DB_LOG_LEVEL"))}
}

// parseLogLevel maps a level name to a LogLevel; unknown names disable logging
func parseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return LogLevelInfo
	case "debug":
		return LogLevelDebug
	case "trace":
		return LogLevelTrace
	default:
		return LogLevelNone
	}
}

// SetLogLevel sets the global database log level
func SetLogLevel(level LogLevel) {
	globalLogger.level = level
}

// GetLogLevel returns the current log level
func GetLogLevel() LogLevel {
	return globalLogger.level
}

// Info logs connections, basic queries and errors
func (l *Logger) Info(message string, keyvals ...interface{}) {
	if l.level >= LogLevelInfo {
		logging.Info(message, append(keyvals, "component", "database")...)
	}
}

// Debug logs pool settings and query starts
func (l *Logger) Debug(message string, keyvals ...interface{}) {
	if l.level >= LogLevelDebug {
		logging.Debug(message, append(keyvals, "component", "database")...)
	}
}

// Trace logs full query text
func (l *Logger) Trace(message string, keyvals ...interface{}) {
	if l.level >= LogLevelTrace {
		logging.Debug(message, append(keyvals, "component", "database", "trace", true)...)
	}
}

// LogConnection logs a database connection attempt
func LogConnection(connStr string, duration time.Duration, err error) {
	sanitized := sanitizeConnStr(connStr)
	if err != nil {
		globalLogger.Info("Connection failed",
			"connection", sanitized, "duration", duration, "error", err)
	} else {
		globalLogger.Info("Connection succeeded",
			"connection", sanitized, "duration", duration)
	}
}

// LogConnectionDetails logs pool settings for a connection
func LogConnectionDetails(connStr string, poolConfig map[string]interface{}) {
	globalLogger.Debug("Connection details",
		"connection", sanitizeConnStr(connStr), "pool_config", poolConfig)
}

// LogQuery logs a finished query
func LogQuery(query string, duration time.Duration, rowCount int, err error) {
	queryPreview := truncate(strings.TrimSpace(query), 100)
	if err != nil {
		globalLogger.Info("Query failed",
			"query", queryPreview, "duration", duration, "error", err)
	} else {
		globalLogger.Info("Query succeeded",
			"query", queryPreview, "row_count", rowCount, "duration", duration)
	}
}

// LogQueryDetails logs the start of a query
func LogQueryDetails(query string, args []interface{}) {
	globalLogger.Debug("Starting query",
		"query", truncate(strings.TrimSpace(query), 200), "arg_count", len(args))
	globalLogger.Trace("Query trace",
		"query", strings.TrimSpace(query), "args", args)
}

// LogPoolStats logs connection pool statistics
func LogPoolStats(connStr string, acquiredConns, idleConns, maxConns int32) {
	globalLogger.Debug("Pool stats",
		"connection", sanitizeConnStr(connStr),
		"acquired", acquiredConns, "idle", idleConns, "max", maxConns)
}

// sanitizeConnStr masks the password in a connection string. Both URL and
// keyword/value forms are handled.
func sanitizeConnStr(connStr string) string {
	schemeIdx := strings.Index(connStr, "://")
	if schemeIdx == -1 {
		return sanitizeKeywordValue(connStr)
	}

	scheme := connStr[:schemeIdx+3]
	rest := connStr[schemeIdx+3:]

	// The credentials end at the last @ before the path or query
	authority := rest
	if end := strings.IndexAny(rest, "/?"); end != -1 {
		// A password may itself contain / or ?, so only cut there when
		// an @ follows within the remainder
		if at := strings.LastIndex(rest, "@"); at == -1 || at < end {
			authority = rest[:end]
		}
	}

	at := strings.LastIndex(authority, "@")
	if at == -1 {
		return connStr
	}

	credentials := rest[:at]
	colon := strings.Index(credentials, ":")
	if colon == -1 {
		return connStr
	}

	return scheme + credentials[:colon] + ":***@" + rest[at+1:]
}

// sanitizeKeywordValue masks password=... in a keyword/value string
func sanitizeKeywordValue(connStr string) string {
	fields := strings.Fields(connStr)
	changed := false
	for i, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), "password=") {
			fields[i] = "password=***"
			changed = true
		}
	}
	if !changed {
		return connStr
	}
	return strings.Join(fields, " ")
}

// truncate truncates a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
