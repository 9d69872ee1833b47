/*-------------------------------------------------------------------------
 *
 * jobs-feed - Structured Logging
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package logging

import (
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// envLogLevel controls the initial log level
const envLogLevel = "JOBSFEED_LOG_LEVEL"

var (
	// level is shared by every core built by this package so SetLevel
	// takes effect without rebuilding the logger
	level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	current atomic.Pointer[zap.SugaredLogger]
)

func init() {
	if l, ok := ParseLevel(os.Getenv(envLogLevel)); ok {
		SetLevel(l)
	}
	current.Store(zap.New(newJSONCore(zapcore.Lock(os.Stderr))).Sugar())
}

// String returns the upper-case name of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// ParseLevel converts a level name such as "debug" or "WARNING" into a
// LogLevel. The second return value is false for empty or unknown names.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelError, false
}

// newJSONCore builds a JSON core gated by the package level
func newJSONCore(ws zapcore.WriteSyncer) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, level)
}

// SetOutput redirects log output to ws and returns a function that
// restores the previous logger.
func SetOutput(ws zapcore.WriteSyncer) func() {
	return swap(zap.New(newJSONCore(ws)).Sugar())
}

// UseCore routes log output through core. The core's own level applies
// instead of the package level. Returns a function that restores the
// previous logger.
func UseCore(core zapcore.Core) func() {
	return swap(zap.New(core).Sugar())
}

func swap(next *zap.SugaredLogger) func() {
	prev := current.Swap(next)
	return func() {
		current.Store(prev)
	}
}

// Logger returns the underlying zap logger
func Logger() *zap.Logger {
	return current.Load().Desugar()
}

// Sync flushes buffered log entries
func Sync() {
	_ = current.Load().Sync()
}

// Debug logs a debug-level message with structured fields
func Debug(message string, keyvals ...interface{}) {
	current.Load().Debugw(message, keyvals...)
}

// Info logs an info-level message with structured fields
func Info(message string, keyvals ...interface{}) {
	current.Load().Infow(message, keyvals...)
}

// Warn logs a warning-level message with structured fields
func Warn(message string, keyvals ...interface{}) {
	current.Load().Warnw(message, keyvals...)
}

// Error logs an error-level message with structured fields
func Error(message string, keyvals ...interface{}) {
	current.Load().Errorw(message, keyvals...)
}

// SetLevel sets the minimum log level to output
func SetLevel(l LogLevel) {
	level.SetLevel(l.zapLevel())
}

// GetLevel returns the current minimum log level
func GetLevel() LogLevel {
	switch level.Level() {
	case zapcore.DebugLevel:
		return LevelDebug
	case zapcore.InfoLevel:
		return LevelInfo
	case zapcore.WarnLevel:
		return LevelWarn
	default:
		return LevelError
	}
}
