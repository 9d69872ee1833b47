/*-------------------------------------------------------------------------
 *
 * jobs-feed - Limit Resolution
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"jobs-feed/internal/logging"
)

const (
	// DefaultLimit applies when no limit is given or the given one is unusable
	DefaultLimit = 25
	// MaxLimit is the largest accepted limit
	MaxLimit = 100
)

// ErrInvalidLimit is returned by ParseLimit for values that are not integers
var ErrInvalidLimit = errors.New("invalid limit value")

// ErrLimitOutOfRange is returned by ParseLimit for integers outside [1, MaxLimit]
var ErrLimitOutOfRange = errors.New("limit out of range")

// ParseLimit converts a raw limit to an int in [1, MaxLimit]. Strings must
// hold a base-10 integer. Fractional numbers are truncated toward zero.
func ParseLimit(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidLimit)
	}

	var n int64
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidLimit, err)
		}
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidLimit, truncate(s, 40))
		}
		n = v
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		v, err := parseNumber(raw)
		if err != nil {
			return 0, err
		}
		n = v
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidLimit, truncate(string(raw), 40))
	}

	if n < 1 || n > MaxLimit {
		return 0, fmt.Errorf("%w: %d", ErrLimitOutOfRange, n)
	}
	return int(n), nil
}

// parseNumber reads a JSON number as an integer, truncating fractions
func parseNumber(raw json.RawMessage) (int64, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidLimit, err)
	}
	if v, err := num.Int64(); err == nil {
		return v, nil
	}

	f, err := num.Float64()
	if err != nil {
		// Magnitude beyond float64 is out of range either way
		if strings.HasPrefix(num.String(), "-") {
			return math.MinInt64, nil
		}
		return math.MaxInt64, nil
	}
	f = math.Trunc(f)
	if f > math.MaxInt64 {
		return math.MaxInt64, nil
	}
	if f < math.MinInt64 {
		return math.MinInt64, nil
	}
	return int64(f), nil
}

// ResolveLimit returns the limit for event. A missing limit yields
// DefaultLimit silently; an unusable one yields DefaultLimit with a warning.
func ResolveLimit(event *Event) int {
	raw, ok := event.rawLimit()
	if !ok {
		return DefaultLimit
	}

	limit, err := ParseLimit(raw)
	if err == nil {
		return limit
	}

	if errors.Is(err, ErrLimitOutOfRange) {
		logging.Warn("Limit out of range, using default limit",
			"function", FunctionName,
			"operation", "lambda_handler",
			"min", 1,
			"max", MaxLimit,
			"default", DefaultLimit,
			"error", err.Error(),
		)
	} else {
		logging.Warn("Invalid limit value, using default limit",
			"function", FunctionName,
			"operation", "lambda_handler",
			"default", DefaultLimit,
			"error", err.Error(),
		)
	}
	return DefaultLimit
}

// truncate shortens s to maxLen runes, adding "..." if truncated
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
