/*-------------------------------------------------------------------------
 *
 * jobs-feed - JSON Value Conversion
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package jsonvalue converts database driver values into values that
// encoding/json renders the way the jobs API always has: dates as
// YYYY-MM-DD, timestamps as "YYYY-MM-DD HH:MM:SS", and anything without a
// natural JSON form as its string representation.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Record is one result row. It marshals as a JSON object whose keys keep
// the select-list order.
type Record struct {
	Columns []string
	Values  []interface{}
}

// MarshalJSON writes the columns in order
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encode(&buf, col); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encode(&buf, r.Values[i]); err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Normalize converts v to a JSON-friendly value. Primitives pass through
// unchanged; everything else becomes a string.
func Normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val
	case float32:
		return normalizeFloat(float64(val))
	case float64:
		return normalizeFloat(val)
	case json.Number:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return FormatTime(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case uuid.UUID:
		return val.String()
	case pgtype.Numeric:
		return normalizeNumeric(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = Normalize(elem)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, elem := range val {
			out[k] = Normalize(elem)
		}
		return out
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// normalizeFloat keeps finite floats as numbers. NaN and infinities have no
// JSON form.
func normalizeFloat(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprint(f)
	}
	return f
}

// normalizeNumeric renders a NUMERIC as its exact decimal text
func normalizeNumeric(n pgtype.Numeric) interface{} {
	if !n.Valid {
		return nil
	}
	if n.NaN {
		return "NaN"
	}
	if n.InfinityModifier != pgtype.Finite {
		return n.InfinityModifier.String()
	}
	if n.Int == nil {
		return "0"
	}
	text := n.Int.String()
	if n.Exp >= 0 {
		for i := int32(0); i < n.Exp; i++ {
			text += "0"
		}
		return text
	}
	neg := text[0] == '-'
	if neg {
		text = text[1:]
	}
	scale := int(-n.Exp)
	for len(text) <= scale {
		text = "0" + text
	}
	text = text[:len(text)-scale] + "." + text[len(text)-scale:]
	if neg {
		text = "-" + text
	}
	return text
}

// FormatTime renders a date (midnight UTC) as YYYY-MM-DD and any other
// time as YYYY-MM-DD HH:MM:SS with optional microseconds. The UTC offset is
// appended only for non-UTC locations.
func FormatTime(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 &&
		t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}

	layout := "2006-01-02 15:04:05"
	if t.Nanosecond() != 0 {
		layout += ".000000"
	}
	if t.Location() != time.UTC {
		layout += "-07:00"
	}
	return t.Format(layout)
}

// NewRecord pairs columns with values, normalizing each value. Columns
// without a value map to null.
func NewRecord(columns []string, values []interface{}) Record {
	normalized := make([]interface{}, len(columns))
	for i := range columns {
		if i < len(values) {
			normalized[i] = Normalize(values[i])
		}
	}
	return Record{Columns: columns, Values: normalized}
}

// Marshal encodes records as a JSON array. URLs in job rows are common, so
// &, < and > are written as-is rather than as \u escapes.
func Marshal(records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	if err := encode(&buf, records); err != nil {
		return "", fmt.Errorf("failed to marshal records: %w", err)
	}
	return buf.String(), nil
}

// encode appends the JSON encoding of v to buf without HTML escaping
func encode(buf *bytes.Buffer, v interface{}) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates each value with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}
