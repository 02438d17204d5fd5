// Package model defines the immutable records produced from web API payloads
// and the request values used to drive pagination.
//
// Records are plain value types. They are built once by the mapping layer in
// package feeds and never mutated afterwards. Every record exposes its fields
// in declaration order (Columns/Row) and a set of named ordered attributes
// (Attr) used by range filters, sorting and top-K selection.
package model

import (
	"strconv"
	"strings"
	"time"
)

// Record is the behaviour shared by every record type.
type Record interface {
	// Columns returns the field names in declaration order.
	Columns() []string

	// Row returns the field values formatted as CSV scalars, in the same
	// order as Columns.
	Row() []string

	// Attr returns the value of a named ordered attribute. The second
	// result is false when the record type has no such attribute.
	Attr(name string) (int64, bool)
}

// Identity returns a key that is equal for two records exactly when all of
// their fields are equal. Each field is length prefixed, so no field content
// can shift a boundary.
func Identity(r Record) string {
	var b strings.Builder
	for _, f := range r.Row() {
		b.WriteString(strconv.Itoa(len(f)))
		b.WriteByte(':')
		b.WriteString(f)
	}
	return b.String()
}

// HasAttr reports whether records of the same type as r expose attribute name.
func HasAttr(r Record, name string) bool {
	_, ok := r.Attr(name)
	return ok
}

// TimeLayout is the textual form of timestamps in rows.
const TimeLayout = time.RFC3339

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatBool(v bool) string {
	return strconv.FormatBool(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// timeAttr is the ordered value of a timestamp attribute.
func timeAttr(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
