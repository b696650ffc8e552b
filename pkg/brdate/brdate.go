// Package brdate converts between the regional DD/MM/YYYY date notation used on
// the wire and the absolute instants stored in the database.
//
// Calendar dates are pinned to 12:00 UTC so that rendering them in any zone
// between UTC-12 and UTC+11 keeps the same day.
package brdate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// Layout is the regional display layout.
	Layout = "02/01/2006"
	// ISOLayout is the calendar layout accepted alongside Layout.
	ISOLayout = "2006-01-02"
	// FileLayout is used to stamp generated file names.
	FileLayout = "02-01-2006"

	anchorHour = 12
)

// ErrInvalidFormat is returned when input is neither DD/MM/YYYY nor YYYY-MM-DD
// or does not name a real calendar day.
var ErrInvalidFormat = errors.New("date must be DD/MM/YYYY or YYYY-MM-DD")

var (
	brPattern  = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	isoPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// Valid reports whether s has one of the accepted shapes and names a real
// calendar day.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Parse normalizes a DD/MM/YYYY or YYYY-MM-DD string to 12:00 UTC of that day.
func Parse(s string) (time.Time, error) {
	if m := brPattern.FindStringSubmatch(s); m != nil {
		return fromParts(m[3], m[2], m[1])
	}
	if m := isoPattern.FindStringSubmatch(s); m != nil {
		return fromParts(m[1], m[2], m[3])
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// ParseISO accepts only YYYY-MM-DD and returns midnight UTC of that day.
func ParseISO(s string) (time.Time, error) {
	m := isoPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	t, err := fromParts(m[1], m[2], m[3])
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(t), nil
}

// Normalize pins an instant to 12:00 UTC of its UTC calendar day.
func Normalize(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, anchorHour, 0, 0, 0, time.UTC)
}

// StartOfDay returns 00:00:00.000 UTC of the UTC calendar day of t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns 23:59:59.999 UTC of the UTC calendar day of t.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Millisecond)
}

// Format renders t as DD/MM/YYYY using UTC calendar fields. The zero time
// renders as an empty string.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(Layout)
}

// FormatPtr is Format for nullable columns; nil and zero times yield nil.
func FormatPtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := Format(*t)
	return &s
}

// ISOToBR rewrites YYYY-MM-DD as DD/MM/YYYY, returning the input unchanged
// when it has another shape.
func ISOToBR(s string) string {
	m := isoPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[3] + "/" + m[2] + "/" + m[1]
}

func fromParts(year, month, day string) (time.Time, error) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 {
		return time.Time{}, fmt.Errorf("%w: %s-%s-%s", ErrInvalidFormat, year, month, day)
	}
	t := time.Date(y, time.Month(m), d, anchorHour, 0, 0, 0, time.UTC)
	// time.Date rolls 31/02 over into March; reject instead.
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, fmt.Errorf("%w: %s-%s-%s", ErrInvalidFormat, year, month, day)
	}
	return t, nil
}
