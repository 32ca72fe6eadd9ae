package ledger

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Persisted date formats. Timestamp cells carry the time-qualified form,
// deadline cells the date-only form, but every reader accepts both.
const (
	DateLayout     = "02.01.2006"
	DateTimeLayout = "02.01.2006 15:04"
)

// ParseTimestamp parses a persisted timestamp cell, trying the
// time-qualified layout first and falling back to the date-only one.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateTimeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseTimestamp: %q does not match %s or %s", s, DateTimeLayout, DateLayout)
	}
	return t, nil
}

// FormatTimestamp renders a timestamp the way it is written to the sheet.
func FormatTimestamp(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// ParseDate parses a date-only deadline cell, accepting a trailing time part.
func ParseDate(s string) (civil.Date, error) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("ParseDate: %w", err)
	}
	return civil.DateOf(t), nil
}

// FormatDate renders a deadline cell. Unset dates render empty.
func FormatDate(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, d.Month, d.Year)
}
