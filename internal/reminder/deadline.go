package reminder

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// DefaultThresholdDays is how close a deadline has to be before the scanner
// starts notifying about it.
const DefaultThresholdDays = 7

// DaysLeft returns the number of days from today until the deadline.
// Negative means overdue.
func DaysLeft(today, deadline civil.Date) int {
	return deadline.DaysSince(today)
}

// Label renders a days-left value the way the deadline views and the
// reminder messages show it.
func Label(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("overdue %d days", -days)
	case days == 0:
		return "today"
	default:
		return fmt.Sprintf("remaining %d days", days)
	}
}

// Due reports whether a deadline is close enough to notify about: within the
// threshold, due today, or already overdue.
func Due(days, threshold int) bool {
	return days <= threshold
}

// Today returns the current local calendar date.
func Today() civil.Date {
	return civil.DateOf(time.Now())
}
