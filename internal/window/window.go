// Package window holds the date arithmetic shared by every SEP category.
// All comparisons are made on civil dates in UTC so that clock time and
// daylight-saving shifts never move a boundary by a day.
package window

import "time"

const day = 24 * time.Hour

// civil truncates t to midnight UTC of its own calendar date.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns reference minus target in whole calendar days.
// Positive means target lies in the past relative to reference.
func DaysBetween(reference, target time.Time) int {
	return int(civil(reference).Sub(civil(target)) / day)
}

// DaysUntil returns target minus reference in whole calendar days.
// Positive means target lies in the future relative to reference.
func DaysUntil(reference, target time.Time) int {
	return -DaysBetween(reference, target)
}

// Within reports whether low <= DaysBetween(reference, target) <= high.
func Within(reference, target time.Time, low, high int) bool {
	n := DaysBetween(reference, target)
	return low <= n && n <= high
}

// TurningSixtyFive returns the first day of the birth month, 65 years on.
// IEP2 is tracked at month granularity, so the actual birthday is ignored.
func TurningSixtyFive(dob time.Time) time.Time {
	return time.Date(dob.Year()+65, dob.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in UTC.
func Today() time.Time {
	return civil(time.Now())
}

// Civil exposes the truncation used by the comparisons above.
func Civil(t time.Time) time.Time {
	return civil(t)
}
