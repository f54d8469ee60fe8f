package accounting

import "time"

// All duration math inside this package runs on int64 milliseconds and only
// converts to hours at the public API boundary. Fractional hours round-trip
// through milliseconds exactly for billing granularities.

const millisPerHour = 3600_000

// HoursToMillis converts an amount in hours to milliseconds, rounding to the
// nearest millisecond.
func HoursToMillis(hours float64) int64 {
	if hours >= 0 {
		return int64(hours*millisPerHour + 0.5)
	}
	return -int64(-hours*millisPerHour + 0.5)
}

// MillisToHours converts milliseconds back to hours.
func MillisToHours(millis int64) float64 {
	return float64(millis) / millisPerHour
}

// DurationMillis returns the signed duration from to until in milliseconds.
func DurationMillis(from, to time.Time) int64 {
	return to.Sub(from).Milliseconds()
}

// DurationHours returns the signed duration between from and to in hours.
func DurationHours(from, to time.Time) float64 {
	return MillisToHours(DurationMillis(from, to))
}

// RightBefore returns the closest representable instant before t.
func RightBefore(t time.Time) time.Time {
	return t.Add(-time.Millisecond)
}

// RightAfter returns the closest representable instant after t.
func RightAfter(t time.Time) time.Time {
	return t.Add(time.Millisecond)
}

// OneMonthLater adds one calendar month to t, anchoring the day of month at
// anchorDay where the target month permits and clamping at the month end
// otherwise (Jan 31 + 1 month = Feb 28/29). anchorDay <= 0 uses t's own day.
func OneMonthLater(t time.Time, anchorDay int) time.Time {
	t = t.UTC()
	if anchorDay <= 0 {
		anchorDay = t.Day()
	}
	year, month, _ := t.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	day := anchorDay
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	hour, min, sec := t.Clock()
	return time.Date(year, month, day, hour, min, sec, t.Nanosecond(), time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Earliest returns the earlier of the two instants. A zero value counts as
// "no bound" and loses against any concrete instant.
func Earliest(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	if b.Before(a) {
		return b
	}
	return a
}

// Oldest returns the later of the two instants.
func Oldest(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

// Within reports whether start <= t < expiry. A zero expiry means the period
// has no upper bound.
func Within(t, start, expiry time.Time) bool {
	if t.Before(start) {
		return false
	}
	return expiry.IsZero() || t.Before(expiry)
}
