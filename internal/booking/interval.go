package booking

import "time"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share any instant.  Two reservations [s, e) and
// [start, end) conflict iff start < e && s < end; back-to-back bookings
// (one ending exactly when the other starts) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ValidInterval reports whether start strictly precedes end.
func ValidInterval(start, end time.Time) bool {
	return start.Before(end)
}
