package clientdata

import (
	"time"

	"cloud.google.com/go/civil"
)

// TTL constants for cached downloads.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Settled publications (releases and pages from past months)
	TTLSettled = 90 * 24 * time.Hour

	// Publications in the current or previous month can still be revised
	TTLRecent = 12 * time.Hour
)

// TTLFor returns the TTL for a publication covering date d, seen on today.
// Anything from the last two calendar months is treated as recent.
func TTLFor(d, today civil.Date) time.Duration {
	cutoff := civil.Date{Year: today.Year, Month: today.Month, Day: 1}
	cutoff = civil.DateOf(cutoff.In(time.UTC).AddDate(0, -1, 0))
	if d.Before(cutoff) {
		return TTLSettled
	}
	return TTLRecent
}
