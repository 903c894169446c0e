package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// MonthStart returns the first day of d's month.
func MonthStart(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// AddMonths shifts d by n calendar months, normalizing like time.AddDate.
func AddMonths(d civil.Date, n int) civil.Date {
	return civil.DateOf(d.In(time.UTC).AddDate(0, n, 0))
}

// Today returns the current date in loc.
func Today(loc *time.Location) civil.Date {
	return civil.DateOf(time.Now().In(loc))
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (civil.Date, error) {
	return civil.ParseDate(s)
}
