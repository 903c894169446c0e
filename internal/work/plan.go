package work

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
)

// UnitKind identifies the source a unit reads from.
type UnitKind string

const (
	// UnitRelease reads one monthly xlsx release.
	UnitRelease UnitKind = "release"
	// UnitDaily reads the results and offer pages of one day.
	UnitDaily UnitKind = "daily"
)

// releaseLagMonths is how far behind today the last monthly release is assumed to be.
const releaseLagMonths = 2

// Unit is one fetch-and-normalize step of a refresh.
type Unit struct {
	Kind UnitKind
	// Date is the first of the month for releases, the day for daily units.
	Date civil.Date
}

// String returns "release 2024-01" or "daily 2024-03-05".
func (u Unit) String() string {
	if u.Kind == UnitRelease {
		return fmt.Sprintf("%s %04d-%02d", u.Kind, u.Date.Year, int(u.Date.Month))
	}
	return fmt.Sprintf("%s %s", u.Kind, u.Date)
}

// Plan lists the units of one refresh in date order.
type Plan struct {
	Start civil.Date
	Today civil.Date
	Units []Unit
}

// NewPlan covers lookbackDays before today. Releases run from the month of
// the start date through the month two months before today; daily units
// cover the following month's first day through today.
func NewPlan(today civil.Date, lookbackDays int) Plan {
	start := today.AddDays(-lookbackDays)
	firstRelease := domain.MonthStart(start)
	lastRelease := domain.MonthStart(domain.AddMonths(domain.MonthStart(today), -releaseLagMonths))

	plan := Plan{Start: start, Today: today}
	for m := firstRelease; !m.After(lastRelease); m = domain.AddMonths(m, 1) {
		plan.Units = append(plan.Units, Unit{Kind: UnitRelease, Date: m})
	}

	firstDaily := domain.AddMonths(lastRelease, 1)
	if firstDaily.Before(start) {
		firstDaily = start
	}
	for d := firstDaily; !d.After(today); d = d.AddDays(1) {
		plan.Units = append(plan.Units, Unit{Kind: UnitDaily, Date: d})
	}
	return plan
}

// Releases returns the number of release units.
func (p Plan) Releases() int {
	n := 0
	for _, u := range p.Units {
		if u.Kind == UnitRelease {
			n++
		}
	}
	return n
}

// Dailies returns the number of daily units.
func (p Plan) Dailies() int {
	return len(p.Units) - p.Releases()
}
