package work

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan_ReleasesThenDailies(t *testing.T) {
	today := civil.Date{Year: 2024, Month: 3, Day: 15}
	plan := NewPlan(today, 90)

	assert.Equal(t, civil.Date{Year: 2023, Month: 12, Day: 16}, plan.Start)
	assert.Equal(t, 2, plan.Releases())
	assert.Equal(t, 29+15, plan.Dailies())

	require.NotEmpty(t, plan.Units)
	assert.Equal(t, Unit{Kind: UnitRelease, Date: civil.Date{Year: 2023, Month: 12, Day: 1}}, plan.Units[0])
	assert.Equal(t, Unit{Kind: UnitRelease, Date: civil.Date{Year: 2024, Month: 1, Day: 1}}, plan.Units[1])
	assert.Equal(t, Unit{Kind: UnitDaily, Date: civil.Date{Year: 2024, Month: 2, Day: 1}}, plan.Units[2])
	assert.Equal(t, Unit{Kind: UnitDaily, Date: today}, plan.Units[len(plan.Units)-1])
}

func TestNewPlan_ShortLookbackHasNoReleases(t *testing.T) {
	today := civil.Date{Year: 2024, Month: 3, Day: 15}
	plan := NewPlan(today, 10)

	assert.Equal(t, 0, plan.Releases())
	assert.Equal(t, 11, plan.Dailies())
	assert.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 5}, plan.Units[0].Date)
}

func TestNewPlan_CrossesYearBoundary(t *testing.T) {
	today := civil.Date{Year: 2024, Month: 1, Day: 10}
	plan := NewPlan(today, 365)

	// Releases 2023-01 through 2023-11
	assert.Equal(t, 11, plan.Releases())
	assert.Equal(t, 31+10, plan.Dailies())
}

func TestNewPlan_UnitsAreOrdered(t *testing.T) {
	plan := NewPlan(civil.Date{Year: 2024, Month: 7, Day: 31}, 200)
	for i := 1; i < len(plan.Units); i++ {
		prev, cur := plan.Units[i-1], plan.Units[i]
		assert.True(t, prev.Date.Before(cur.Date), "%s before %s", prev, cur)
	}
}

func TestUnit_String(t *testing.T) {
	assert.Equal(t, "release 2024-01", Unit{Kind: UnitRelease, Date: civil.Date{Year: 2024, Month: 1, Day: 1}}.String())
	assert.Equal(t, "daily 2024-03-05", Unit{Kind: UnitDaily, Date: civil.Date{Year: 2024, Month: 3, Day: 5}}.String())
}
