package domain

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func date(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func emptyOp(d civil.Date) *Operation {
	return NewOperationDraft(d).Finalize()
}

func TestCollection_OrderedAndUnique(t *testing.T) {
	c := NewCollection(
		emptyOp(date(2022, 6, 3)),
		emptyOp(date(2022, 6, 1)),
		emptyOp(date(2022, 6, 2)),
	)
	assert.False(t, c.Put(emptyOp(date(2022, 5, 31))))
	assert.True(t, c.Put(emptyOp(date(2022, 6, 2))))

	var got []civil.Date
	for _, op := range c.All() {
		got = append(got, op.Date())
	}
	assert.Equal(t, []civil.Date{date(2022, 5, 31), date(2022, 6, 1), date(2022, 6, 2), date(2022, 6, 3)}, got)
	assert.Equal(t, 4, c.Len())

	first, ok := c.First()
	require.True(t, ok)
	assert.Equal(t, date(2022, 5, 31), first.Date())
	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, date(2022, 6, 3), last.Date())
}

func TestCollection_RangeInclusive(t *testing.T) {
	c := NewCollection()
	for d := 1; d <= 10; d++ {
		c.Put(emptyOp(date(2022, 6, d)))
	}

	ops := c.Range(date(2022, 6, 3), date(2022, 6, 5))
	require.Len(t, ops, 3)
	assert.Equal(t, date(2022, 6, 3), ops[0].Date())
	assert.Equal(t, date(2022, 6, 5), ops[2].Date())

	assert.Empty(t, c.Range(date(2022, 7, 1), date(2022, 7, 31)))
}

func TestCollection_Get(t *testing.T) {
	c := NewCollection(emptyOp(date(2022, 6, 1)))
	_, ok := c.Get(date(2022, 6, 1))
	assert.True(t, ok)
	_, ok = c.Get(date(2022, 6, 2))
	assert.False(t, ok)

	_, ok = NewCollection().First()
	assert.False(t, ok)
}

func TestCollection_MergeOtherWins(t *testing.T) {
	old := NewOperationDraft(date(2022, 6, 1))
	_, _ = old.AddTransaction("CP")
	fresh := NewOperationDraft(date(2022, 6, 1))
	_, _ = fresh.AddTransaction("TB")

	c := NewCollection(old.Finalize(), emptyOp(date(2022, 5, 1)))
	replaced := c.Merge(NewCollection(fresh.Finalize(), emptyOp(date(2022, 7, 1))))

	assert.Equal(t, 1, replaced)
	assert.Equal(t, 3, c.Len())
	op, _ := c.Get(date(2022, 6, 1))
	assert.Equal(t, []string{"TB"}, op.Instruments())
}

func TestCollection_SortedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		days := rapid.SliceOf(rapid.IntRange(0, 2000)).Draw(t, "days")
		base := date(2020, 1, 1)

		c := NewCollection()
		seen := map[civil.Date]bool{}
		for _, n := range days {
			d := base.AddDays(n)
			c.Put(emptyOp(d))
			seen[d] = true
		}

		all := c.All()
		if len(all) != len(seen) {
			t.Fatalf("got %d operations, want %d", len(all), len(seen))
		}
		for i := 1; i < len(all); i++ {
			if !all[i-1].Date().Before(all[i].Date()) {
				t.Fatalf("not strictly ascending at %d", i)
			}
		}
	})
}

func TestMonthHelpers(t *testing.T) {
	assert.Equal(t, date(2022, 6, 1), MonthStart(date(2022, 6, 15)))
	assert.Equal(t, date(2022, 4, 15), AddMonths(date(2022, 6, 15), -2))
	assert.Equal(t, date(2023, 1, 1), AddMonths(date(2022, 12, 1), 1))
}
