package work

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/events"
	testhelpers "github.com/aristath/bojops/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyUnit(day int) Unit {
	return Unit{Kind: UnitDaily, Date: civil.Date{Year: 2022, Month: 6, Day: day}}
}

func TestProgressReporter_ThrottlesButAlwaysReportsLastUnit(t *testing.T) {
	emitter := &testhelpers.MockEmitter{}
	r := NewProgressReporter(emitter, zerolog.Nop(), "run-1", 5)

	for day := 1; day <= 5; day++ {
		r.Completed(dailyUnit(day), 1)
	}

	got := emitter.Events()
	require.NotEmpty(t, got)
	assert.Less(t, len(got), 5)

	last, ok := got[len(got)-1].(*events.UnitCompletedData)
	require.True(t, ok)
	assert.Equal(t, 5, last.Current)
	assert.Equal(t, 5, last.Total)
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, "daily 2022-06-05", last.Unit)
}

func TestProgressReporter_SkipsAreNeverThrottled(t *testing.T) {
	emitter := &testhelpers.MockEmitter{}
	r := NewProgressReporter(emitter, zerolog.Nop(), "run-1", 10)

	r.Skipped(dailyUnit(4), errors.New("not found"))
	r.Skipped(dailyUnit(5), errors.New("not found"))

	assert.Equal(t, 2, emitter.Count(events.UnitSkipped))
	current, skipped := r.Counts()
	assert.Equal(t, 2, current)
	assert.Equal(t, 2, skipped)

	data := emitter.Events()[0].(*events.UnitSkippedData)
	assert.Equal(t, "not found", data.Reason)
}

func TestProgressReporter_NilEmitter(t *testing.T) {
	r := NewProgressReporter(nil, zerolog.Nop(), "run-1", 2)
	r.Completed(dailyUnit(1), 3)
	r.Skipped(dailyUnit(2), errors.New("gone"))

	current, skipped := r.Counts()
	assert.Equal(t, 2, current)
	assert.Equal(t, 1, skipped)
}
