package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/bojops/internal/database"
	testhelpers "github.com/aristath/bojops/internal/testing"
	"github.com/aristath/bojops/internal/work"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestScheduler_AddJobAndEntries(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	require.NoError(t, s.AddJob("0 30 18 * * MON-FRI", job))
	assert.Error(t, s.AddJob("not a schedule", job))

	s.Start()
	defer s.Stop()

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "counting", entries[0].Job)
	assert.Equal(t, "0 30 18 * * MON-FRI", entries[0].Schedule)
	assert.False(t, entries[0].Next.IsZero())
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	assert.EqualError(t, s.RunNow(job), "boom")
	assert.Equal(t, int32(1), job.runs.Load())
}

type fakeRefresher struct {
	err     error
	trigger string
}

func (f *fakeRefresher) Refresh(_ context.Context, trigger string) (*work.RefreshResult, error) {
	f.trigger = trigger
	if f.err != nil {
		return nil, f.err
	}
	return &work.RefreshResult{RunID: "run-1", Fetched: 3, Operations: 10, Saved: true}, nil
}

func TestRefreshJob(t *testing.T) {
	r := &fakeRefresher{}
	job := NewRefreshJob(r, time.Minute, zerolog.Nop())

	assert.Equal(t, "refresh", job.Name())
	assert.NoError(t, job.Run())
	assert.Equal(t, "schedule", r.trigger)

	r.err = work.ErrRefreshInProgress
	assert.NoError(t, job.Run())

	r.err = errors.New("network down")
	assert.EqualError(t, job.Run(), "network down")
}

func TestCheckWALCheckpointsJob(t *testing.T) {
	cache := testhelpers.NewTestDB(t, "cache")
	ops := testhelpers.NewTestDB(t, "operations")
	closed := testhelpers.NewTestDB(t, "closed")
	require.NoError(t, closed.Close())

	job := NewCheckWALCheckpointsJob([]*database.DB{cache, nil, ops, closed}, zerolog.Nop())
	assert.Equal(t, "check_wal_checkpoints", job.Name())
	assert.NoError(t, job.Run())
}
