package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJob_KeepsStaleCopiesInsideGrace(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())

	longGone := -(StaleGrace + time.Hour)
	require.NoError(t, repo.Store(TableReleaseFiles, "2023-01", []byte("old"), longGone))
	require.NoError(t, repo.Store(TableReleaseFiles, "2023-02", []byte("stale"), -time.Hour))
	require.NoError(t, repo.Store(TableDailyPages, "ba230301", []byte("old"), longGone))
	require.NoError(t, repo.Store(TableDailyPages, "ba230302", []byte("fresh"), time.Hour))

	require.NoError(t, job.Run())

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats[TableReleaseFiles].Entries)
	assert.Equal(t, 1, stats[TableReleaseFiles].Stale)
	assert.Equal(t, 1, stats[TableDailyPages].Entries)

	got, err := repo.Get(TableReleaseFiles, "2023-02")
	require.NoError(t, err)
	assert.Equal(t, []byte("stale"), got)
}

func TestCleanupJob_EmptyTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	require.NoError(t, NewCleanupJob(NewRepository(db), zerolog.Nop()).Run())
}

func TestCleanupJob_ClosedDB(t *testing.T) {
	db := setupTestDB(t)
	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	require.NoError(t, db.Close())

	assert.Error(t, job.Run())
}
