package clientdata

import (
	"database/sql"
	"io/fs"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/bojops/pkg/embedded"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Each pooled connection would otherwise get its own empty in-memory database
	db.SetMaxOpenConns(1)

	schema, err := fs.ReadFile(embedded.Schemas, "schemas/cache_schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return db
}

func TestNewRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	assert.NotNil(t, NewRepository(db))
}

func TestStoreAndGetIfFresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	workbook := []byte("PK\x03\x04 fake workbook")

	require.NoError(t, repo.Store(TableReleaseFiles, "2024-03", workbook, time.Hour))

	got, err := repo.GetIfFresh(TableReleaseFiles, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, workbook, got)
}

func TestStoreReplacesExisting(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableDailyPages, "ba240301", []byte("old"), time.Hour))
	require.NoError(t, repo.Store(TableDailyPages, "ba240301", []byte("new"), time.Hour))

	got, err := repo.Get(TableDailyPages, "ba240301")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM daily_pages").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetIfFreshExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableDailyPages, "of240301", []byte("<html>"), -time.Hour))

	got, err := repo.GetIfFresh(TableDailyPages, "of240301")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Stale data stays reachable through Get
	got, err = repo.Get(TableDailyPages, "of240301")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>"), got)
}

func TestGetMissingKey(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	got, err := repo.Get(TableReleaseFiles, "1999-01")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetIfFresh(TableReleaseFiles, "1999-01")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableReleaseFiles, "2024-03", []byte("x"), time.Hour))
	require.NoError(t, repo.Delete(TableReleaseFiles, "2024-03"))

	got, err := repo.Get(TableReleaseFiles, "2024-03")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableDailyPages, "ba240301", []byte("a"), -48*time.Hour))
	require.NoError(t, repo.Store(TableDailyPages, "ba240302", []byte("b"), -time.Minute))
	require.NoError(t, repo.Store(TableDailyPages, "ba240303", []byte("c"), time.Hour))

	// Inside the grace window the recently expired page survives
	deleted, err := repo.DeleteExpired(TableDailyPages, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	got, err := repo.Get(TableDailyPages, "ba240302")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)

	deleted, err = repo.DeleteExpired(TableDailyPages, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	got, err = repo.Get(TableDailyPages, "ba240303")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), got)
}

func TestDeleteAllExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableReleaseFiles, "2023-01", []byte("a"), -time.Hour))
	require.NoError(t, repo.Store(TableDailyPages, "ba240301", []byte("b"), -time.Hour))
	require.NoError(t, repo.Store(TableDailyPages, "ba240302", []byte("c"), time.Hour))

	results, err := repo.DeleteAllExpired(0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{TableReleaseFiles: 1, TableDailyPages: 1}, results)
}

func TestStats(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableReleaseFiles, "2023-01", []byte("abcd"), time.Hour))
	require.NoError(t, repo.Store(TableDailyPages, "ba240301", []byte("xy"), -time.Hour))
	require.NoError(t, repo.Store(TableDailyPages, "of240301", []byte("z"), time.Hour))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, TableStats{Entries: 1, Stale: 0, Bytes: 4}, stats[TableReleaseFiles])
	assert.Equal(t, TableStats{Entries: 2, Stale: 1, Bytes: 3}, stats[TableDailyPages])
}

func TestInvalidTableName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("Store", func(t *testing.T) {
		err := repo.Store("release_files; DROP TABLE daily_pages;--", "key", nil, time.Hour)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("GetIfFresh", func(t *testing.T) {
		_, err := repo.GetIfFresh("users", "key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("Get", func(t *testing.T) {
		_, err := repo.Get("passwords", "key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("Delete", func(t *testing.T) {
		err := repo.Delete("secrets", "key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		_, err := repo.DeleteExpired("nonexistent", 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})
}

func TestTTLFor(t *testing.T) {
	today := civil.Date{Year: 2024, Month: 5, Day: 17}

	tests := []struct {
		name string
		date civil.Date
		want time.Duration
	}{
		{"same month", civil.Date{Year: 2024, Month: 5, Day: 2}, TTLRecent},
		{"previous month", civil.Date{Year: 2024, Month: 4, Day: 1}, TTLRecent},
		{"two months back", civil.Date{Year: 2024, Month: 3, Day: 31}, TTLSettled},
		{"previous year", civil.Date{Year: 2023, Month: 5, Day: 17}, TTLSettled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TTLFor(tt.date, today))
		})
	}
}
