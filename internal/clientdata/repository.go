// Package clientdata provides persistent caching for raw Bank of Japan downloads.
// Workbooks and pages are stored as blobs with expiration timestamps for cache-first fetching.
package clientdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	// TableReleaseFiles holds monthly xlsx releases keyed by YYYY-MM.
	TableReleaseFiles = "release_files"
	// TableDailyPages holds daily HTML pages keyed by page prefix and YYMMDD.
	TableDailyPages = "daily_pages"
)

// AllTables lists all tables in client_data.db for cleanup operations.
var AllTables = []string{
	TableReleaseFiles,
	TableDailyPages,
}

// validTables is a set for O(1) table name validation.
var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations for raw downloads.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// validateTable ensures the table name is in our allowed list.
// Table names are interpolated into SQL, so only known names pass.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store saves data with expiration = now + ttl, replacing any existing entry.
func (r *Repository) Store(table, key string, data []byte, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	expiresAt := r.now().Add(ttl).Unix()
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (key, data, expires_at) VALUES (?, ?, ?)", table)

	if _, err := r.db.Exec(query, key, data, expiresAt); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}
	return nil
}

// GetIfFresh returns data only if expires_at > now.
// Returns nil, nil if the key doesn't exist or data is expired.
func (r *Repository) GetIfFresh(table, key string) ([]byte, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE key = ? AND expires_at > ?", table)
	return r.scan(table, r.db.QueryRow(query, key, r.now().Unix()))
}

// Get returns data regardless of expiration status.
// Used as a fallback when the remote is unreachable; stale data is better than no data.
// Returns nil, nil if the key doesn't exist.
func (r *Repository) Get(table, key string) ([]byte, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE key = ?", table)
	return r.scan(table, r.db.QueryRow(query, key))
}

func (r *Repository) scan(table string, row *sql.Row) ([]byte, error) {
	var data []byte
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}
	return data, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, key string) error {
	if err := validateTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE key = ?", table)
	if _, err := r.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes rows that expired more than grace ago. Rows inside
// the grace window stay available to Get as stale fallbacks.
func (r *Repository) DeleteExpired(table string, grace time.Duration) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)
	result, err := r.db.Exec(query, r.now().Add(-grace).Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired applies DeleteExpired to every table.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired(grace time.Duration) (map[string]int64, error) {
	results := make(map[string]int64)

	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table, grace)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}

	return results, nil
}

// TableStats describes the contents of one cache table.
type TableStats struct {
	Entries int   `json:"entries"`
	Stale   int   `json:"stale"`
	Bytes   int64 `json:"bytes"`
}

// Stats counts entries, expired entries and stored bytes per table.
func (r *Repository) Stats() (map[string]TableStats, error) {
	out := make(map[string]TableStats, len(AllTables))
	now := r.now().Unix()
	for _, table := range AllTables {
		var st TableStats
		query := fmt.Sprintf(
			"SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0), COALESCE(SUM(LENGTH(data)), 0) FROM %s",
			table)
		if err := r.db.QueryRow(query, now).Scan(&st.Entries, &st.Stale, &st.Bytes); err != nil {
			return out, fmt.Errorf("failed to read stats of %s: %w", table, err)
		}
		out[table] = st
	}
	return out, nil
}
