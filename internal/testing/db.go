// Package testing provides testing utilities and helpers for the bojops project.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/bojops/internal/database"
)

// NewTestDB creates a file-backed SQLite database in a temporary directory
// and applies the embedded schema for name. The database is closed when the
// test ends.
//
// Supported schema names:
//   - "cache" - release_files and daily_pages
//   - "operations" - operations and transactions
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db
}
