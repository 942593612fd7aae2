package testutil

import (
	"path/filepath"
	"testing"

	"puzzlepals/internal/database"
	"puzzlepals/migrations"
)

// NewDB opens a migrated SQLite database in a temporary directory.
// The database is closed when the test ends.
func NewDB(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "puzzlepals.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.RunMigrations(migrations.FS, migrations.Local); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}
