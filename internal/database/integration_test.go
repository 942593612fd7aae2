package database

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"puzzlepals/migrations"
)

func openTestDB(t *testing.T, driver string) *DB {
	t.Helper()
	db, err := OpenNamed(driver, DialectConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(migrations.FS, migrations.Local); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle on both SQLite drivers
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			db := openTestDB(t, driver)

			tables := []string{"identities", "profiles", "configurations", "parental_controls", "level_stats", "level_attempts", "accounts"}
			for _, table := range tables {
				var name string
				err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
				if err != nil {
					t.Errorf("Table %s not found: %v", table, err)
				}
			}

			var kind string
			if err := db.QueryRow("SELECT kind FROM identities WHERE id = '1'").Scan(&kind); err != nil {
				t.Fatalf("default identity not seeded: %v", err)
			}
			if kind != "default" {
				t.Errorf("default identity kind = %q", kind)
			}
		})
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t, "sqlite3")

	if err := db.RunMigrations(migrations.FS, migrations.Local); err != nil {
		t.Fatalf("second migration run failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 recorded migrations, got %d", count)
	}
}

// TestWithinTx tests commit and rollback through the serialized helper
func TestWithinTx(t *testing.T) {
	db := openTestDB(t, "sqlite3")

	err := db.WithinTx(func(tx *Tx) error {
		_, err := tx.Exec("INSERT INTO identities (id, kind) VALUES (?, ?)", "acc-1", "account")
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx commit failed: %v", err)
	}

	boom := errors.New("boom")
	err = db.WithinTx(func(tx *Tx) error {
		if _, err := tx.Exec("INSERT INTO identities (id, kind) VALUES (?, ?)", "acc-2", "account"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx error = %v, want boom", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM identities WHERE id IN ('acc-1', 'acc-2')").Scan(&count); err != nil {
		t.Fatalf("Failed to count identities: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected only the committed identity, got %d rows", count)
	}
}

// TestConcurrentWrites tests that serialized write transactions never lose updates
func TestConcurrentWrites(t *testing.T) {
	db := openTestDB(t, "sqlite3")

	if _, err := db.Exec("INSERT INTO level_stats (subject_id, profile_id, level) VALUES ('1', 0, 1)"); err != nil {
		t.Fatalf("Failed to seed stats: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.WithinTx(func(tx *Tx) error {
				var n int
				if err := tx.QueryRow("SELECT fail_count FROM level_stats WHERE level = 1").Scan(&n); err != nil {
					return err
				}
				_, err := tx.Exec("UPDATE level_stats SET fail_count = ? WHERE level = 1", n+1)
				return err
			})
			if err != nil {
				t.Errorf("concurrent write failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var n int
	if err := db.QueryRow("SELECT fail_count FROM level_stats WHERE level = 1").Scan(&n); err != nil {
		t.Fatalf("Failed to read stats: %v", err)
	}
	if n != 10 {
		t.Errorf("fail_count = %d, want 10", n)
	}
}
