package sqlstore

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/asakaida/polylink/internal/infrastructure/config"
	"github.com/asakaida/polylink/internal/infrastructure/database"
)

// TestDriverEnv selects the database used by SetupTestStore.
// Unset means a SQLite file in a temporary directory.
const TestDriverEnv = "POLYLINK_TEST_DRIVER"

// SetupTestStore creates a migrated test database and a store on top of it.
// The database is cleaned up and closed when the test ends.
func SetupTestStore(t *testing.T) *Store {
	t.Helper()

	db := openTestDB(t)

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	dialect, err := ParseDialect(db.Driver)
	if err != nil {
		db.Close()
		t.Fatalf("Failed to parse dialect: %v", err)
	}

	t.Cleanup(func() {
		CleanupTestDB(t, db)
	})

	return New(db.DB, dialect)
}

func openTestDB(t *testing.T) *database.Database {
	t.Helper()

	driver := os.Getenv(TestDriverEnv)
	if driver == "" || driver == database.DriverSQLite {
		db, err := database.NewSQLite(filepath.Join(t.TempDir(), "graph.db"))
		if err != nil {
			t.Fatalf("Failed to open sqlite database: %v", err)
		}
		return db
	}

	// Initialize test config
	if err := config.InitConfig("test"); err != nil {
		t.Fatalf("Failed to init config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	cfg.Database.Driver = driver

	db, err := database.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	return db
}

// CleanupTestDB removes all graph rows and closes the database connection
func CleanupTestDB(t *testing.T, db *database.Database) {
	t.Helper()

	// Clean up all tables, links first
	tables := []string{"links", "edges", "relation_kinds"}
	for _, table := range tables {
		_, err := db.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("Warning: Failed to clean up table %s: %v", table, err)
		}
	}

	if err := db.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}
