package testutil

import (
	"database/sql"
	"net/http"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
	_ "github.com/mattn/go-sqlite3" // Blank import for sql driver

	appdb "github.com/audiarr/audiarr/internal/db"
)

// SetupTestDB creates an in-memory SQLite database and applies all
// embedded migrations. It returns the database connection, ready for use
// in tests.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use in-memory database for testing to ensure tests are fast and isolated.
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	// A second pooled connection would see its own empty memory database.
	db.SetMaxOpenConns(1)

	// Attach a cleanup function to automatically close the DB when the test completes.
	t.Cleanup(func() {
		db.Close()
	})

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		t.Fatalf("Failed to create migration driver: %v", err)
	}

	source, err := httpfs.New(http.FS(appdb.MigrationsFS), "migrations")
	if err != nil {
		t.Fatalf("Failed to create migration source: %v", err)
	}

	m, err := migrate.NewWithInstance("httpfs", source, "sqlite3", driver)
	if err != nil {
		t.Fatalf("Failed to create migrate instance: %v", err)
	}

	// Apply all "up" migrations.
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	// Seed the bootstrap admin so rows referencing user id 1 satisfy the
	// foreign key, mirroring what the server does on first start.
	if _, err := db.Exec(`INSERT INTO users (username, role) VALUES ('admin', 'admin')`); err != nil {
		t.Fatalf("Failed to seed admin user: %v", err)
	}

	return db
}
