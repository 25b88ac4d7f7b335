package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/xxxsen/curato/internal/config"
	"github.com/xxxsen/curato/internal/db"
)

// OpenTestDB opens a migrated sqlite database that lives for the duration of t.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "curato_test.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
