package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T, driver string) *sql.DB {
	t.Helper()
	db, err := sql.Open(driver, filepath.Join(t.TempDir(), "climate.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRun_CreatesSchema(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			db := openDB(t, driver)
			ctx := context.Background()

			if err := Run(ctx, db); err != nil {
				t.Fatalf("Run: %v", err)
			}
			for _, table := range []string{"station", "measurement"} {
				var n int
				err := db.QueryRowContext(ctx,
					`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
				).Scan(&n)
				if err != nil {
					t.Fatalf("lookup %s: %v", table, err)
				}
				if n != 1 {
					t.Errorf("table %s missing after Run", table)
				}
			}

			applied, err := Applied(ctx, db)
			if err != nil {
				t.Fatalf("Applied: %v", err)
			}
			if len(applied) != 1 || applied[0] != "0001" {
				t.Errorf("Applied = %v, want [0001]", applied)
			}
		})
	}
}

func TestRun_Idempotent(t *testing.T) {
	db := openDB(t, "sqlite3")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := Run(ctx, db); err != nil {
			t.Fatalf("Run #%d: %v", i+1, err)
		}
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Errorf("schema_migrations rows = %d, want 1", n)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in          string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{"0001_climate_schema.sql", "0001", "climate_schema", true},
		{"0012_add_index.sql", "0012", "add_index", true},
		{"1_short.sql", "", "", false},
		{"0001_climate_schema.txt", "", "", false},
		{"README.md", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, n, ok := parseMigrationFilename(tt.in)
			if v != tt.wantVersion || n != tt.wantName || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.in, v, n, ok, tt.wantVersion, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestPendingMigrations_SkipsApplied(t *testing.T) {
	pending, err := pendingMigrations([]string{"0001"})
	if err != nil {
		t.Fatalf("pendingMigrations: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d migrations, want 0", len(pending))
	}
}
