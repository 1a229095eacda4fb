package database

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		t.Fatalf("Failed to read embedded migrations: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("Expected 4 migrations, got %d", len(entries))
	}

	for _, e := range entries {
		data, err := fs.ReadFile(migrations, "migrations/"+e.Name())
		if err != nil {
			t.Fatalf("Failed to read %s: %v", e.Name(), err)
		}
		if !strings.Contains(string(data), "-- +goose Up") || !strings.Contains(string(data), "-- +goose Down") {
			t.Errorf("%s must declare both Up and Down sections", e.Name())
		}
	}
}

func TestMigrateAndReset(t *testing.T) {
	db, err := New("postgres", "host=localhost dbname=pagacollect_test sslmode=disable")
	if err != nil {
		t.Skipf("Skipping test, database not available: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	v, err := db.Version()
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if v != 4 {
		t.Errorf("Expected schema version 4, got %d", v)
	}

	if err := db.CleanData(); err != nil {
		t.Errorf("CleanData failed: %v", err)
	}

	if err := db.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate after reset failed: %v", err)
	}
}
