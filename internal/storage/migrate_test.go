package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func TestMigrateRoundTripCompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-roundtrip.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}

	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("second migrate up failed: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	if err := repo.Put(context.Background(), "categories_1", []byte(`[{"id":1,"name":"home"}]`)); err != nil {
		t.Fatalf("insert after roundtrip failed: %v", err)
	}

	got, err := repo.Get(context.Background(), "categories_1")
	if err != nil {
		t.Fatalf("get after roundtrip failed: %v", err)
	}
	if string(got.Value) != `[{"id":1,"name":"home"}]` {
		t.Fatalf("unexpected value after roundtrip: %q", got.Value)
	}
}

func TestOpenSQLiteMigrates(t *testing.T) {
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "open.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer repo.Close()
	if err := repo.Put(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("put on freshly opened repo: %v", err)
	}
}
