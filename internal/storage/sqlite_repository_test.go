package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tasksync-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	repo.now = func() time.Time { return time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC) }
	return repo
}

func TestPutGetDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.Put(ctx, "authToken", []byte("abc")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := repo.Get(ctx, "authToken")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Value) != "abc" {
		t.Fatalf("unexpected value %q", got.Value)
	}
	if !got.UpdatedAt.Equal(time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected updated_at %s", got.UpdatedAt)
	}

	if err := repo.Put(ctx, "authToken", []byte("def")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = repo.Get(ctx, "authToken")
	if err != nil || string(got.Value) != "def" {
		t.Fatalf("expected overwritten value, got %q err=%v", got.Value, err)
	}

	if err := repo.Delete(ctx, "authToken"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "authToken"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "authToken"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting missing key, got %v", err)
	}
}

func TestPutRejectsEmptyKey(t *testing.T) {
	repo := setupRepo(t)
	if err := repo.Put(context.Background(), " ", []byte("x")); err == nil {
		t.Fatal("expected empty key to fail")
	}
}

func TestNewRepositoryNeedsDB(t *testing.T) {
	if _, err := NewSQLiteRepository(nil); err == nil {
		t.Fatal("expected nil db to fail")
	}
	repo := setupRepo(t)
	var fk int
	if err := repo.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("read pragma: %v", err)
	}
	if fk != 0 {
		t.Fatalf("foreign_keys = %d, want the sqlite default", fk)
	}
}
