package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kaimono/internal/models"
)

func TestSQLiteDiskUsage(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "catalog.db")

	tests := []struct {
		name  string
		files map[string]string
		path  string
		want  int64
	}{
		{"in-memory", nil, ":memory:", 0},
		{"empty path", nil, "", 0},
		{"missing database", nil, db, 0},
		{"database only", map[string]string{"catalog.db": "hello"}, db, 5},
		{"with sidecars", map[string]string{"catalog.db": "hello", "catalog.db-wal": "ab", "catalog.db-shm": "c"}, db, 8},
		{"unrelated files ignored", map[string]string{"catalog.db": "hello", "other.db": "zzzz"}, db, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, suffix := range sqliteSidecars {
				_ = os.Remove(db + suffix)
			}
			for name, content := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
					t.Fatal(err)
				}
			}
			got, err := SQLiteDiskUsage(tt.path)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("SQLiteDiskUsage(%q) = %d, want %d", tt.path, got, tt.want)
			}
		})
	}
}

func TestSQLiteDiskUsage_LiveDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")
	store, err := NewSQLiteStorage(db)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.UpsertProduct(context.Background(), &models.Product{ID: "A", Name: "red shoes", IsActive: true}); err != nil {
		t.Fatal(err)
	}
	got, err := SQLiteDiskUsage(db)
	if err != nil {
		t.Fatal(err)
	}
	if got == 0 {
		t.Error("expected non-zero usage for a written database")
	}
}
