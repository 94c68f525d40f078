package shared

import (
	"path/filepath"
	"testing"
)

func TestNewDatabase(t *testing.T) {
	t.Run("opens in-memory database", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			t.Errorf("expected live connection, got %v", err)
		}
	})

	t.Run("file-backed database uses WAL", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fetchd.db")

		db, err := NewDatabase(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer db.Close()

		var mode string
		if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("failed to read journal mode: %v", err)
		}
		if mode != "wal" {
			t.Errorf("journal_mode = %q, want wal", mode)
		}
	})

	t.Run("path with explicit options is left alone", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fetchd.db") + "?_journal_mode=DELETE"

		db, err := NewDatabase(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer db.Close()

		var mode string
		if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("failed to read journal mode: %v", err)
		}
		if mode != "delete" {
			t.Errorf("journal_mode = %q, want delete", mode)
		}
	})

	t.Run("fails when the directory does not exist", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "fetchd.db")

		if _, err := NewDatabase(path); err == nil {
			t.Error("expected error for unreachable path")
		}
	})
}
