// Package testutil provides shared test helpers for setting up entry stores.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/thoughts/internal/storage"
)

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestFS creates a file-backed store in a temporary directory.
func TestFS(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir(), ".md", Logger())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestSQLite creates a temporary SQLite store that is closed on cleanup.
func TestSQLite(t *testing.T) *storage.SQLite {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "thoughts-test.db"), Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// Backends runs fn once per store backend.
func Backends(t *testing.T, fn func(t *testing.T, store storage.Store)) {
	t.Run("fs", func(t *testing.T) { fn(t, TestFS(t)) })
	t.Run("sqlite", func(t *testing.T) { fn(t, TestSQLite(t)) })
}
