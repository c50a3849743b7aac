// Package storage holds the entry store and its backends.
package storage

import (
	"fmt"
	"log/slog"

	"github.com/starford/thoughts/internal/models"
)

// Backend names accepted by Open.
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
)

// Store owns the authoritative set of entries on its backing medium.
//
// Stores do not cache: Scan re-reads the medium every time. Mutating calls
// must be serialized by the caller.
type Store interface {
	// Scan returns every readable entry in no particular order. Entries that
	// fail to load are skipped and logged; one bad entry never fails the scan.
	Scan() ([]models.Entry, error)
	// Get loads one entry by identifier.
	Get(id string) (models.Entry, error)
	// Create stores a new entry and assigns its identifier.
	Create(e models.Entry) (models.Entry, error)
	// Write replaces an existing entry atomically. An entry without an
	// identifier is created instead.
	Write(e models.Entry) (models.Entry, error)
	// Rename changes an entry's title.
	Rename(id, title string) (models.Entry, error)
	// Delete removes an entry.
	Delete(id string) error
	// Backup copies the whole medium into dir and returns the artifact path.
	Backup(dir string) (string, error)
	// Root is the filesystem location whose changes affect Scan results.
	Root() string
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	Root       string // entries directory for the fs backend
	Extension  string // entry file extension for the fs backend
	SQLitePath string // database file for the sqlite backend
	Logger     *slog.Logger
}

// Open constructs the backend named by opts.Backend.
func Open(opts Options) (Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch opts.Backend {
	case BackendFS, "":
		return NewFS(opts.Root, opts.Extension, logger)
	case BackendSQLite:
		return OpenSQLite(opts.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}
