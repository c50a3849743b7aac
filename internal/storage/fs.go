package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/natefinch/atomic"

	"github.com/starford/thoughts/internal/apperr"
	"github.com/starford/thoughts/internal/models"
	"github.com/starford/thoughts/internal/parser"
)

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// FS implements Store with one text file per entry under a root directory.
// The identifier is the slash-separated path relative to root and the title
// is the file name without extension.
type FS struct {
	root   string // absolute path to the entries directory
	ext    string
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = (*FS)(nil)

// NewFS creates a file store rooted at root, creating the directory if needed.
func NewFS(root, ext string, logger *slog.Logger) (*FS, error) {
	if ext == "" {
		ext = ".md"
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerms); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, ext: ext, logger: logger, now: time.Now}, nil
}

// Root returns the absolute entries directory.
func (f *FS) Root() string { return f.root }

// Close is a no-op for the file store.
func (f *FS) Close() error { return nil }

// safePath resolves an identifier against the root and rejects any result
// that escapes it.
func (f *FS) safePath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("storage: empty identifier: %w", apperr.ErrNotFound)
	}
	cleaned := filepath.Clean(filepath.FromSlash(id))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", id)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes store root: %s", id)
	}
	if !strings.HasSuffix(abs, f.ext) {
		return "", fmt.Errorf("storage: %s: %w", id, apperr.ErrNotFound)
	}
	return abs, nil
}

func (f *FS) idFor(abs string) string {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// Scan walks the root recursively and loads every file with the entry extension.
func (f *FS) Scan() ([]models.Entry, error) {
	var out []models.Entry
	_ = filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			f.logger.Warn("storage: walk failed", slog.String("path", p), slog.String("error", walkErr.Error()))
			if d != nil && d.IsDir() && p != f.root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), f.ext) {
			return nil
		}
		e, err := f.load(p)
		if err != nil {
			f.logger.Warn("storage: skipped entry", slog.String("path", p), slog.String("error", err.Error()))
			return nil
		}
		out = append(out, e)
		return nil
	})
	return out, nil
}

// load reads one entry file.
func (f *FS) load(abs string) (models.Entry, error) {
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Entry{}, fmt.Errorf("storage: %s: %w", f.idFor(abs), apperr.ErrNotFound)
		}
		return models.Entry{}, fmt.Errorf("storage: stat %s: %w: %w", f.idFor(abs), apperr.ErrMetadataUnavailable, err)
	}
	if !info.Mode().IsRegular() {
		return models.Entry{}, fmt.Errorf("storage: %s: %w", f.idFor(abs), apperr.ErrNotAFile)
	}
	title := strings.TrimSuffix(filepath.Base(abs), f.ext)
	if err := checkTitle(title); err != nil {
		return models.Entry{}, fmt.Errorf("storage: %s: %w", f.idFor(abs), err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return models.Entry{}, fmt.Errorf("storage: read %s: %w", f.idFor(abs), err)
	}
	res, err := parser.Parse(data)
	if err != nil {
		return models.Entry{}, fmt.Errorf("storage: parse %s: %w", f.idFor(abs), err)
	}

	created := res.Frontmatter.Created
	if created.IsZero() {
		created = birthTime(abs, info)
	}
	return models.Entry{
		ID:         f.idFor(abs),
		Title:      title,
		Body:       res.Body,
		Favorite:   res.Frontmatter.Favorite,
		Tags:       res.Frontmatter.Tags,
		CreatedAt:  created.Truncate(time.Second),
		ModifiedAt: info.ModTime().Truncate(time.Second),
	}, nil
}

// Get loads the entry stored at id.
func (f *FS) Get(id string) (models.Entry, error) {
	abs, err := f.safePath(id)
	if err != nil {
		return models.Entry{}, err
	}
	return f.load(abs)
}

// Create writes a new file named after the entry title.
func (f *FS) Create(e models.Entry) (models.Entry, error) {
	if err := checkTitle(e.Title); err != nil {
		return models.Entry{}, fmt.Errorf("storage: create: %w", err)
	}
	abs := filepath.Join(f.root, e.Title+f.ext)
	if _, err := os.Lstat(abs); err == nil {
		return models.Entry{}, fmt.Errorf("storage: create %s: %w", f.idFor(abs), apperr.ErrAlreadyExists)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = f.now()
	}
	if err := f.writeFile(abs, e); err != nil {
		return models.Entry{}, err
	}
	if err := os.Chmod(abs, filePerms); err != nil {
		return models.Entry{}, fmt.Errorf("storage: chmod: %w", err)
	}
	return f.load(abs)
}

// Write replaces the file behind e.ID. The replacement is a rename of a
// fully written temp file, so readers see either the old or the new content.
func (f *FS) Write(e models.Entry) (models.Entry, error) {
	if e.ID == "" {
		return f.Create(e)
	}
	abs, err := f.safePath(e.ID)
	if err != nil {
		return models.Entry{}, err
	}
	prev, err := f.load(abs)
	if err != nil {
		return models.Entry{}, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = prev.CreatedAt
	}
	if err := f.writeFile(abs, e); err != nil {
		return models.Entry{}, err
	}

	// Keep modification times from going backwards across writes.
	floor := prev.ModifiedAt
	if e.ModifiedAt.After(floor) {
		floor = e.ModifiedAt
	}
	if info, err := os.Stat(abs); err == nil && info.ModTime().Before(floor) {
		if err := os.Chtimes(abs, f.now(), floor); err != nil {
			return models.Entry{}, fmt.Errorf("storage: chtimes: %w", err)
		}
	}
	return f.load(abs)
}

func (f *FS) writeFile(abs string, e models.Entry) error {
	content, err := parser.Compose(parser.Frontmatter{
		Favorite: e.Favorite,
		Tags:     e.Tags,
		Created:  e.CreatedAt,
	}, e.Body)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), dirPerms); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := atomic.WriteFile(abs, strings.NewReader(string(content))); err != nil {
		return fmt.Errorf("storage: write %s: %w", f.idFor(abs), err)
	}
	return nil
}

// Rename moves the entry file to a new name in the same directory. The
// returned entry carries the new identifier; the old one no longer resolves.
func (f *FS) Rename(id, title string) (models.Entry, error) {
	if err := checkTitle(title); err != nil {
		return models.Entry{}, fmt.Errorf("storage: rename: %w", err)
	}
	absOld, err := f.safePath(id)
	if err != nil {
		return models.Entry{}, err
	}
	if _, err := f.load(absOld); err != nil {
		return models.Entry{}, err
	}
	absNew := filepath.Join(filepath.Dir(absOld), title+f.ext)
	if absNew == absOld {
		return f.load(absOld)
	}
	if _, err := os.Lstat(absNew); err == nil {
		return models.Entry{}, fmt.Errorf("storage: rename to %s: %w", f.idFor(absNew), apperr.ErrAlreadyExists)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return models.Entry{}, fmt.Errorf("storage: rename: %w", err)
	}
	return f.load(absNew)
}

// Delete removes the entry file.
func (f *FS) Delete(id string) error {
	abs, err := f.safePath(id)
	if err != nil {
		return err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("storage: delete %s: %w", id, apperr.ErrNotFound)
		}
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	if info.IsDir() {
		return fmt.Errorf("storage: delete %s: %w", id, apperr.ErrNotAFile)
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	return nil
}

// Backup copies the entries tree into a fresh backupN directory under dir.
func (f *FS) Backup(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %w", apperr.ErrBackupIO, dir, err)
	}
	if absDir == f.root || strings.HasPrefix(absDir, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: backup dir %s is inside the store root", apperr.ErrBackupIO, absDir)
	}
	dest, err := nextBackupPath(absDir, "")
	if err != nil {
		return "", err
	}
	if err := os.CopyFS(dest, os.DirFS(f.root)); err != nil {
		return "", fmt.Errorf("%w: copy to %s: %w", apperr.ErrBackupIO, dest, err)
	}
	f.logger.Info("storage: backup written", slog.String("path", dest))
	return dest, nil
}

// nextBackupPath names the next backup in dir after the number of items it
// already holds, skipping forward past any name that is taken.
func nextBackupPath(dir, suffix string) (string, error) {
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return "", fmt.Errorf("%w: mkdir %s: %w", apperr.ErrBackupIO, dir, err)
	}
	items, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: list %s: %w", apperr.ErrBackupIO, dir, err)
	}
	for n := len(items); ; n++ {
		p := filepath.Join(dir, fmt.Sprintf("backup%d%s", n, suffix))
		if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
	}
}

// checkTitle rejects titles that cannot name a file.
func checkTitle(title string) error {
	if strings.TrimSpace(title) == "" || !utf8.ValidString(title) ||
		strings.ContainsAny(title, `/\`) || title == "." || title == ".." {
		return fmt.Errorf("%w: %q", apperr.ErrUnreadableTitle, title)
	}
	return nil
}
