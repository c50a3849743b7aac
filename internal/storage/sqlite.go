package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/starford/thoughts/internal/apperr"
	"github.com/starford/thoughts/internal/models"
)

const selectEntrySQL = `SELECT id, title, body, favorite, tags, created_at, modified_at FROM entries`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (models.Entry, error) {
	var (
		id                int64
		e                 models.Entry
		tagsJSON          string
		created, modified int64
	)
	if err := r.Scan(&id, &e.Title, &e.Body, &e.Favorite, &tagsJSON, &created, &modified); err != nil {
		return models.Entry{}, err
	}
	e.ID = strconv.FormatInt(id, 10)
	if strings.TrimSpace(e.Title) == "" {
		return e, fmt.Errorf("storage: row %d: %w", id, apperr.ErrUnreadableTitle)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
		return e, fmt.Errorf("storage: row %d: tags: %w", id, &apperr.FrontmatterParseError{Err: err})
	}
	if len(e.Tags) == 0 {
		e.Tags = nil
	}
	e.CreatedAt = time.Unix(created, 0)
	e.ModifiedAt = time.Unix(modified, 0)
	return e, nil
}

// Scan returns every row. Rows that fail to decode are skipped and logged.
func (s *SQLite) Scan() ([]models.Entry, error) {
	rows, err := s.conn.Query(selectEntrySQL)
	if err != nil {
		return nil, fmt.Errorf("storage: scan: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			s.logger.Warn("storage: skipped entry", slog.String("id", e.ID), slog.String("error", err.Error()))
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func parseRowID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("storage: invalid id %q: %w", id, apperr.ErrNotFound)
	}
	return n, nil
}

// Get loads one row by id.
func (s *SQLite) Get(id string) (models.Entry, error) {
	n, err := parseRowID(id)
	if err != nil {
		return models.Entry{}, err
	}
	e, err := scanEntry(s.conn.QueryRow(selectEntrySQL+` WHERE id = ?`, n))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Entry{}, fmt.Errorf("storage: entry %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Entry{}, fmt.Errorf("storage: get %s: %w", id, err)
	}
	return e, nil
}

// Create inserts a row and returns it with its assigned id.
func (s *SQLite) Create(e models.Entry) (models.Entry, error) {
	if strings.TrimSpace(e.Title) == "" {
		return models.Entry{}, fmt.Errorf("storage: create: %w", apperr.ErrUnreadableTitle)
	}
	now := s.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	tagsJSON, err := json.Marshal(nonNilTags(e.Tags))
	if err != nil {
		return models.Entry{}, fmt.Errorf("storage: encode tags: %w", err)
	}
	res, err := s.conn.Exec(`
		INSERT INTO entries (title, body, favorite, tags, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Title, e.Body, e.Favorite, string(tagsJSON), e.CreatedAt.Unix(), now.Unix())
	if err != nil {
		return models.Entry{}, fmt.Errorf("storage: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Entry{}, fmt.Errorf("storage: insert id: %w", err)
	}
	return s.Get(strconv.FormatInt(id, 10))
}

// Write replaces the row behind e.ID inside a single statement, so readers
// never observe a partial update. modified_at never decreases.
func (s *SQLite) Write(e models.Entry) (models.Entry, error) {
	if e.ID == "" {
		return s.Create(e)
	}
	n, err := parseRowID(e.ID)
	if err != nil {
		return models.Entry{}, err
	}
	if strings.TrimSpace(e.Title) == "" {
		return models.Entry{}, fmt.Errorf("storage: write: %w", apperr.ErrUnreadableTitle)
	}
	tagsJSON, err := json.Marshal(nonNilTags(e.Tags))
	if err != nil {
		return models.Entry{}, fmt.Errorf("storage: encode tags: %w", err)
	}
	modified := s.now()
	if e.ModifiedAt.After(modified) {
		modified = e.ModifiedAt
	}
	res, err := s.conn.Exec(`
		UPDATE entries SET
			title       = ?,
			body        = ?,
			favorite    = ?,
			tags        = ?,
			modified_at = MAX(modified_at, ?)
		WHERE id = ?
	`, e.Title, e.Body, e.Favorite, string(tagsJSON), modified.Unix(), n)
	if err != nil {
		return models.Entry{}, fmt.Errorf("storage: update: %w", err)
	}
	if err := requireRow(res, e.ID); err != nil {
		return models.Entry{}, err
	}
	return s.Get(e.ID)
}

// Rename updates the title column; the id is unchanged.
func (s *SQLite) Rename(id, title string) (models.Entry, error) {
	if strings.TrimSpace(title) == "" {
		return models.Entry{}, fmt.Errorf("storage: rename: %w", apperr.ErrUnreadableTitle)
	}
	n, err := parseRowID(id)
	if err != nil {
		return models.Entry{}, err
	}
	res, err := s.conn.Exec(`UPDATE entries SET title = ?, modified_at = MAX(modified_at, ?) WHERE id = ?`,
		title, s.now().Unix(), n)
	if err != nil {
		return models.Entry{}, fmt.Errorf("storage: rename: %w", err)
	}
	if err := requireRow(res, id); err != nil {
		return models.Entry{}, err
	}
	return s.Get(id)
}

// Delete removes the row.
func (s *SQLite) Delete(id string) error {
	n, err := parseRowID(id)
	if err != nil {
		return err
	}
	res, err := s.conn.Exec(`DELETE FROM entries WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("storage: delete: %w", err)
	}
	return requireRow(res, id)
}

// Backup writes a consistent copy of the database to dir/backupN.db.
func (s *SQLite) Backup(dir string) (string, error) {
	dest, err := nextBackupPath(dir, ".db")
	if err != nil {
		return "", err
	}
	if _, err := s.conn.Exec(`VACUUM INTO ?`, dest); err != nil {
		return "", fmt.Errorf("%w: vacuum into %s: %w", apperr.ErrBackupIO, dest, err)
	}
	s.logger.Info("storage: backup written", slog.String("path", dest))
	return dest, nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("storage: entry %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
