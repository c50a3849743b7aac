// Package entryservice coordinates the entry store and the query engine for
// every user-facing surface.
package entryservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/thoughts/internal/apperr"
	"github.com/starford/thoughts/internal/models"
	"github.com/starford/thoughts/internal/parser"
	"github.com/starford/thoughts/internal/query"
	"github.com/starford/thoughts/internal/storage"
)

// Default layouts for template expansion.
const (
	DefaultDateFormat = "01-02-2006"
	DefaultTimeFormat = "03:04pm"
)

// CreateInput describes a new entry.
type CreateInput struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Favorite bool     `json:"favorite"`
	Tags     []string `json:"tags"`
}

// Patch lists the mutable fields to change. Nil fields are left alone.
type Patch struct {
	Title    *string   `json:"title,omitempty"`
	Body     *string   `json:"body,omitempty"`
	Favorite *bool     `json:"favorite,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}

// Service coordinates store and query operations. Mutations are serialized,
// so a Service may be shared by concurrent request handlers.
type Service struct {
	mu         sync.Mutex
	store      storage.Store
	logger     *slog.Logger
	now        func() time.Time
	dateFormat string
	timeFormat string
}

// Option configures a Service.
type Option func(*Service)

// WithTemplateFormats sets the layouts substituted for <DATE> and <TIME>.
func WithTemplateFormats(date, tod string) Option {
	return func(s *Service) {
		if date != "" {
			s.dateFormat = date
		}
		if tod != "" {
			s.timeFormat = tod
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new entry service.
func NewService(store storage.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:      store,
		logger:     logger,
		now:        time.Now,
		dateFormat: DefaultDateFormat,
		timeFormat: DefaultTimeFormat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store.
func (s *Service) Store() storage.Store { return s.store }

// List returns every entry in chronological order.
func (s *Service) List(ctx context.Context) ([]models.Entry, error) {
	return s.Search(ctx, "")
}

// Search re-scans the store and applies q. Malformed queries never fail;
// they just filter less.
func (s *Service) Search(_ context.Context, q string) ([]models.Entry, error) {
	entries, err := s.store.Scan()
	if err != nil {
		return nil, err
	}
	return query.Search(entries, q), nil
}

// Get loads one entry.
func (s *Service) Get(_ context.Context, id string) (models.Entry, error) {
	return s.store.Get(id)
}

// Create stores a new entry stamped with the current time. <DATE> and <TIME>
// in the body are replaced with that time.
func (s *Service) Create(_ context.Context, in CreateInput) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := s.now().Truncate(time.Second)
	e, err := s.store.Create(models.Entry{
		Title:     strings.TrimSpace(in.Title),
		Body:      ExpandTemplate(in.Body, created, s.dateFormat, s.timeFormat),
		Favorite:  in.Favorite,
		Tags:      cleanTags(in.Tags),
		CreatedAt: created,
	})
	if err != nil {
		return models.Entry{}, err
	}
	s.logger.Debug("entry: created", slog.String("id", e.ID))
	return e, nil
}

// Update applies p to the entry. A non-empty ifMatch must equal the current
// fingerprint or the update fails with apperr.ErrConflict. Renaming on the
// file backend changes the identifier; the returned entry carries the new one.
func (s *Service) Update(_ context.Context, id string, p Patch, ifMatch string) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(id, p, ifMatch)
}

func (s *Service) update(id string, p Patch, ifMatch string) (models.Entry, error) {
	e, err := s.store.Get(id)
	if err != nil {
		return models.Entry{}, err
	}
	if ifMatch != "" && ifMatch != Fingerprint(e) {
		return models.Entry{}, apperr.ErrConflict
	}

	if p.Title != nil && strings.TrimSpace(*p.Title) != e.Title {
		if e, err = s.store.Rename(e.ID, strings.TrimSpace(*p.Title)); err != nil {
			return models.Entry{}, err
		}
	}

	dirty := false
	if p.Body != nil && *p.Body != e.Body {
		e.Body, dirty = *p.Body, true
	}
	if p.Favorite != nil && *p.Favorite != e.Favorite {
		e.Favorite, dirty = *p.Favorite, true
	}
	if p.Tags != nil {
		e.Tags, dirty = cleanTags(*p.Tags), true
	}
	if !dirty {
		return e, nil
	}

	e.ModifiedAt = time.Time{}
	if e, err = s.store.Write(e); err != nil {
		return models.Entry{}, err
	}
	s.logger.Debug("entry: updated", slog.String("id", e.ID))
	return e, nil
}

// ToggleFavorite flips the favorite flag.
func (s *Service) ToggleFavorite(_ context.Context, id string) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.store.Get(id)
	if err != nil {
		return models.Entry{}, err
	}
	fav := !e.Favorite
	return s.update(id, Patch{Favorite: &fav}, "")
}

// Delete removes an entry.
func (s *Service) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.Debug("entry: deleted", slog.String("id", id))
	return nil
}

// Backup copies the store into dir and returns the artifact path.
func (s *Service) Backup(_ context.Context, dir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Backup(dir)
}

// Fingerprint is a SHA-256 over everything an update could change. It serves
// as the ETag for optimistic concurrency.
func Fingerprint(e models.Entry) string {
	content, err := parser.Compose(parser.Frontmatter{
		Favorite: e.Favorite,
		Tags:     e.Tags,
		Created:  e.CreatedAt,
	}, e.Body)
	if err != nil {
		content = []byte(fmt.Sprint(e.Favorite, e.Tags, e.CreatedAt.Unix(), e.Body))
	}
	h := sha256.New()
	h.Write([]byte(e.ID + "\x00" + e.Title + "\x00"))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// ExpandTemplate replaces <DATE> and <TIME> with t formatted by the given layouts.
func ExpandTemplate(body string, t time.Time, dateFormat, timeFormat string) string {
	return strings.NewReplacer(
		"<DATE>", t.Format(dateFormat),
		"<TIME>", t.Format(timeFormat),
	).Replace(body)
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
