// Package internal provides the application wiring shared by every command.
package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/thoughts/internal/entryservice"
	"github.com/starford/thoughts/internal/storage"
)

// NewLogger builds the process logger from the application config.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.App.LogLevel}
	if cfg.App.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = NewLogger(app.config, app.out)
	}
	return app, nil
}

// Open builds the entry service described by the options. The caller must
// close the service's store.
func Open(opts ...Option) (*entryservice.Service, *slog.Logger, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.openService()
	if err != nil {
		return nil, nil, err
	}
	return svc, app.logger, nil
}

func (a *application) openService() (*entryservice.Service, error) {
	cfg := a.config
	store, err := storage.Open(cfg.StoreOptions(a.logger))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.logger.Debug("store opened",
		slog.String("backend", cfg.Store.Backend),
		slog.String("root", store.Root()))
	return entryservice.NewService(store, a.logger,
		entryservice.WithTemplateFormats(cfg.Editor.DateFormat, cfg.Editor.TimeFormat),
	), nil
}
