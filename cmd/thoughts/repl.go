package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/starford/thoughts/internal/entryservice"
	"github.com/starford/thoughts/internal/watch"
)

var queryKeywords = []string{"favorite:", "before:", "during:", "after:", "contains:", "startswith:", "id:"}

// repl reads queries line by line and prints the matching entries. Every
// line re-scans the store, so edits made elsewhere show up immediately.
type repl struct {
	svc   *entryservice.Service
	out   io.Writer
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".thoughts_history")
}

func (r *repl) run(ctx context.Context) error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(completeKeyword)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}
	defer r.saveHistory()

	fmt.Fprintln(r.out, "Empty line lists everything. Ctrl-D quits.")

	for {
		line, err := r.liner.Prompt("query> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		if strings.TrimSpace(line) != "" {
			r.liner.AppendHistory(line)
		}

		entries, err := r.svc.Search(ctx, line)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			continue
		}
		writeListing(r.out, entries)
		fmt.Fprintf(r.out, "(%d)\n", len(entries))
	}
}

func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

// completeKeyword completes the last word of line against the query keywords.
func completeKeyword(line string) []string {
	head, last := "", line
	if i := strings.LastIndexAny(line, " \t"); i >= 0 {
		head, last = line[:i+1], line[i+1:]
	}
	var out []string
	for _, kw := range queryKeywords {
		if last != "" && strings.HasPrefix(kw, strings.ToLower(last)) {
			out = append(out, head+kw+" ")
		}
	}
	return out
}

// watchQuery prints the result of q now and after every burst of store changes.
func watchQuery(ctx context.Context, svc *entryservice.Service, logger *slog.Logger, q string, w io.Writer) error {
	render := func() {
		entries, err := svc.Search(ctx, q)
		if err != nil {
			logger.Warn("watch: search failed", slog.String("error", err.Error()))
			return
		}
		fmt.Fprintln(w, strings.Repeat("-", 40))
		writeListing(w, entries)
	}
	render()
	return watch.Watch(ctx, svc.Store().Root(), watch.DefaultDebounce, logger, render)
}
