// Package watch re-reviews source files as they are saved.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ppiankov/reviewgate/internal/scan"
)

// debounceDefault is the quiet period after the last event for a path.
const debounceDefault = 200 * time.Millisecond

// pollDefault is the polling interval when fsnotify is unavailable.
const pollDefault = 2 * time.Second

// Handler receives the review of one saved file. path is relative to the
// watched root.
type Handler func(path string, res *scan.Result)

// Config holds watcher configuration.
type Config struct {
	Root     string
	Review   scan.Options // template for each single-file review; File and Root are set per event
	Debounce time.Duration
	PollMode bool          // fall back to polling if fsnotify is unavailable
	Interval time.Duration // poll interval
	OnResult Handler
	OnError  func(path string, err error)
}

// Watcher watches a source tree and reviews every changed supported file.
type Watcher struct {
	cfg   Config
	root  string
	ex    *scan.Excluder
	ready chan struct{}
}

// New creates a watcher with validated configuration.
func New(cfg Config) (*Watcher, error) {
	if cfg.OnResult == nil {
		return nil, fmt.Errorf("result handler is required")
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, &scan.ConfigError{Msg: "resolve root path", Err: err}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &scan.ConfigError{Msg: fmt.Sprintf("root path %s", cfg.Root), Err: err}
	}
	if !info.IsDir() {
		return nil, &scan.ConfigError{Msg: fmt.Sprintf("root path %s is not a directory", cfg.Root)}
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = debounceDefault
	}
	if cfg.Interval == 0 {
		cfg.Interval = pollDefault
	}
	if cfg.OnError == nil {
		cfg.OnError = func(path string, err error) {
			slog.Error("review failed", "path", path, "error", err)
		}
	}
	return &Watcher{
		cfg:   cfg,
		root:  root,
		ex:    scan.NewExcluder(cfg.Review.Exclude),
		ready: make(chan struct{}),
	}, nil
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string { return w.root }

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.cfg.PollMode {
		return w.runPoll(ctx)
	}
	return w.runFS(ctx)
}

// accepts reports whether rel is a supported, non-excluded source file.
func (w *Watcher) accepts(rel string) bool {
	return scan.LanguageForFile(rel).Supported() && !w.ex.File(rel)
}

func (w *Watcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) review(ctx context.Context, rel string) {
	if ctx.Err() != nil {
		return
	}
	opts := w.cfg.Review
	opts.Root = w.root
	opts.File = filepath.Join(w.root, filepath.FromSlash(rel))
	opts.ChangedOnly = false
	res, err := scan.Scan(ctx, opts)
	if err != nil {
		w.cfg.OnError(rel, err)
		return
	}
	slog.Debug("reviewed file", "path", rel, "findings", len(res.Findings))
	w.cfg.OnResult(rel, res)
}

// addTree watches dir and every non-excluded directory below it.
func (w *Watcher) addTree(watcher *fsnotify.Watcher, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if rel, ok := w.rel(path); ok && w.ex.Dir(rel) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			slog.Warn("cannot watch directory", "dir", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) runFS(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	w.addTree(watcher, w.root)
	slog.Info("watching for changes", "mode", "fsnotify", "root", w.root)
	close(w.ready)

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			rel, ok := w.rel(event.Name)
			if !ok {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.ex.Dir(rel) {
						w.addTree(watcher, event.Name)
					}
					continue
				}
			}
			if !w.accepts(rel) {
				continue
			}

			mu.Lock()
			if t, exists := pending[rel]; exists {
				t.Stop()
			}
			pending[rel] = time.AfterFunc(w.cfg.Debounce, func() {
				mu.Lock()
				delete(pending, rel)
				mu.Unlock()
				w.review(ctx, rel)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// runPoll compares modification times on every tick. Files present at
// start are recorded, not reviewed.
func (w *Watcher) runPoll(ctx context.Context) error {
	slog.Info("watching for changes", "mode", "poll", "root", w.root, "interval", w.cfg.Interval)

	seen := w.snapshot()
	close(w.ready)
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := w.snapshot()
			for rel, mod := range now {
				if prev, ok := seen[rel]; !ok || !mod.Equal(prev) {
					w.review(ctx, rel)
				}
			}
			seen = now
		}
	}
}

func (w *Watcher) snapshot() map[string]time.Time {
	files, _ := scan.Walk(w.root, w.ex, w.accepts)
	out := make(map[string]time.Time, len(files))
	for _, rel := range files {
		if info, err := os.Stat(filepath.Join(w.root, filepath.FromSlash(rel))); err == nil {
			out[rel] = info.ModTime()
		}
	}
	return out
}
