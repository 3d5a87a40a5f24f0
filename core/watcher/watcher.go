// Package watcher monitors folders and keeps their files ingested in the
// knowledge store. It wraps fsnotify with recursive directory watching,
// glob exclusion, and per-path debouncing; every settled change replaces
// the file's chunks wholesale.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/adalundhe/aide/core/knowledge"
)

const (
	// DefaultDebounce settles rapid write bursts before ingestion.
	DefaultDebounce = 500 * time.Millisecond

	// maxIngestBytes skips files too large to chunk sensibly.
	maxIngestBytes = 4 * 1024 * 1024
)

var (
	// ErrNoPaths indicates no watch paths were configured.
	ErrNoPaths = errors.New("no paths configured for watching")

	// ErrInvalidPattern indicates an exclude pattern failed to compile.
	ErrInvalidPattern = errors.New("invalid exclude pattern")
)

// Ingestor is the document store surface the watcher writes through.
type Ingestor interface {
	Add(ctx context.Context, text string, meta knowledge.AddMetadata) (int, error)
	DeleteBySource(ctx context.Context, source string) (int, error)
}

// Config assembles a Watcher.
type Config struct {
	Paths           []string
	ExcludePatterns []string
	Debounce        time.Duration
	Store           Ingestor
	Logger          *slog.Logger
}

// Watcher mirrors watched folders into the core knowledge layer.
type Watcher struct {
	paths    []string
	excludes []glob.Glob
	debounce time.Duration
	store    Ingestor
	logger   *slog.Logger
	fs       *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// New validates the configuration and creates a watcher. Paths must exist
// and be directories.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, ErrNoPaths
	}
	if cfg.Store == nil {
		return nil, errors.New("watcher: store is required")
	}
	for _, path := range cfg.Paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, errors.New("watch path is not a directory: " + path)
		}
	}

	excludes := make([]glob.Glob, 0, len(cfg.ExcludePatterns))
	for _, pattern := range cfg.ExcludePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		excludes = append(excludes, g)
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		paths:    cfg.Paths,
		excludes: excludes,
		debounce: cfg.Debounce,
		store:    cfg.Store,
		logger:   cfg.Logger,
		fs:       fsw,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Start begins watching. It returns once the watch paths are registered;
// event processing runs until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	for _, path := range w.paths {
		if err := w.addRecursive(path); err != nil {
			w.fs.Close()
			return err
		}
	}

	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Wait blocks until the event loop and any pending ingestions finish.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.isExcluded(path) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	defer w.fs.Close()

	for {
		select {
		case <-ctx.Done():
			w.flushPending()
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if w.isExcluded(event.Name) {
		return
	}

	// New directories join the recursive watch.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("watch new directory failed", "path", event.Name, "error", err)
			}
			return
		}
	}

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.schedule(ctx, event.Name, w.remove)
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		w.schedule(ctx, event.Name, w.ingest)
	}
}

// schedule debounces per path: the action fires once the path has been
// quiet for the debounce interval.
func (w *Watcher) schedule(ctx context.Context, path string, action func(context.Context, string)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}

	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		action(ctx, path)
	})
}

func (w *Watcher) flushPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

// ingest replaces the file's chunks in the core layer. Binary and
// oversized files are skipped.
func (w *Watcher) ingest(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if info.Size() > maxIngestBytes {
		w.logger.Warn("skipping oversized file", "path", path, "size", info.Size())
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("read watched file failed", "path", path, "error", err)
		return
	}
	if !utf8.Valid(data) {
		w.logger.Debug("skipping binary file", "path", path)
		return
	}

	if _, err := w.store.DeleteBySource(ctx, path); err != nil {
		w.logger.Warn("remove stale chunks failed", "path", path, "error", err)
		return
	}
	if len(data) == 0 {
		return
	}

	n, err := w.store.Add(ctx, string(data), knowledge.AddMetadata{
		Source: path,
		Type:   "file",
		Layer:  knowledge.LayerCore,
	})
	if err != nil {
		w.logger.Warn("ingest failed", "path", path, "error", err)
		return
	}
	w.logger.Info("ingested file", "path", path, "chunks", n)
}

func (w *Watcher) remove(ctx context.Context, path string) {
	n, err := w.store.DeleteBySource(ctx, path)
	if err != nil {
		w.logger.Warn("remove chunks failed", "path", path, "error", err)
		return
	}
	if n > 0 {
		w.logger.Info("removed file chunks", "path", path, "chunks", n)
	}
}

func (w *Watcher) isExcluded(path string) bool {
	for _, g := range w.excludes {
		if g.Match(path) {
			return true
		}
	}
	return false
}
