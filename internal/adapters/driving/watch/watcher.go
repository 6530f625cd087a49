// Package watch keeps the index in sync with a directory tree.
//
// Created and modified files are ingested after a per-path quiet period,
// so an editor's burst of writes triggers one ingestion. Files that are
// removed or renamed away have their vectors deleted.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
)

// DefaultDebounce is the quiet period before a changed file is processed.
const DefaultDebounce = 500 * time.Millisecond

// ErrClosed is returned when a closed watcher is used.
var ErrClosed = errors.New("watch: watcher is closed")

// Op is what the watcher did with a file.
type Op string

// Operations reported in events.
const (
	OpIngested Op = "ingested"
	OpRemoved  Op = "removed"
)

// Event reports one processed file.
type Event struct {
	Path   string
	Op     Op
	Chunks int
	Err    error
}

// Config tunes the watcher.
type Config struct {
	// Debounce is the per-path quiet period. Zero uses DefaultDebounce.
	Debounce time.Duration

	// Namespace is applied to every ingested file.
	Namespace string

	// OnEvent is called after each file is processed. May be nil.
	OnEvent func(Event)
}

// Watcher ingests changes under one or more directory trees.
type Watcher struct {
	docs      driving.DocumentService
	cfg       Config
	exts      []string
	fsw       *fsnotify.Watcher
	ready     chan string
	done      chan struct{}
	mu        sync.Mutex
	timers    map[string]*time.Timer
	closeOnce sync.Once
}

// New creates a watcher that feeds docs.
func New(docs driving.DocumentService, cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &Watcher{
		docs:   docs,
		cfg:    cfg,
		exts:   docs.SupportedExtensions(),
		fsw:    fsw,
		ready:  make(chan string),
		done:   make(chan struct{}),
		timers: make(map[string]*time.Timer),
	}, nil
}

// Add watches dir and every non-hidden directory below it.
func (w *Watcher) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	return w.addTree(abs)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		logger.Debug("Watching %s", path)
		return nil
	})
}

// Scan ingests every supported file under dir once.
func (w *Watcher) Scan(ctx context.Context, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != dir && hidden(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.wanted(path) {
			w.process(ctx, path)
		}
		return nil
	})
}

// Run processes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleFsEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Logger().Warn().Err(err).Msg("Watcher error")
		case path := <-w.ready:
			w.process(ctx, path)
		}
	}
}

// Close stops the watcher and pending timers. It is idempotent.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for path, t := range w.timers {
			t.Stop()
			delete(w.timers, path)
		}
		w.mu.Unlock()
		err = w.fsw.Close()
	})
	return err
}

// handleFsEvent schedules the file behind ev. It reports whether ev was accepted.
func (w *Watcher) handleFsEvent(ev fsnotify.Event) bool {
	if hidden(ev.Name) {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				logger.Logger().Warn().Err(err).Str("path", ev.Name).Msg("Cannot watch new directory")
			}
			w.scheduleTree(ev.Name)
			return false
		}
	}

	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if !w.wanted(ev.Name) {
		return false
	}

	w.schedule(ev.Name)
	return true
}

// scheduleTree queues the files of a directory that appeared, e.g. by a move.
func (w *Watcher) scheduleTree(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && hidden(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.wanted(path) {
			w.schedule(path)
		}
		return nil
	})
	if err != nil {
		logger.Logger().Warn().Err(err).Str("path", dir).Msg("Cannot scan new directory")
	}
}

// schedule (re)starts the quiet period for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

// pending is the number of paths waiting out their quiet period.
func (w *Watcher) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

// process ingests path if it exists and removes its vectors otherwise.
func (w *Watcher) process(ctx context.Context, path string) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		n, err := w.docs.RemoveFile(ctx, path)
		if errors.Is(err, domain.ErrNotFound) {
			err = nil
		}
		w.emit(Event{Path: path, Op: OpRemoved, Chunks: n, Err: err})
		return
	}

	result, err := w.docs.IngestFile(ctx, path, driving.FileOptions{Namespace: w.cfg.Namespace})
	ev := Event{Path: path, Op: OpIngested, Err: err}
	if result != nil {
		ev.Chunks = result.ChunksCreated
	}
	w.emit(ev)
}

func (w *Watcher) emit(ev Event) {
	log := logger.Logger()
	if ev.Err != nil {
		log.Warn().Err(ev.Err).Str("path", ev.Path).Str("op", string(ev.Op)).Msg("Watch update failed")
	} else {
		log.Info().Str("path", ev.Path).Str("op", string(ev.Op)).Int("chunks", ev.Chunks).Msg("Watch update")
	}
	if w.cfg.OnEvent != nil {
		w.cfg.OnEvent(ev)
	}
}

// wanted reports whether path has an ingestible extension.
func (w *Watcher) wanted(path string) bool {
	return slices.Contains(w.exts, strings.ToLower(filepath.Ext(path)))
}

// hidden reports whether the base name starts with a dot (dotfiles,
// editor swap files, .git).
func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
