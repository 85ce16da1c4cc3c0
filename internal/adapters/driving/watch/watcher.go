// Package watch ingests documents dropped into a directory. Each new or
// rewritten file is handed to the ingestion service once writes settle, so a
// shared folder can act as an upload queue.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
	"github.com/custodia-labs/kacey/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// ErrClosed is returned by Run once the watcher has been closed.
var ErrClosed = errors.New("watch: watcher is closed")

// IngestFunc receives the outcome of every ingestion the watcher performs.
type IngestFunc func(path string, result *domain.IngestResult, err error)

// Option configures a Watcher.
type Option func(*Watcher)

// WithScope tags every ingested artifact with scopeID.
func WithScope(scopeID string) Option {
	return func(w *Watcher) { w.scopeID = scopeID }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithInitialScan ingests files already present in the directory on start.
func WithInitialScan() Option {
	return func(w *Watcher) { w.initialScan = true }
}

// WithOnIngest registers a callback for ingestion outcomes.
func WithOnIngest(fn IngestFunc) Option {
	return func(w *Watcher) { w.onIngest = fn }
}

// Watcher feeds files from a directory into an IngestionService.
type Watcher struct {
	ingestion   driving.IngestionService
	dir         string
	scopeID     string
	debounce    time.Duration
	initialScan bool
	onIngest    IngestFunc

	ready chan struct{}

	mu      sync.Mutex
	closed  bool
	pending map[string]*debounced
}

// debounced is one armed timer. Entries are compared by identity so a timer
// that fired after being replaced cannot release its successor.
type debounced struct {
	timer *time.Timer
}

// New creates a watcher for dir. It does not start watching until Run.
func New(ingestion driving.IngestionService, dir string, opts ...Option) *Watcher {
	w := &Watcher{
		ingestion: ingestion,
		dir:       dir,
		debounce:  DefaultDebounce,
		ready:     make(chan struct{}),
		pending:   make(map[string]*debounced),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ready is closed once the directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the directory until ctx is cancelled. Files are ingested one
// at a time in the order they settle.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.mu.Unlock()

	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch directory %s: not a directory", w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	settled := make(chan string, 16)
	defer w.stopTimers()

	if w.initialScan {
		if err := w.scan(ctx); err != nil {
			return err
		}
	}

	logger.Info("Watching %s for documents", w.dir)
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if path := w.handleEvent(event); path != "" {
				w.schedule(ctx, path, settled)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)

		case path := <-settled:
			w.ingest(ctx, path)
		}
	}
}

// Close stops pending ingestions. A closed watcher cannot be run again.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.stopTimers()
	return nil
}

// handleEvent returns the path to ingest for event, or "" when the event
// does not describe a visible regular file being created or written.
func (w *Watcher) handleEvent(event fsnotify.Event) string {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return ""
	}
	if isHidden(filepath.Base(event.Name)) {
		return ""
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}
	return event.Name
}

// schedule (re)arms the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, settled chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if prev, ok := w.pending[path]; ok {
		prev.timer.Stop()
	}
	entry := &debounced{}
	entry.timer = time.AfterFunc(w.debounce, func() {
		if !w.release(path, entry) {
			return
		}
		select {
		case settled <- path:
		case <-ctx.Done():
		}
	})
	w.pending[path] = entry
}

// release removes entry from pending and reports whether it was still the
// current timer for path.
func (w *Watcher) release(path string, entry *debounced) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending[path] != entry {
		return false
	}
	delete(w.pending, path)
	return true
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, entry := range w.pending {
		entry.timer.Stop()
		delete(w.pending, path)
	}
}

// scan ingests every visible regular file directly inside the directory.
func (w *Watcher) scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !entry.Type().IsRegular() || isHidden(entry.Name()) {
			continue
		}
		w.ingest(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		// Removed before it settled.
		logger.Debug("Skipping %s: %v", path, err)
		return
	}

	filename := filepath.Base(path)
	result, err := w.ingestion.Ingest(ctx, domain.IngestRequest{
		Content:  content,
		MIMEType: domain.MIMETypeFor(filename),
		Filename: filename,
		ScopeID:  w.scopeID,
	})
	switch {
	case err != nil:
		logger.Warn("Ingesting %s: %v", filename, err)
	case result.Unchanged:
		logger.Debug("%s unchanged", filename)
	default:
		logger.Info("Ingested %s: %d chunks, %d embedded", filename, result.Chunks, result.Embedded)
	}

	if w.onIngest != nil {
		w.onIngest(path, result, err)
	}
}

// isHidden reports whether name is a dotfile or an editor temp file.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") || strings.HasSuffix(name, "~")
}
