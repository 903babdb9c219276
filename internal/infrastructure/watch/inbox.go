package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HandlerFunc processes one settled inbox file.
type HandlerFunc func(ctx context.Context, path string) error

// Option configures an Inbox.
type Option func(*Inbox)

// WithDebounce sets how long a file must stay unchanged before it is handled.
func WithDebounce(d time.Duration) Option {
	return func(in *Inbox) { in.debounce = d }
}

// WithFilter replaces the default *.txt / *.md filter.
func WithFilter(f *PatternFilter) Option {
	return func(in *Inbox) { in.filter = f }
}

// WithExisting handles files already present when Run starts.
func WithExisting() Option {
	return func(in *Inbox) { in.existing = true }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(in *Inbox) { in.logger = l }
}

// Inbox watches a single directory and hands every new or rewritten
// document to a handler once it has settled.
type Inbox struct {
	dir      string
	handler  HandlerFunc
	debounce time.Duration
	filter   *PatternFilter
	existing bool
	logger   *slog.Logger

	mu   sync.Mutex
	seen map[string]fileStamp
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// NewInbox creates an inbox watcher for dir.
func NewInbox(dir string, handler HandlerFunc, opts ...Option) *Inbox {
	in := &Inbox{
		dir:      dir,
		handler:  handler,
		debounce: 500 * time.Millisecond,
		filter:   NewPatternFilter(nil, nil),
		logger:   slog.Default(),
		seen:     make(map[string]fileStamp),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Run blocks until ctx is canceled. In-flight handlers finish before it returns.
func (in *Inbox) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(in.dir); err != nil {
		return fmt.Errorf("watch %s: %w", in.dir, err)
	}

	debouncer := NewDebouncer(in.debounce, func(path string) {
		in.process(ctx, path)
	})
	defer debouncer.Stop()

	if in.existing {
		for _, path := range in.existingFiles() {
			debouncer.Trigger(path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !in.filter.Matches(event.Name) {
				continue
			}
			debouncer.Trigger(event.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (in *Inbox) existingFiles() []string {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.logger.Warn("list inbox", "dir", in.dir, "error", err)
		return nil
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !in.filter.Matches(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(in.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths
}

// process runs the handler unless the file is gone or unchanged since the last run.
func (in *Inbox) process(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}

	in.mu.Lock()
	if prev, ok := in.seen[path]; ok && prev == stamp {
		in.mu.Unlock()
		return
	}
	in.seen[path] = stamp
	in.mu.Unlock()

	in.logger.Info("inbox document ready", "path", path, "document_id", DocumentID(path))
	if err := in.handler(ctx, path); err != nil {
		in.logger.Warn("inbox document failed", "path", path, "error", err)
	}
}
