// Package filesystem follows a local folder and reports documents that
// appear, change or disappear in it.
//
// Only files directly inside the folder are considered. Documents are
// identified by base name, so subdirectories would allow collisions.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultDebounce is how long a file must be quiet before its change is
// reported. Editors and copies often produce several events per save.
const DefaultDebounce = 500 * time.Millisecond

// ChangeType classifies a change to a watched file.
type ChangeType int

const (
	// ChangeCreated is a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated is a modified file.
	ChangeUpdated

	// ChangeDeleted is a removed or renamed-away file.
	ChangeDeleted
)

// String returns the string representation.
func (t ChangeType) String() string {
	switch t {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one reported file change.
type Change struct {
	Type ChangeType

	// Path is the full path of the file.
	Path string

	// Name is the base name, used as the document filename.
	Name string
}

// Watcher reports document changes in one folder.
type Watcher struct {
	rootPath string
	debounce time.Duration

	mu       sync.Mutex
	watchers []*fsnotify.Watcher
	closed   bool
}

// New creates a watcher for rootPath. The path is checked when Scan or
// Watch is called.
func New(rootPath string) *Watcher {
	return &Watcher{
		rootPath: rootPath,
		debounce: DefaultDebounce,
	}
}

// SetDebounce sets the quiet period before a change is reported.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Root returns the watched folder.
func (w *Watcher) Root() string {
	return w.rootPath
}

// Scan reports every document already in the folder as ChangeCreated, in
// name order. The error channel receives at most one error and is closed
// after the change channel.
func (w *Watcher) Scan(ctx context.Context) (<-chan Change, <-chan error) {
	changes := make(chan Change)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(changes)

		entries, err := os.ReadDir(w.rootPath)
		if err != nil {
			errs <- fmt.Errorf("root path error: %w", err)
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				errs <- err
				return
			}
			if !e.Type().IsRegular() || ignored(e.Name()) {
				continue
			}
			c := Change{
				Type: ChangeCreated,
				Path: filepath.Join(w.rootPath, e.Name()),
				Name: e.Name(),
			}
			select {
			case changes <- c:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return changes, errs
}

// Watch reports changes until ctx is cancelled or the watcher is closed,
// then closes the channel. Bursts of events for one file within the
// debounce period are merged into a single change.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, errors.New("watcher is closed")
	}

	info, err := os.Stat(w.rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.rootPath)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(w.rootPath); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", w.rootPath, err)
	}
	w.watchers = append(w.watchers, fw)

	out := make(chan Change)
	go w.run(ctx, fw, w.debounce, out)
	return out, nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, debounce time.Duration, out chan<- Change) {
	defer close(out)
	defer fw.Close()

	pending := make(map[string]Change)
	var order []string
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			c := w.handleFsEvent(event)
			if c == nil {
				continue
			}
			prev, seen := pending[c.Path]
			if !seen {
				order = append(order, c.Path)
			}
			pending[c.Path] = merge(prev, *c, seen)
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch %s: %v", w.rootPath, err)

		case <-timer.C:
			for _, path := range order {
				select {
				case out <- pending[path]:
				case <-ctx.Done():
					return
				}
			}
			clear(pending)
			order = order[:0]
		}
	}
}

// merge folds a new change into one already pending for the same file.
// A file created and then written is still new.
func merge(prev, next Change, seen bool) Change {
	if seen && prev.Type == ChangeCreated && next.Type == ChangeUpdated {
		return prev
	}
	return next
}

// handleFsEvent converts an fsnotify event into a change, or nil when the
// event does not concern a document.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	name := filepath.Base(event.Name)
	if ignored(name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name, Name: name}

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		typ := ChangeUpdated
		if event.Has(fsnotify.Create) {
			typ = ChangeCreated
		}
		return &Change{Type: typ, Path: event.Name, Name: name}
	}

	return nil
}

// ignored reports whether a file name is hidden or an editor artefact.
func ignored(name string) bool {
	switch {
	case strings.HasPrefix(name, "."):
		return true
	case strings.HasPrefix(name, "~$"): // office lock files
		return true
	case strings.HasSuffix(name, "~"), strings.HasSuffix(name, ".swp"), strings.HasSuffix(name, ".tmp"):
		return true
	}
	return false
}

// Close stops every active watch. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	for _, fw := range w.watchers {
		if err := fw.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	w.watchers = nil
	return errors.Join(errs...)
}
