package build

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/inkpress/internal/index"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
)

// DebounceWindow is the quiet period before queued changes are applied.
const DebounceWindow = 300 * time.Millisecond

// Dev writes the initial generated modules and index, then applies content
// changes until ctx is canceled.
func Dev(ctx context.Context, b *Builder) error {
	in := NewIncremental(b)
	state, eff, err := in.Initial(ctx)
	if err != nil {
		return err
	}
	if err := in.WriteEffects(state, eff); err != nil {
		return err
	}
	head := ""
	if h, ok := b.History.(interface {
		Head(context.Context) (string, error)
	}); ok {
		head, _ = h.Head(ctx)
	}
	if err := index.WriteContext(ContextPath(b.Config), b.Config, index.ResolveSHA(head)); err != nil {
		return err
	}
	b.Logger.Info("Development state ready",
		logfields.Count(len(state.Entries)),
		slog.Int("pages", len(state.Pages)),
		slog.Int("routes", len(state.Routes)))

	watcher, err := setupFileWatcher(b.Config.ContentDir(), b.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	w := &devWorker{in: in, state: state, logger: b.Logger}
	return w.loop(ctx, watcher)
}

// setupFileWatcher creates and configures the filesystem watcher.
func setupFileWatcher(root string, logger *slog.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := addDirsRecursive(watcher, root, logger); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for editor temp files and hidden files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".tmp")
}

func opFor(ev fsnotify.Event) Op {
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		return OpRemove
	}
	return OpWrite
}

// devWorker owns the development state. Changes are applied one at a time.
type devWorker struct {
	in     *Incremental
	state  State
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]Op
	timer   *time.Timer
}

func (w *devWorker) queue(ch Change, ready chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		w.pending = make(map[string]Op)
	}
	w.pending[ch.Path] = ch.Op
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(DebounceWindow, func() {
		select {
		case ready <- struct{}{}:
		default:
		}
	})
}

func (w *devWorker) drain() []Change {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Change, 0, len(w.pending))
	for _, p := range slices.Sorted(maps.Keys(w.pending)) {
		out = append(out, Change{Path: p, Op: w.pending[p]})
	}
	w.pending = nil
	return out
}

func (w *devWorker) apply(ctx context.Context, changes []Change) {
	for _, ch := range changes {
		next, eff, err := w.in.Apply(ctx, w.state, ch)
		if err != nil {
			w.logger.Warn("Change not applied", logfields.Path(ch.Path), logfields.Op(string(ch.Op)), logfields.Error(err))
			continue
		}
		if eff.Empty() {
			continue
		}
		if err := w.in.WriteEffects(next, eff); err != nil {
			w.logger.Warn("Could not write generated output", logfields.Path(ch.Path), logfields.Error(err))
			continue
		}
		w.state = next
		w.logger.Info("Applied change",
			logfields.Path(ch.Path),
			logfields.Op(string(ch.Op)),
			slog.Int("pages", len(next.Pages)))
	}
}

// enterDir watches a directory that appeared under the content root and
// queues the files it already holds.
func (w *devWorker) enterDir(watcher *fsnotify.Watcher, dir string, ready chan<- struct{}) {
	queued := 0
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && shouldIgnoreEvent(path) {
				return filepath.SkipDir
			}
			if err := watcher.Add(path); err != nil {
				w.logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
			return nil
		}
		if shouldIgnoreEvent(path) {
			return nil
		}
		w.queue(Change{Path: path, Op: OpWrite}, ready)
		queued++
		return nil
	})
	w.logger.Debug("Directory added", logfields.Path(dir), logfields.Count(queued))
}

func (w *devWorker) loop(ctx context.Context, watcher *fsnotify.Watcher) error {
	ready := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if shouldIgnoreEvent(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					w.enterDir(watcher, ev.Name, ready)
					continue
				}
			}
			w.logger.Debug("File change detected", logfields.Path(ev.Name), logfields.Op(ev.Op.String()))
			w.queue(Change{Path: ev.Name, Op: opFor(ev)}, ready)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		case <-ready:
			w.apply(ctx, w.drain())
		}
	}
}
