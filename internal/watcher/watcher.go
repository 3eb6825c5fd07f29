// Package watcher mirrors filesystem activity under a project's document
// roots onto the event broadcaster. It watches every directory inside the
// configured roots, debounces bursts per path, and republishes what remains
// as create, modify, and delete events. Directory creations extend the watch
// instead of publishing; ignored folders and .git never produce events.
// Watch mode in the CLI runs one of these per project; core operations never
// need it.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/orcharddocs/orchard/internal/events"
	"github.com/orcharddocs/orchard/internal/logging"
	"github.com/orcharddocs/orchard/internal/metrics"
	"github.com/orcharddocs/orchard/internal/sandbox"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher follows one repository's document roots.
type Watcher struct {
	repoRoot  string
	bc        *events.Broadcaster
	debounce  time.Duration
	isIgnored func(rel string) bool

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*pendingChange
	closed  bool

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// pendingChange accumulates operations on one path until its debounce timer
// fires.
type pendingChange struct {
	ops   fsnotify.Op
	timer *time.Timer
}

// New starts watching the given roots (repo-relative, "/docs" form) under
// repoRoot and publishes events to bc. isIgnored may be nil; when set it is
// consulted with repo-relative paths and a match suppresses both the watch
// and the events. Close releases everything.
func New(bc *events.Broadcaster, repoRoot string, roots []string, debounce time.Duration, isIgnored func(rel string) bool) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start watcher: %w", err)
	}
	w := &Watcher{
		repoRoot:  repoRoot,
		bc:        bc,
		debounce:  debounce,
		isIgnored: isIgnored,
		fsw:       fsw,
		pending:   make(map[string]*pendingChange),
		closeCh:   make(chan struct{}),
	}
	for _, root := range roots {
		w.watchTree(w.absolute(root))
	}
	w.wg.Add(1)
	go w.loop()
	logging.Debug("watcher started",
		zap.String("repoRoot", repoRoot), zap.Strings("roots", roots))
	return w, nil
}

func (w *Watcher) absolute(rel string) string {
	return filepath.Join(w.repoRoot, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
}

// watchTree adds dir and every directory below it. Walk errors skip the
// entry rather than failing the watcher; a root may be deleted at any time.
func (w *Watcher) watchTree(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Debug("watch walk skip", zap.String("path", p), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		rel := sandbox.RelativeTo(w.repoRoot, p)
		if rel == "" {
			return filepath.SkipDir
		}
		if w.isIgnored != nil && w.isIgnored(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			logging.Debug("watch add failed", zap.String("path", p), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel := sandbox.RelativeTo(w.repoRoot, ev.Name)
	if rel == "" || rel == "/" {
		return
	}
	if hasGitSegment(rel) {
		return
	}
	if w.isIgnored != nil && w.isIgnored(rel) {
		return
	}

	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			// A new directory extends the watch. Its contents may have
			// landed before the watch did, so walk the whole subtree.
			w.watchTree(ev.Name)
			return
		}
	}

	if eventType(ev.Op) == "" {
		return
	}
	w.coalesce(rel, ev.Op)
}

// eventType folds accumulated operations into one published event type.
// Chmod-only activity maps to "" and is dropped.
func eventType(ops fsnotify.Op) string {
	switch {
	case ops.Has(fsnotify.Remove) || ops.Has(fsnotify.Rename):
		return events.EventDelete
	case ops.Has(fsnotify.Create):
		return events.EventCreate
	case ops.Has(fsnotify.Write):
		return events.EventModify
	default:
		return ""
	}
}

func (w *Watcher) coalesce(rel string, op fsnotify.Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if p, ok := w.pending[rel]; ok {
		p.ops |= op
		p.timer.Reset(w.debounce)
		return
	}
	p := &pendingChange{ops: op}
	p.timer = time.AfterFunc(w.debounce, func() { w.fire(rel) })
	w.pending[rel] = p
}

func (w *Watcher) fire(rel string) {
	w.mu.Lock()
	p, ok := w.pending[rel]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, rel)
	ops := p.ops
	w.mu.Unlock()

	typ := eventType(ops)
	if typ == "" {
		return
	}
	var size int64
	if typ != events.EventDelete {
		if info, err := os.Lstat(w.absolute(rel)); err == nil && info.Mode().IsRegular() {
			size = info.Size()
		}
	}
	w.bc.Publish(events.Event{Type: typ, RepoRoot: w.repoRoot, Path: rel, Size: size})
	metrics.RecordWatchEvent(typ)
	logging.Debug("watch event", zap.String("type", typ), zap.String("path", rel))
}

// Close stops the watcher, cancels pending events, and releases the
// underlying notifier. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for rel, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, rel)
	}
	w.mu.Unlock()

	close(w.closeCh)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func hasGitSegment(rel string) bool {
	for _, seg := range strings.Split(strings.TrimPrefix(rel, "/"), "/") {
		if seg == ".git" {
			return true
		}
	}
	return false
}
