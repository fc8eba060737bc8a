// Package watcher watches model directories with fsnotify and reports each
// new checkpoint once its files stop changing.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 2 * time.Second

// DefaultTriggers are the file names and extensions whose changes mark a
// checkpoint write.
var DefaultTriggers = []string{".npy", "params.json"}

// Watcher watches root directories and calls onCheckpoint with the model
// directory whose files changed, after writes to it have been quiet for the
// debounce interval.
type Watcher struct {
	roots        []string
	triggers     []string
	recursive    bool
	onCheckpoint func(dir string)
	debounce     time.Duration
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	debounceMap  map[string]*time.Timer
	rootPaths    map[string][]string // root -> list of watched paths (dirs we added)
	done         chan struct{}
	started      bool
	stopOnce     sync.Once
	logger       *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a directory must be quiet before it is reported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRecursive also watches subdirectories, so each run directory under a
// root is reported separately.
func WithRecursive(recursive bool) WatcherOption {
	return func(w *Watcher) { w.recursive = recursive }
}

// WithTriggers replaces DefaultTriggers. Entries starting with "." match
// extensions; others match whole file names. Empty matches every file.
func WithTriggers(triggers ...string) WatcherOption {
	return func(w *Watcher) { w.triggers = triggers }
}

// NewWatcher creates a watcher over roots.
func NewWatcher(roots []string, onCheckpoint func(dir string), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		roots:        roots,
		triggers:     DefaultTriggers,
		onCheckpoint: onCheckpoint,
		debounce:     defaultDebounce,
		debounceMap:  make(map[string]*time.Timer),
		rootPaths:    make(map[string][]string),
		done:         make(chan struct{}),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.logger.Debug("watcher starting",
		zap.Strings("roots", w.roots),
		zap.Strings("triggers", w.triggers),
		zap.Bool("recursive", w.recursive),
		zap.Duration("debounce", w.debounce))
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write), ev.Has(fsnotify.Rename):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if err == nil && w.matchTrigger(path) {
			w.debounceCheckpoint(filepath.Dir(path))
		}
	case ev.Has(fsnotify.Remove):
		w.cancelDebounce(path)
	}
}

// handleNewDirectory watches a directory created (or moved) under a root
// and reports it if it already holds checkpoint files.
func (w *Watcher) handleNewDirectory(dirPath string) {
	w.mu.Lock()
	recursive := w.recursive
	watcher := w.watcher
	w.mu.Unlock()

	if watcher == nil || !recursive {
		return
	}
	filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
			} else {
				w.logger.Debug("watcher added new directory", zap.String("path", path))
			}
		}
		return nil
	})
	w.scanDirectory(dirPath, w.debounceCheckpoint)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	clean := filepath.Clean(path)
	for _, root := range roots {
		rootClean := filepath.Clean(root)
		if rootClean == clean || inDir(rootClean, clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) matchTrigger(path string) bool {
	return matchTrigger(path, w.triggers)
}

func matchTrigger(path string, triggers []string) bool {
	if len(triggers) == 0 {
		return true
	}
	base := strings.ToLower(filepath.Base(path))
	ext := strings.ToLower(filepath.Ext(path))
	for _, t := range triggers {
		t = strings.ToLower(t)
		if strings.HasPrefix(t, ".") {
			if t == ext {
				return true
			}
		} else if t == base {
			return true
		}
	}
	return false
}

// debounceCheckpoint (re)arms the timer of dir; a checkpoint is a burst of
// array writes, so only the last one fires.
func (w *Watcher) debounceCheckpoint(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.debounceMap[dir]; ok {
		t.Stop()
	}
	t := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, dir)
		onCheckpoint := w.onCheckpoint
		w.mu.Unlock()
		w.logger.Debug("watcher reporting checkpoint (debounced)", zap.String("dir", dir))
		if onCheckpoint != nil {
			onCheckpoint(dir)
		}
	})
	w.debounceMap[dir] = t
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// AddDirectory adds a root directory to watch and optionally reports the
// checkpoints already inside it.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	for _, r := range w.roots {
		if filepath.Clean(r) == filepath.Clean(abs) {
			return nil
		}
	}
	if err := w.addRootLocked(abs); err != nil {
		return err
	}
	w.roots = append(w.roots, abs)
	w.logger.Debug("watcher directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting && w.onCheckpoint != nil {
		go w.scanDirectory(abs, w.onCheckpoint)
	}
	return nil
}

// addRootLocked creates root when missing, since training may not have
// written its first checkpoint yet.
func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	var paths []string
	if w.recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if err := w.watcher.Add(path); err != nil {
				return err
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		if err := w.watcher.Add(root); err != nil {
			return err
		}
		paths = append(paths, root)
	}
	w.rootPaths[root] = paths
	return nil
}

// scanDirectory calls fn once for every directory under root (root
// included, subdirectories only when recursive) that holds a trigger file.
func (w *Watcher) scanDirectory(root string, fn func(dir string)) {
	w.mu.Lock()
	triggers := append([]string(nil), w.triggers...)
	recursive := w.recursive
	w.mu.Unlock()
	w.logger.Debug("watcher scanning directory", zap.String("root", root))

	seen := make(map[string]bool)
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		dir := filepath.Dir(path)
		if !seen[dir] && matchTrigger(path, triggers) {
			seen[dir] = true
			fn(dir)
		}
		return nil
	})
}

// RemoveDirectory stops watching the given root. Pending reports for its
// directories still fire.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	idx := -1
	for i, r := range w.roots {
		if filepath.Clean(r) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for _, p := range w.rootPaths[abs] {
		_ = w.watcher.Remove(p)
	}
	delete(w.rootPaths, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	w.logger.Debug("watcher directory removed", zap.String("path", abs))
	return nil
}

// Directories returns a copy of the current watched root directories.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExisting reports every checkpoint already present under the watched
// roots, synchronously. Call it after Start to evaluate models written
// before the watcher started.
func (w *Watcher) SyncExisting() {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	onCheckpoint := w.onCheckpoint
	w.mu.Unlock()
	if onCheckpoint == nil {
		return
	}
	for _, root := range roots {
		w.scanDirectory(root, onCheckpoint)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
