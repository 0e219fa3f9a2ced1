package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/deepwiki/internal/logfields"
	"git.home.luguber.info/inful/deepwiki/internal/scan"
)

// TreeWatcher watches a source tree recursively and reports changes as
// regeneration triggers. New directories are added to the watch set as they
// appear; the exclusion rules match the scanner's.
type TreeWatcher struct {
	root    string
	exclude string // absolute output dir, never watched
	watcher *fsnotify.Watcher
	changes chan string
}

// NewTreeWatcher creates a watcher rooted at root. outputDir is excluded so
// generated pages never retrigger a run.
func NewTreeWatcher(root, outputDir string) (*TreeWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}

	tw := &TreeWatcher{root: absRoot, exclude: absOut, watcher: w, changes: make(chan string, 64)}
	if err := tw.addRecursive(absRoot); err != nil {
		w.Close()
		return nil, err
	}
	return tw, nil
}

// Changes delivers the paths of changed files, unfiltered by debounce.
func (tw *TreeWatcher) Changes() <-chan string { return tw.changes }

// Run pumps file system events until the context is canceled.
func (tw *TreeWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			tw.handle(event)
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

// Close releases the underlying watcher.
func (tw *TreeWatcher) Close() error { return tw.watcher.Close() }

func (tw *TreeWatcher) handle(event fsnotify.Event) {
	if tw.excluded(event.Name) {
		return
	}

	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := tw.addRecursive(event.Name); err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		select {
		case tw.changes <- event.Name:
		default:
			// Channel full: a trigger is already guaranteed, drop the path.
		}
	}
}

func (tw *TreeWatcher) excluded(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	if abs == tw.exclude || strings.HasPrefix(abs, tw.exclude+string(filepath.Separator)) {
		return true
	}
	rel, err := filepath.Rel(tw.root, abs)
	if err != nil {
		return true
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg != "." && seg != ".." && scan.SkippedDir(seg) {
			return true
		}
	}
	return false
}

func (tw *TreeWatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && scan.SkippedDir(d.Name()) {
			return filepath.SkipDir
		}
		if tw.excluded(path) {
			return filepath.SkipDir
		}
		if err := tw.watcher.Add(path); err != nil {
			slog.Warn("Failed to add watch", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}
