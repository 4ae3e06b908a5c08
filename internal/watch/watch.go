// Package watch rebuilds a book when its sources change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rust-lang/mdBook-sub001/internal/config"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/observability"
)

// DefaultDebounce is the quiet window between the last change and a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// ConfigFile is the book configuration file name watched in the root.
const ConfigFile = "book.toml"

// RebuildFunc is called after a burst of changes settles.
type RebuildFunc func(ctx context.Context) error

// Watcher tracks the source directory, book.toml and the extra watch
// directories of one book.
type Watcher struct {
	root     string
	dirs     []string
	buildDir string
	debounce time.Duration
}

// New derives the watched paths from cfg. Relative paths resolve against
// root.
func New(root string, cfg *config.Config) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, ferrors.FileSystemError(fmt.Sprintf("unable to resolve book root %s", root)).WithCause(err).Build()
	}
	bookCfg, err := cfg.Book()
	if err != nil {
		return nil, err
	}
	buildCfg, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     absRoot,
		dirs:     []string{resolve(absRoot, bookCfg.Src)},
		buildDir: resolve(absRoot, buildCfg.BuildDir),
		debounce: DefaultDebounce,
	}
	for _, d := range buildCfg.ExtraWatchDirs {
		w.dirs = append(w.dirs, resolve(absRoot, d))
	}
	return w, nil
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// WithDebounce sets the quiet window.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Dirs returns the directories watched recursively.
func (w *Watcher) Dirs() []string { return append([]string(nil), w.dirs...) }

// Run watches until ctx is done. Rebuild failures are logged and the
// watch continues. At most one rebuild runs at a time and changes during a
// rebuild queue one more.
func (w *Watcher) Run(ctx context.Context, rebuild RebuildFunc) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.InternalError("unable to create file watcher").WithCause(err).Build()
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.root); err != nil {
		return ferrors.FileSystemError(fmt.Sprintf("unable to watch %s", w.root)).WithCause(err).Build()
	}
	for _, d := range w.dirs {
		if _, err := os.Stat(d); err != nil {
			observability.WarnContext(ctx, "Watch directory does not exist", logfields.Path(d))
			continue
		}
		w.addDirsRecursive(ctx, fsw, d)
	}
	observability.InfoContext(ctx, "Watching for changes", logfields.Path(w.root), logfields.Count(len(w.dirs)))

	deb := newDebouncer(w.debounce)
	defer deb.stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-deb.C:
				observability.InfoContext(ctx, "Change detected; rebuilding book")
				if err := rebuild(ctx); err != nil {
					observability.WarnContext(ctx, "Rebuild failed", logfields.Error(err))
				}
			}
		}
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, ev, deb.trigger)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			observability.WarnContext(ctx, "Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if !w.relevant(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(ctx, fsw, ev.Name)
		}
	}
	observability.DebugContext(ctx, "File change detected", logfields.Path(ev.Name), slogOp(ev.Op))
	trigger()
}

// relevant reports whether a change to path should cause a rebuild.
func (w *Watcher) relevant(path string) bool {
	if shouldIgnoreEvent(path) || within(w.buildDir, path) {
		return false
	}
	for _, d := range w.dirs {
		if within(d, path) {
			return true
		}
	}
	return filepath.Dir(path) == w.root && filepath.Base(path) == ConfigFile
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) addDirsRecursive(ctx context.Context, fsw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path == w.buildDir || (path != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			observability.WarnContext(ctx, "Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for editor and OS scratch files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}

func slogOp(op fsnotify.Op) slog.Attr {
	return slog.String("op", op.String())
}
