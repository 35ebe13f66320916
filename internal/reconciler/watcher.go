package reconciler

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// renamePairWindow is how long a Rename waits for its companion Create
// before being treated as a plain deletion (a move out of the workspace).
const renamePairWindow = 500 * time.Millisecond

// pendingRename remembers the source side of a rename until the destination
// shows up as a Create event.
type pendingRename struct {
	src string
	at  time.Time
}

// Watch runs an fsnotify watcher over the workspace root and drives the
// reconciler until ctx is cancelled. Events are handled strictly one at a
// time; the handling of an event runs to completion before the next is read.
//
// fsnotify reports a rename as a Rename on the old path followed by a Create
// on the new one, so the loop pairs them into a single Moved transition. New
// directories are added to the watch list at runtime and their existing
// documents swept.
func (r *Reconciler) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := r.ws.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	r.logger.Info("watcher: started", slog.String("root", root))

	var pending *pendingRename
	var fallbackTimer *time.Timer
	var fallbackCh <-chan time.Time

	armFallback := func() {
		if fallbackTimer == nil {
			fallbackTimer = time.NewTimer(renamePairWindow)
			fallbackCh = fallbackTimer.C
		} else {
			fallbackTimer.Reset(renamePairWindow)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if fallbackTimer != nil {
				fallbackTimer.Stop()
			}
			r.logger.Info("watcher: stopped")
			return nil

		case <-fallbackCh:
			// No Create claimed the rename source: the document left the
			// workspace, which is a deletion from our point of view.
			if pending != nil {
				_ = r.HandleDeleted(pending.src)
				pending = nil
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories: watch them and sweep documents they already
			// contain (moves of whole folders arrive this way).
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						r.logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					r.sweepDir(absPath)
					continue
				}
			}

			if !strings.HasSuffix(absPath, r.cfg.Filter.Extension) {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				if pending != nil && time.Since(pending.at) < renamePairWindow {
					src := pending.src
					pending = nil
					if fallbackTimer != nil {
						fallbackTimer.Stop()
					}
					_ = r.HandleMoved(src, absPath)
					continue
				}
				_ = r.HandleCreated(absPath)

			case ev.Op&fsnotify.Write != 0:
				r.HandleModified(absPath)

			case ev.Op&fsnotify.Remove != 0:
				_ = r.HandleDeleted(absPath)

			case ev.Op&fsnotify.Rename != 0:
				if pending != nil {
					// A second rename before the first resolved: the earlier
					// source is gone for good.
					_ = r.HandleDeleted(pending.src)
				}
				pending = &pendingRename{src: absPath, at: time.Now()}
				armFallback()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// Sweep runs a create pass over every document in the workspace, picking up
// documents written while no watcher was running. Also backs the one-shot
// indexing command.
func (r *Reconciler) Sweep() {
	r.sweepDir(r.ws.Root())
}

// sweepDir ensures every document already present under dir, e.g. after a
// directory is moved into the workspace.
func (r *Reconciler) sweepDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ok, _ := r.cfg.Filter.Allow(path); !ok {
			return nil
		}
		if hErr := r.HandleCreated(path); hErr != nil {
			r.logger.Warn("watcher: sweep failed", slog.String("path", path), slog.String("error", hErr.Error()))
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
