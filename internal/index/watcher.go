package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven store change.
// kind is one of EventCreated, EventUpdated, EventDeleted.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the vault root and processes page
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful store mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale
// pages whose files no longer exist on disk. A changed or removed property
// page retypes all other pages before cb hears about the change.
func (ix *Indexer) Watch(ctx context.Context, vaultRoot string, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	ix.logger.Info("watcher: started", slog.String("root", vaultRoot))

	notify := func(kind, path string) {
		if cb != nil {
			cb(kind, path)
		}
	}

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			ix.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			ix.reconcile(ctx, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						ix.logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						ix.logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Pages may have been written before the watch was added.
					ix.indexNewDir(ctx, vaultRoot, absPath, notify)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}
			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if !ix.indexPath(ctx, "watcher", rel) {
					continue
				}
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				ix.settle(ctx, "watcher", isPropertyPage(rel), notify, change{kind, rel})

			case ev.Op&fsnotify.Remove != 0:
				if delErr := ix.db.DeletePage(ctx, rel); delErr != nil {
					ix.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				ix.logger.Debug("watcher: deleted", slog.String("path", rel))
				ix.settle(ctx, "watcher", isPropertyPage(rel), notify, change{EventDeleted, rel})

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path arrives
				// as a separate Create if it stays within a watched dir.
				if delErr := ix.db.DeletePage(ctx, rel); delErr != nil {
					ix.logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					ix.logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					ix.settle(ctx, "watcher", isPropertyPage(rel), notify, change{EventDeleted, rel})
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			ix.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// change is one store mutation reported to an EventCallback.
type change struct {
	kind string
	path string
}

// settle finishes a batch of store changes. When retype is set every
// non-property page is re-indexed first, so listeners only ever see the
// final typing.
func (ix *Indexer) settle(ctx context.Context, scope string, retype bool, notify EventCallback, changes ...change) {
	if len(changes) == 0 {
		return
	}
	if retype {
		ix.retype(ctx, scope)
	}
	for _, c := range changes {
		notify(c.kind, c.path)
	}
}

// reconcile removes stored pages without a file on disk and indexes
// on-disk pages whose checksum differs from the stored one.
func (ix *Indexer) reconcile(ctx context.Context, notify EventCallback) {
	checksums, err := ix.db.AllChecksums(ctx)
	if err != nil {
		ix.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := ix.vault.List("")
	if err != nil {
		ix.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	var changes []change
	removed, retype := ix.removeStale(ctx, "reconcile", checksums, metas)
	for _, p := range removed {
		changes = append(changes, change{EventDeleted, p})
	}

	props, rest := ix.splitPages("reconcile", metas, checksums)
	for _, m := range props {
		if checksums[m.Path] != m.Checksum && ix.indexPath(ctx, "reconcile", m.Path) {
			changes = append(changes, change{EventCreated, m.Path})
			retype = true
		}
	}
	for _, m := range rest {
		if checksums[m.Path] != m.Checksum && ix.indexPath(ctx, "reconcile", m.Path) {
			changes = append(changes, change{EventCreated, m.Path})
		}
	}
	ix.settle(ctx, "reconcile", retype, notify, changes...)
}

// indexNewDir indexes any pages found in a newly created directory.
func (ix *Indexer) indexNewDir(ctx context.Context, vaultRoot, dirPath string, notify EventCallback) {
	var changes []change
	retype := false
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ix.indexPath(ctx, "watcher", rel) {
			changes = append(changes, change{EventCreated, rel})
			retype = retype || isPropertyPage(rel)
		}
		return nil
	})
	ix.settle(ctx, "watcher", retype, notify, changes...)
}

func isPropertyPage(rel string) bool {
	page, err := storage.PageFromPath(rel)
	return err == nil && page.Namespace() == dataitem.NSProperty
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
