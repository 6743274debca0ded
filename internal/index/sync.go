package index

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/starford/semwiki/internal/models"
	"github.com/starford/semwiki/internal/sqlstore"
	"github.com/starford/semwiki/internal/storage"
)

// Sync walks the vault and brings the store up to date:
//   - pages removed from disk are deleted from the store
//   - property pages are indexed next so their type declarations apply
//   - new/changed pages are parsed and written
//   - when any property page changed or went away, every other page is retyped
func (ix *Indexer) Sync(ctx context.Context) error {
	metas, err := ix.vault.List("")
	if err != nil {
		return err
	}
	checksums, err := ix.db.AllChecksums(ctx)
	if err != nil {
		return err
	}

	_, retype := ix.removeStale(ctx, "sync", checksums, metas)

	props, rest := ix.splitPages("sync", metas, checksums)
	for _, m := range props {
		if checksums[m.Path] != m.Checksum && ix.indexPath(ctx, "sync", m.Path) {
			retype = true
		}
	}
	for _, m := range rest {
		if retype || checksums[m.Path] != m.Checksum {
			ix.indexPath(ctx, "sync", m.Path)
		}
	}
	return nil
}

// removeStale deletes stored pages that have no file in metas and drops
// them from stored. retype reports whether a property page was removed.
func (ix *Indexer) removeStale(ctx context.Context, scope string, stored map[string]string, metas []models.PageMetadata) (removed []string, retype bool) {
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
	}
	paths := make([]string, 0, len(stored))
	for p := range stored {
		if _, ok := disk[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := ix.db.DeletePage(ctx, p); err != nil {
			ix.logger.Warn(scope+": delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		ix.logger.Debug(scope+": removed stale", slog.String("path", p))
		delete(stored, p)
		removed = append(removed, p)
		if isPropertyPage(p) {
			retype = true
		}
	}
	return removed, retype
}

// retype re-indexes every non-property page so that changed type
// declarations take effect.
func (ix *Indexer) retype(ctx context.Context, scope string) {
	metas, err := ix.vault.List("")
	if err != nil {
		ix.logger.Warn(scope+": list failed", slog.String("error", err.Error()))
		return
	}
	stored, err := ix.db.AllChecksums(ctx)
	if err != nil {
		ix.logger.Warn(scope+": all checksums failed", slog.String("error", err.Error()))
		return
	}
	_, rest := ix.splitPages(scope, metas, stored)
	for _, m := range rest {
		ix.indexPath(ctx, scope, m.Path)
	}
}

// indexPath reads and indexes one page, logging failures under scope.
func (ix *Indexer) indexPath(ctx context.Context, scope, path string) bool {
	data, err := ix.vault.Read(path)
	if err != nil {
		ix.logger.Warn(scope+": read failed", slog.String("path", path), slog.String("error", err.Error()))
		return false
	}
	err = ix.IndexFile(ctx, path, data)
	switch {
	case errors.Is(err, sqlstore.ErrDuplicatePage):
		ix.logger.Warn(scope+": duplicate page skipped", slog.String("path", path), slog.String("error", err.Error()))
		return false
	case err != nil:
		ix.logger.Warn(scope+": index failed", slog.String("path", path), slog.String("error", err.Error()))
		return false
	}
	ix.logger.Debug(scope+": indexed", slog.String("path", path))
	return true
}

// splitPages separates property pages from the rest, each sorted by path.
// Paths that name no page are dropped. When several files name the same
// page ("Foo bar.md" and "Foo_bar.md") only one is kept: the path already
// in stored, else the first by path.
func (ix *Indexer) splitPages(scope string, metas []models.PageMetadata, stored map[string]string) (props, rest []models.PageMetadata) {
	sorted := append([]models.PageMetadata(nil), metas...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	chosen := make(map[string]models.PageMetadata, len(sorted))
	keys := make([]string, 0, len(sorted))
	for _, m := range sorted {
		page, err := storage.PageFromPath(m.Path)
		if err != nil {
			continue
		}
		key := page.Hash()
		prev, dup := chosen[key]
		if !dup {
			chosen[key] = m
			keys = append(keys, key)
			continue
		}
		keep, drop := prev, m
		if _, owned := stored[m.Path]; owned {
			keep, drop = m, prev
		}
		chosen[key] = keep
		ix.logger.Warn(scope+": duplicate page skipped",
			slog.String("path", drop.Path),
			slog.String("page", key),
			slog.String("indexed_from", keep.Path),
		)
	}

	for _, key := range keys {
		m := chosen[key]
		if isPropertyPage(m.Path) {
			props = append(props, m)
		} else {
			rest = append(rest, m)
		}
	}
	byPath := func(s []models.PageMetadata) {
		sort.Slice(s, func(i, j int) bool { return s[i].Path < s[j].Path })
	}
	byPath(props)
	byPath(rest)
	return props, rest
}
