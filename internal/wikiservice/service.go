// Package wikiservice coordinates the vault, the semantic store, the list
// lookups and the resource mapper for the transport layers.
package wikiservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/starford/semwiki/internal/apperr"
	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/exporter"
	"github.com/starford/semwiki/internal/lookup"
	"github.com/starford/semwiki/internal/models"
	"github.com/starford/semwiki/internal/parser"
	"github.com/starford/semwiki/internal/postproc"
	"github.com/starford/semwiki/internal/sqlstore"
	"github.com/starford/semwiki/internal/storage"
)

// ListQuery is the caller-facing form of lookup request options.
type ListQuery struct {
	Limit      int
	Offset     int
	SortByName bool
	Descending bool
	Prefix     string
	Contains   string
}

// PropertyItem is one row of a property list. Invalid names carry their
// error messages instead of a label.
type PropertyItem struct {
	Name   string   `json:"name"`
	Label  string   `json:"label,omitempty"`
	Count  int      `json:"count"`
	Errors []string `json:"errors,omitempty"`
}

// PropertyList is a lookup result with its provenance.
type PropertyList struct {
	Items     []PropertyItem `json:"items"`
	Hash      string         `json:"hash"`
	Timestamp string         `json:"timestamp"`
	FromCache bool           `json:"from_cache"`
}

// Resource is the export form of a page.
type Resource struct {
	URI           string                 `json:"uri"`
	QName         string                 `json:"qname"`
	Serialization exporter.Serialization `json:"serialization"`
}

// Config holds the service defaults.
type Config struct {
	DefaultPropertyType string
	DefaultLimit        int
}

// Service is the read-side facade.
type Service struct {
	vault  storage.Provider
	db     *sqlstore.Store
	cache  *lookup.Cache
	mapper *exporter.Mapper
	cfg    Config
}

// NewService creates a new wiki service.
func NewService(vault storage.Provider, db *sqlstore.Store, cache *lookup.Cache, mapper *exporter.Mapper, cfg Config) *Service {
	return &Service{vault: vault, db: db, cache: cache, mapper: mapper, cfg: cfg}
}

// Invalidate drops every cached lookup result and pooled resource. It is
// called after each store change.
func (s *Service) Invalidate() {
	s.cache.Purge()
	s.mapper.Purge()
}

// UndeclaredProperties lists properties in use without a declaration page.
func (s *Service) UndeclaredProperties(ctx context.Context, q ListQuery) (*PropertyList, error) {
	opts, err := s.requestOptions(q)
	if err != nil {
		return nil, err
	}
	return run(ctx, s.cache.Wrap(lookup.NewUndeclaredPropertyListLookup(s.db, s.cfg.DefaultPropertyType, opts)))
}

// PropertyUsage lists every used property with its usage count.
func (s *Service) PropertyUsage(ctx context.Context, q ListQuery) (*PropertyList, error) {
	opts, err := s.requestOptions(q)
	if err != nil {
		return nil, err
	}
	return run(ctx, s.cache.Wrap(lookup.NewPropertyUsageListLookup(s.db, opts)))
}

// UnusedProperties lists declared properties that nothing uses.
func (s *Service) UnusedProperties(ctx context.Context, q ListQuery) (*PropertyList, error) {
	opts, err := s.requestOptions(q)
	if err != nil {
		return nil, err
	}
	return run(ctx, s.cache.Wrap(lookup.NewUnusedPropertyListLookup(s.db, opts)))
}

// MapResource returns the export resource of page.
func (s *Service) MapResource(ctx context.Context, page dataitem.WikiPage, aux bool) (*Resource, error) {
	if page.DBKey() == "" {
		return nil, fmt.Errorf("%w: empty title", apperr.ErrInvalidArgument)
	}
	e, err := s.mapper.MapWikiPage(ctx, page, aux)
	if err != nil {
		return nil, err
	}
	return &Resource{URI: e.URI(), QName: e.QName(), Serialization: e.Serialization()}, nil
}

// RenderPage reads a vault page and returns its semantic summary. The
// post-processing marker honours the cookie on r, which may be nil.
func (s *Service) RenderPage(ctx context.Context, path string, r *http.Request) (*models.PageSummary, error) {
	page, err := storage.PageFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidArgument, err)
	}
	data, err := s.vault.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	rev, err := s.db.PageRevision(ctx, page)
	if err != nil {
		return nil, err
	}

	h := postproc.NewHandler(postproc.NewOutput())
	for _, q := range res.Queries {
		h.AddQueryRef(q.ID)
	}

	title := res.Title
	if title == "" {
		title = page.Text()
	}
	return &models.PageSummary{
		Path:        path,
		Title:       title,
		Namespace:   page.Namespace(),
		Revision:    rev,
		Annotations: nonNilSlice(res.Annotations),
		QueryRefs:   h.QueryRefs(),
		PostProc:    h.HTML(page, rev, r),
	}, nil
}

func (s *Service) requestOptions(q ListQuery) (*lookup.RequestOptions, error) {
	opts := lookup.NewRequestOptions()
	opts.Limit = q.Limit
	if opts.Limit == 0 {
		opts.Limit = s.cfg.DefaultLimit
	}
	opts.Offset = q.Offset
	opts.Sort = q.SortByName
	opts.Ascending = !q.Descending
	if q.Prefix != "" {
		opts.AddStringCondition(q.Prefix, lookup.MatchPrefix, false)
	}
	if q.Contains != "" {
		opts.AddStringCondition(q.Contains, lookup.MatchContains, false)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidArgument, err)
	}
	return opts, nil
}

func run(ctx context.Context, l lookup.ListLookup) (*PropertyList, error) {
	entries, err := l.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]PropertyItem, 0, len(entries))
	for _, e := range entries {
		item := PropertyItem{Name: e.Item.Serialization(), Count: e.Count}
		switch v := e.Item.(type) {
		case dataitem.Property:
			item.Label = v.Label()
		case dataitem.Error:
			item.Name = v.Value()
			item.Errors = v.Messages()
		}
		items = append(items, item)
	}
	return &PropertyList{
		Items:     items,
		Hash:      l.Hash(),
		Timestamp: l.Timestamp(),
		FromCache: l.IsFromCache(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
