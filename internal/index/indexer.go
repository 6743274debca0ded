// Package index keeps the semantic store in step with the vault: pages are
// parsed into annotations, converted into typed facts and written through
// sqlstore.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/starford/semwiki/internal/checksum"
	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/exporter"
	"github.com/starford/semwiki/internal/models"
	"github.com/starford/semwiki/internal/parser"
	"github.com/starford/semwiki/internal/sqlstore"
	"github.com/starford/semwiki/internal/storage"
)

var errOutsidePropertyPage = errors.New("type declaration outside a property page")

// Indexer converts vault pages into facts.
type Indexer struct {
	db          *sqlstore.Store
	vault       storage.Provider
	ns          *exporter.Namespaces
	defaultType string
	logger      *slog.Logger
}

// New returns an indexer. Properties without a declared type are stored as
// defaultType.
func New(db *sqlstore.Store, vault storage.Provider, ns *exporter.Namespaces, defaultType string, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{db: db, vault: vault, ns: ns, defaultType: defaultType, logger: logger}
}

// IndexFile parses data and replaces the stored facts of the page at path.
func (ix *Indexer) IndexFile(ctx context.Context, path string, data []byte) error {
	page, err := storage.PageFromPath(path)
	if err != nil {
		return err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return fmt.Errorf("index: parse %s: %w", path, err)
	}
	facts, err := ix.facts(ctx, page, res.Annotations)
	if err != nil {
		return err
	}
	return ix.db.UpdatePage(ctx, sqlstore.PageData{
		Path:     path,
		Page:     page,
		Checksum: checksum.Sum(data),
		Facts:    facts,
	})
}

// facts types each annotation by its property's declared type. Annotations
// that cannot be stored are logged and skipped.
func (ix *Indexer) facts(ctx context.Context, page dataitem.WikiPage, anns []models.Annotation) ([]sqlstore.Fact, error) {
	types := make(map[string]string)
	out := make([]sqlstore.Fact, 0, len(anns))
	for _, a := range anns {
		subject := page
		if a.Subobject != "" {
			subject = page.WithSubobject(a.Subobject)
		}
		prop, err := dataitem.NewPropertyFromLabel(a.Property)
		if err != nil {
			ix.skip(page, a, err)
			continue
		}

		var value dataitem.DataItem
		switch prop.Key() {
		case dataitem.KeyType:
			if page.Namespace() != dataitem.NSProperty {
				ix.skip(page, a, errOutsidePropertyPage)
				continue
			}
			id, ok := sqlstore.TypeIDFromLabel(a.Value)
			if !ok {
				ix.skip(page, a, fmt.Errorf("unknown type %q", a.Value))
				continue
			}
			value = dataitem.NewBlob(id)
		case dataitem.KeyImport:
			iv, err := ix.ns.ResolveImport(a.Value)
			if err != nil {
				ix.skip(page, a, err)
				continue
			}
			value = dataitem.NewBlob(iv.String())
		default:
			typeID, ok := types[prop.Key()]
			if !ok {
				typeID, err = ix.typeOf(ctx, prop)
				if err != nil {
					return nil, err
				}
				types[prop.Key()] = typeID
			}
			value = ix.typedValue(typeID, a.Value)
		}
		out = append(out, sqlstore.Fact{Subject: subject, Property: prop.Key(), Value: value})
	}
	return out, nil
}

func (ix *Indexer) typeOf(ctx context.Context, prop dataitem.Property) (string, error) {
	id, ok, err := ix.db.DeclaredType(ctx, prop)
	if err != nil {
		return "", fmt.Errorf("index: declared type of %s: %w", prop.Key(), err)
	}
	if !ok {
		return ix.defaultType, nil
	}
	return id, nil
}

func (ix *Indexer) typedValue(typeID, raw string) dataitem.DataItem {
	switch ix.db.FindTypeTableID(typeID) {
	case sqlstore.TableWikiPage:
		return dataitem.NewWikiPageFromText(raw, dataitem.NSMain)
	case sqlstore.TableNumber:
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return dataitem.NewNumber(f)
		}
	}
	return dataitem.NewBlob(raw)
}

func (ix *Indexer) skip(page dataitem.WikiPage, a models.Annotation, err error) {
	ix.logger.Warn("index: annotation skipped",
		slog.String("page", page.Serialization()),
		slog.String("property", a.Property),
		slog.String("value", a.Value),
		slog.String("error", err.Error()),
	)
}
