package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/semwiki/internal/dataitem"
)

// DefaultPoolSize is the number of mapped resources a Mapper keeps.
const DefaultPoolSize = 500

const auxModifier = "aux"

// ErrUnsupportedDataItem is returned for data items that have no resource
// form.
var ErrUnsupportedDataItem = errors.New("exporter: unsupported data item")

// Store is the value lookup the mapper needs to resolve import
// declarations.
type Store interface {
	PropertyValues(ctx context.Context, subject dataitem.WikiPage, property dataitem.Property) ([]dataitem.DataItem, error)
}

// Mapper turns wiki pages and properties into export resources. Results
// are pooled until Purge; it is safe for concurrent use.
type Mapper struct {
	store  Store
	ns     *Namespaces
	logger *slog.Logger
	pool   *lru.Cache[string, Element]
}

// NewMapper returns a mapper. A non-positive poolSize selects
// DefaultPoolSize.
func NewMapper(store Store, ns *Namespaces, poolSize int, logger *slog.Logger) *Mapper {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	pool, _ := lru.New[string, Element](poolSize)
	return &Mapper{store: store, ns: ns, logger: logger, pool: pool}
}

// Map maps a wiki page or property. aux selects the auxiliary resource of
// the page; it has no effect on subobjects.
func (m *Mapper) Map(ctx context.Context, di dataitem.DataItem, aux bool) (Element, error) {
	switch v := di.(type) {
	case dataitem.WikiPage:
		return m.MapWikiPage(ctx, v, aux)
	case dataitem.Property:
		return m.MapWikiPage(ctx, v.Page(), aux)
	default:
		return Element{}, fmt.Errorf("%w: type %d", ErrUnsupportedDataItem, di.DIType())
	}
}

// MapWikiPage returns the resource for page. The same page and aux flag
// always map to the same element while the store is unchanged.
func (m *Mapper) MapWikiPage(ctx context.Context, page dataitem.WikiPage, aux bool) (Element, error) {
	key := page.Hash()
	if aux {
		key += "#" + auxModifier
	}
	if e, ok := m.pool.Get(key); ok {
		return e, nil
	}

	e, err := m.mapWikiPage(ctx, page, aux)
	if err != nil {
		return Element{}, err
	}
	m.pool.Add(key, e)
	return e, nil
}

// Purge drops all pooled resources. Call it whenever import declarations
// may have changed.
func (m *Mapper) Purge() {
	m.pool.Purge()
}

func (m *Mapper) mapWikiPage(ctx context.Context, page dataitem.WikiPage, aux bool) (Element, error) {
	sub := page.SubobjectName()
	ns := page.Namespace()

	if (ns == dataitem.NSProperty || ns == dataitem.NSCategory) && sub == "" && !aux {
		if e, ok, err := m.importedResource(ctx, page); err != nil || ok {
			return e, err
		}
	}

	localName, nsID := "", NSWiki
	if ns == dataitem.NSProperty {
		localName, nsID = EncodeURI(rawURLEncode(page.DBKey())), NSProperty
	}
	if localName == "" || localName[0] == '-' || ('0' <= localName[0] && localName[0] <= '9') {
		localName, nsID = EncodePage(page), NSWiki
	}

	switch {
	case sub != "":
		localName += "-23" + EncodeURI(rawURLEncode(sub))
	case aux:
		localName += "-23" + auxModifier
	}

	return NewNSResource(localName, m.ns.URI(nsID), nsID, page), nil
}

// importedResource resolves the last import declaration of page. A
// malformed declaration yields an element with empty name and namespace.
func (m *Mapper) importedResource(ctx context.Context, page dataitem.WikiPage) (Element, bool, error) {
	values, err := m.store.PropertyValues(ctx, page, dataitem.MustProperty(dataitem.KeyImport))
	if err != nil {
		return Element{}, false, err
	}
	if len(values) == 0 {
		return Element{}, false, nil
	}

	raw := values[len(values)-1].Serialization()
	iv, err := ParseImportValue(raw)
	if err != nil {
		m.logger.Warn("exporter: malformed import declaration",
			slog.String("page", page.Serialization()),
			slog.String("value", raw),
			slog.String("error", err.Error()),
		)
		return NewNSResource("", "", "", page), true, nil
	}
	return NewNSResource(iv.LocalName, iv.Namespace, iv.NamespaceID, page), true, nil
}
