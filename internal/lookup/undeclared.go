package lookup

import (
	"context"
	"fmt"

	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/sqlstore"
)

const kindUndeclared = "UndeclaredPropertyListLookup"

// UndeclaredPropertyListLookup lists properties that hold values in the
// table of the default property type but have no declaration page.
type UndeclaredPropertyListLookup struct {
	clock
	store               Store
	defaultPropertyType string
	opts                *RequestOptions
}

// NewUndeclaredPropertyListLookup returns a lookup over store. opts may be
// nil here, but Lookup then fails with ErrMissingRequestOptions.
func NewUndeclaredPropertyListLookup(store Store, defaultPropertyType string, opts *RequestOptions) *UndeclaredPropertyListLookup {
	return &UndeclaredPropertyListLookup{
		clock:               newClock(),
		store:               store,
		defaultPropertyType: defaultPropertyType,
		opts:                opts.Clone(),
	}
}

// Lookup returns (property, usage count) pairs in store order. Names that
// fail title validation come back as error markers.
func (l *UndeclaredPropertyListLookup) Lookup(ctx context.Context) ([]Entry, error) {
	if l.opts == nil {
		return nil, ErrMissingRequestOptions
	}

	tableID := l.store.FindTypeTableID(l.defaultPropertyType)
	def, ok := l.store.PropertyTables()[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: %q for type %q", ErrUnknownPropertyTable, tableID, l.defaultPropertyType)
	}
	l.touch()

	// A fixed table holds a single known property.
	if def.IsFixedPropertyTable() {
		return []Entry{}, nil
	}

	conds := append([]sqlstore.Condition{
		{Expr: "pg.title IS NULL"},
		{Expr: "o.smw_namespace = ?", Args: []any{dataitem.NSProperty}},
	}, l.opts.conditions("o.smw_title")...)

	joins := []sqlstore.Join{
		{Kind: "INNER", Table: "smw_object_ids AS o", On: "o.smw_id = p.p_id"},
		{Kind: "LEFT", Table: "pages AS pg", On: "pg.namespace = ? AND pg.title = o.smw_title", Args: []any{dataitem.NSProperty}},
	}

	rows, err := l.store.Connection(sqlstore.ConnRead).Select(ctx,
		def.Name+" AS p",
		[]string{"o.smw_title AS name", "COUNT(*) AS count"},
		conds,
		l.opts.selectOptions(joins, "o.smw_title", l.opts.orderBy("name", "count")),
	)
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

// IsFromCache is always false; see Cache.
func (l *UndeclaredPropertyListLookup) IsFromCache() bool { return false }

// Hash covers the default property type and every request option.
func (l *UndeclaredPropertyListLookup) Hash() string {
	return hashOf(kindUndeclared, map[string]string{"defaultPropertyType": l.defaultPropertyType}, l.opts)
}
