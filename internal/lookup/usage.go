package lookup

import (
	"context"
	"sort"
	"strings"

	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/sqlstore"
)

const (
	kindUsage  = "PropertyUsageListLookup"
	kindUnused = "UnusedPropertyListLookup"
)

// usageUnion selects p_id from every table that stores arbitrary
// properties, one row per stored value.
func usageUnion(store Store) string {
	var names []string
	for _, def := range store.PropertyTables() {
		if !def.IsFixedPropertyTable() {
			names = append(names, def.Name)
		}
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = "SELECT p_id FROM " + n
	}
	return "(" + strings.Join(parts, " UNION ALL ") + ")"
}

// PropertyUsageListLookup lists every property in use with the number of
// values stored for it, across all property tables.
type PropertyUsageListLookup struct {
	clock
	store Store
	opts  *RequestOptions
}

// NewPropertyUsageListLookup returns a usage lookup over store.
func NewPropertyUsageListLookup(store Store, opts *RequestOptions) *PropertyUsageListLookup {
	return &PropertyUsageListLookup{clock: newClock(), store: store, opts: opts.Clone()}
}

func (l *PropertyUsageListLookup) Lookup(ctx context.Context) ([]Entry, error) {
	if l.opts == nil {
		return nil, ErrMissingRequestOptions
	}
	l.touch()

	conds := append([]sqlstore.Condition{
		{Expr: "o.smw_namespace = ?", Args: []any{dataitem.NSProperty}},
	}, l.opts.conditions("o.smw_title")...)

	rows, err := l.store.Connection(sqlstore.ConnRead).Select(ctx,
		usageUnion(l.store)+" AS p",
		[]string{"o.smw_title AS name", "COUNT(*) AS count"},
		conds,
		l.opts.selectOptions(
			[]sqlstore.Join{{Kind: "INNER", Table: "smw_object_ids AS o", On: "o.smw_id = p.p_id"}},
			"o.smw_title", l.opts.orderBy("name", "count")),
	)
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

func (l *PropertyUsageListLookup) IsFromCache() bool { return false }

func (l *PropertyUsageListLookup) Hash() string {
	return hashOf(kindUsage, nil, l.opts)
}

// UnusedPropertyListLookup lists declared properties without any stored
// value. Counts are always 0.
type UnusedPropertyListLookup struct {
	clock
	store Store
	opts  *RequestOptions
}

// NewUnusedPropertyListLookup returns an unused-property lookup over store.
func NewUnusedPropertyListLookup(store Store, opts *RequestOptions) *UnusedPropertyListLookup {
	return &UnusedPropertyListLookup{clock: newClock(), store: store, opts: opts.Clone()}
}

func (l *UnusedPropertyListLookup) Lookup(ctx context.Context) ([]Entry, error) {
	if l.opts == nil {
		return nil, ErrMissingRequestOptions
	}
	l.touch()

	conds := append([]sqlstore.Condition{
		{Expr: "pg.namespace = ?", Args: []any{dataitem.NSProperty}},
		{Expr: "u.p_id IS NULL"},
	}, l.opts.conditions("pg.title")...)

	joins := []sqlstore.Join{
		{Kind: "LEFT", Table: "smw_object_ids AS o",
			On: "o.smw_title = pg.title AND o.smw_namespace = pg.namespace AND o.smw_iw = '' AND o.smw_subobject = ''"},
		{Kind: "LEFT", Table: usageUnion(l.store) + " AS u", On: "u.p_id = o.smw_id"},
	}

	// Unused properties share count 0, so only name ordering applies.
	order := "name ASC"
	if l.opts.Sort && !l.opts.Ascending {
		order = "name DESC"
	}

	rows, err := l.store.Connection(sqlstore.ConnRead).Select(ctx,
		"pages AS pg",
		[]string{"pg.title AS name", "0 AS count"},
		conds,
		l.opts.selectOptions(joins, "pg.title", order),
	)
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

func (l *UnusedPropertyListLookup) IsFromCache() bool { return false }

func (l *UnusedPropertyListLookup) Hash() string {
	return hashOf(kindUnused, nil, l.opts)
}
