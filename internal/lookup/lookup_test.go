package lookup

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/sqlstore"
)

type fakeConn struct {
	rows  []sqlstore.CountRow
	err   error
	calls int

	table  string
	conds  []sqlstore.Condition
	opts   sqlstore.SelectOptions
	fields []string
}

func (c *fakeConn) Select(_ context.Context, table string, fields []string, conds []sqlstore.Condition, opts sqlstore.SelectOptions) ([]sqlstore.CountRow, error) {
	c.calls++
	c.table, c.fields, c.conds, c.opts = table, fields, conds, opts
	return c.rows, c.err
}

type fakeStore struct {
	tableID string
	tables  map[string]*sqlstore.TableDefinition
	conn    *fakeConn
}

func (s *fakeStore) FindTypeTableID(string) string                        { return s.tableID }
func (s *fakeStore) PropertyTables() map[string]*sqlstore.TableDefinition { return s.tables }
func (s *fakeStore) Connection(string) sqlstore.Connection                { return s.conn }

func newFakeStore(fixed bool, rows ...sqlstore.CountRow) *fakeStore {
	def := &sqlstore.TableDefinition{Name: "smw_foo", ValueField: "o_blob"}
	if fixed {
		def.FixedProperty = "_FOO"
	}
	return &fakeStore{
		tableID: "smw_foo",
		tables:  map[string]*sqlstore.TableDefinition{"smw_foo": def},
		conn:    &fakeConn{rows: rows},
	}
}

func TestUndeclaredHashContainsKind(t *testing.T) {
	l := NewUndeclaredPropertyListLookup(newFakeStore(false), "_foo", NewRequestOptions())
	assert.True(t, strings.HasPrefix(l.Hash(), "UndeclaredPropertyListLookup#"))
	assert.False(t, l.IsFromCache())
	assert.NotEmpty(t, l.Timestamp())
}

func TestUndeclaredHashChangesWithLimit(t *testing.T) {
	store := newFakeStore(false)
	opts := NewRequestOptions()

	opts.Limit = 1
	first := NewUndeclaredPropertyListLookup(store, "_foo", opts).Hash()

	opts.Limit = 2
	second := NewUndeclaredPropertyListLookup(store, "_foo", opts).Hash()

	assert.NotEqual(t, first, second)
}

func TestUndeclaredHashSensitivity(t *testing.T) {
	store := newFakeStore(false)
	base := NewUndeclaredPropertyListLookup(store, "_foo", NewRequestOptions()).Hash()

	mutations := map[string]func(o *RequestOptions){
		"offset":    func(o *RequestOptions) { o.Offset = 10 },
		"sort":      func(o *RequestOptions) { o.Sort = true },
		"ascending": func(o *RequestOptions) { o.Ascending = false },
		"extra":     func(o *RequestOptions) { o.AddExtraCondition("o.smw_id > ?", 1) },
		"string":    func(o *RequestOptions) { o.AddStringCondition("Has", MatchPrefix, false) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			opts := NewRequestOptions()
			mutate(opts)
			assert.NotEqual(t, base, NewUndeclaredPropertyListLookup(store, "_foo", opts).Hash())
		})
	}

	assert.NotEqual(t, base, NewUndeclaredPropertyListLookup(store, "_bar", NewRequestOptions()).Hash(),
		"default property type must be part of the identity")

	a, b := NewRequestOptions(), NewRequestOptions()
	a.AddExtraCondition("x = ?", 1)
	b.AddExtraCondition("x = ?", "1")
	assert.NotEqual(t,
		NewUndeclaredPropertyListLookup(store, "_foo", a).Hash(),
		NewUndeclaredPropertyListLookup(store, "_foo", b).Hash(),
		"argument types must be part of the identity")
}

func TestUndeclaredHashDeterminism(t *testing.T) {
	build := func() *RequestOptions {
		o := NewRequestOptions()
		o.Limit = 5
		o.AddExtraCondition("o.smw_id > ?", 3)
		o.AddStringCondition("Foo", MatchContains, true)
		return o
	}
	a := NewUndeclaredPropertyListLookup(newFakeStore(false), "_foo", build())
	b := NewUndeclaredPropertyListLookup(newFakeStore(false), "_foo", build())
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestUndeclaredOptionsAreCopied(t *testing.T) {
	opts := NewRequestOptions()
	opts.Limit = 1
	l := NewUndeclaredPropertyListLookup(newFakeStore(false), "_foo", opts)
	before := l.Hash()

	opts.Limit = 2
	opts.AddExtraCondition("1 = 1")
	assert.Equal(t, before, l.Hash())
}

func TestUndeclaredFixedTableShortCircuit(t *testing.T) {
	store := newFakeStore(true, sqlstore.CountRow{Name: "Foo", Count: 1})
	entries, err := NewUndeclaredPropertyListLookup(store, "_foo", NewRequestOptions()).Lookup(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, store.conn.calls, "select must not be called for fixed tables")
}

func TestUndeclaredMissingOptions(t *testing.T) {
	store := newFakeStore(false)
	_, err := NewUndeclaredPropertyListLookup(store, "_foo", nil).Lookup(context.Background())
	require.ErrorIs(t, err, ErrMissingRequestOptions)
	assert.Zero(t, store.conn.calls)
}

func TestUndeclaredUnknownTable(t *testing.T) {
	store := newFakeStore(false)
	store.tableID = "smw_unknown"
	_, err := NewUndeclaredPropertyListLookup(store, "_foo", NewRequestOptions()).Lookup(context.Background())
	require.ErrorIs(t, err, ErrUnknownPropertyTable)
	assert.Contains(t, err.Error(), "smw_unknown")
}

func TestUndeclaredRowClassification(t *testing.T) {
	store := newFakeStore(false,
		sqlstore.CountRow{Name: "Foo", Count: 42},
		sqlstore.CountRow{Name: "-Foo", Count: 42},
	)
	entries, err := NewUndeclaredPropertyListLookup(store, "_foo", NewRequestOptions()).Lookup(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	prop, ok := entries[0].Item.(dataitem.Property)
	require.True(t, ok, "valid name should map to a property, got %T", entries[0].Item)
	assert.Equal(t, "Foo", prop.Key())
	assert.Equal(t, 42, entries[0].Count)

	assert.True(t, dataitem.IsError(entries[1].Item))
	assert.Equal(t, dataitem.TypeError, entries[1].Item.DIType())
	assert.Equal(t, "-Foo", entries[1].Item.(dataitem.Error).Value())
	assert.Equal(t, 42, entries[1].Count)
}

func TestUndeclaredQueryShape(t *testing.T) {
	store := newFakeStore(false)
	opts := NewRequestOptions()
	opts.Limit = 10
	opts.Offset = 20
	opts.AddExtraCondition("o.smw_id > ?", 7)
	opts.AddStringCondition("Has ", MatchPrefix, false)

	_, err := NewUndeclaredPropertyListLookup(store, "_foo", opts).Lookup(context.Background())
	require.NoError(t, err)

	c := store.conn
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, "smw_foo AS p", c.table)
	assert.Equal(t, []string{"o.smw_title AS name", "COUNT(*) AS count"}, c.fields)
	assert.Equal(t, 10, c.opts.Limit)
	assert.Equal(t, 20, c.opts.Offset)
	assert.Equal(t, "o.smw_title", c.opts.GroupBy)
	assert.Equal(t, "count DESC, name ASC", c.opts.OrderBy)
	require.Len(t, c.conds, 4)
	assert.Equal(t, "pg.title IS NULL", c.conds[0].Expr)
	assert.Equal(t, "o.smw_id > ?", c.conds[2].Expr)
	assert.Equal(t, []any{`Has\_%`}, c.conds[3].Args)
}

func TestUndeclaredPropagatesStoreErrors(t *testing.T) {
	store := newFakeStore(false)
	boom := errors.New("boom")
	store.conn.err = boom
	_, err := NewUndeclaredPropertyListLookup(store, "_foo", NewRequestOptions()).Lookup(context.Background())
	assert.Same(t, boom, err)
}

func TestRequestOptionsValidate(t *testing.T) {
	opts := NewRequestOptions()
	assert.NoError(t, opts.Validate())

	opts.Offset = -1
	assert.Error(t, opts.Validate())

	opts = NewRequestOptions()
	opts.AddStringCondition("", MatchPrefix, false)
	assert.Error(t, opts.Validate())

	opts = NewRequestOptions()
	opts.AddStringCondition("x", StringMatch(9), false)
	assert.Error(t, opts.Validate())
}

func TestRequestOptionsConditions(t *testing.T) {
	opts := NewRequestOptions()
	opts.AddStringCondition("a", MatchPrefix, true)
	opts.AddStringCondition("b%", MatchSuffix, true)
	opts.AddStringCondition("c", MatchContains, false)

	conds := opts.conditions("f")
	require.Len(t, conds, 2)
	assert.Equal(t, []any{"%c%"}, conds[0].Args)
	assert.Equal(t, `f LIKE ? ESCAPE '\' OR f LIKE ? ESCAPE '\'`, conds[1].Expr)
	assert.Equal(t, []any{"a%", `%b\%`}, conds[1].Args)
}

func TestRequestOptionsOrder(t *testing.T) {
	opts := NewRequestOptions()
	assert.Equal(t, "count DESC, name ASC", opts.orderBy("name", "count"))
	opts.Sort = true
	assert.Equal(t, "name ASC", opts.orderBy("name", "count"))
	opts.Ascending = false
	assert.Equal(t, "name DESC", opts.orderBy("name", "count"))
}

func TestCacheWrap(t *testing.T) {
	store := newFakeStore(false, sqlstore.CountRow{Name: "Foo", Count: 1})
	cache := NewCache(16, time.Minute)
	ctx := context.Background()

	first := cache.Wrap(NewUndeclaredPropertyListLookup(store, "_foo", NewRequestOptions()))
	entries, err := first.Lookup(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, first.IsFromCache())

	second := cache.Wrap(NewUndeclaredPropertyListLookup(store, "_foo", NewRequestOptions()))
	entries, err = second.Lookup(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, second.IsFromCache())
	assert.Equal(t, first.Timestamp(), second.Timestamp())
	assert.Equal(t, first.Hash(), second.Hash())
	assert.Equal(t, 1, store.conn.calls)

	cache.Purge()
	assert.Zero(t, cache.Len())
	third := cache.Wrap(NewUndeclaredPropertyListLookup(store, "_foo", NewRequestOptions()))
	_, err = third.Lookup(ctx)
	require.NoError(t, err)
	assert.False(t, third.IsFromCache())
	assert.Equal(t, 2, store.conn.calls)
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	cache := NewCache(16, 0)
	store := newFakeStore(false)
	_, err := cache.Wrap(NewUndeclaredPropertyListLookup(store, "_foo", nil)).Lookup(context.Background())
	require.ErrorIs(t, err, ErrMissingRequestOptions)
	assert.Zero(t, cache.Len())
}

func TestTimestampFollowsClock(t *testing.T) {
	orig := now
	t.Cleanup(func() { now = orig })
	now = func() time.Time { return time.Unix(1700000000, 0) }

	l := NewUndeclaredPropertyListLookup(newFakeStore(false), "_foo", NewRequestOptions())
	assert.Equal(t, "1700000000", l.Timestamp())

	now = func() time.Time { return time.Unix(1700000060, 0) }
	_, err := l.Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1700000060", l.Timestamp())
}

// SQLite-backed tests.

func testStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	f, err := os.CreateTemp("", "semwiki-lookup-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	s, err := sqlstore.Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *sqlstore.Store) {
	t.Helper()
	ctx := context.Background()
	foo := dataitem.NewWikiPage("Foo", dataitem.NSMain, "", "")
	bar := dataitem.NewWikiPage("Bar", dataitem.NSMain, "", "")
	declared := dataitem.NewWikiPage("Has_name", dataitem.NSProperty, "", "")
	unused := dataitem.NewWikiPage("Has_color", dataitem.NSProperty, "", "")

	pages := []sqlstore.PageData{
		{Path: "Foo.md", Page: foo, Checksum: "1", Facts: []sqlstore.Fact{
			{Subject: foo, Property: "Has_name", Value: dataitem.NewBlob("Foo")},
			{Subject: foo, Property: "Has_note", Value: dataitem.NewBlob("a")},
			{Subject: foo, Property: "Has_note", Value: dataitem.NewBlob("b")},
			{Subject: foo, Property: "Has_size", Value: dataitem.NewNumber(3)},
		}},
		{Path: "Bar.md", Page: bar, Checksum: "2", Facts: []sqlstore.Fact{
			{Subject: bar, Property: "Has_note", Value: dataitem.NewBlob("c")},
			{Subject: bar, Property: "Links_to", Value: foo},
		}},
		{Path: "Property/Has_name.md", Page: declared, Checksum: "3", Facts: []sqlstore.Fact{
			{Subject: declared, Property: dataitem.KeyType, Value: dataitem.NewBlob("_txt")},
		}},
		{Path: "Property/Has_color.md", Page: unused, Checksum: "4"},
	}
	for _, pd := range pages {
		require.NoError(t, s.UpdatePage(ctx, pd))
	}
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Item.Serialization()
	}
	return out
}

func TestUndeclaredAgainstSQLite(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	entries, err := NewUndeclaredPropertyListLookup(s, "_txt", NewRequestOptions()).Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Has_note"}, names(entries))
	assert.Equal(t, 3, entries[0].Count)

	entries, err = NewUndeclaredPropertyListLookup(s, "_num", NewRequestOptions()).Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Has_size"}, names(entries))

	entries, err = NewUndeclaredPropertyListLookup(s, "__typ", NewRequestOptions()).Lookup(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = NewUndeclaredPropertyListLookup(s, "_nope", NewRequestOptions()).Lookup(context.Background())
	assert.ErrorIs(t, err, ErrUnknownPropertyTable)
}

func TestUsageAgainstSQLite(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	entries, err := NewPropertyUsageListLookup(s, NewRequestOptions()).Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Has_note", "Has_name", "Has_size", "Links_to"}, names(entries))
	assert.Equal(t, 3, entries[0].Count)

	opts := NewRequestOptions()
	opts.Limit = 1
	opts.Offset = 1
	entries, err = NewPropertyUsageListLookup(s, opts).Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Has_name"}, names(entries))

	opts = NewRequestOptions()
	opts.AddStringCondition("Has", MatchPrefix, false)
	opts.AddStringCondition("e", MatchSuffix, false)
	entries, err = NewPropertyUsageListLookup(s, opts).Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Has_note", "Has_name", "Has_size"}, names(entries))
}

func TestUnusedAgainstSQLite(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	entries, err := NewUnusedPropertyListLookup(s, NewRequestOptions()).Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Has_color"}, names(entries))
	assert.Zero(t, entries[0].Count)
}
