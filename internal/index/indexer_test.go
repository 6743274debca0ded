package index

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/exporter"
	"github.com/starford/semwiki/internal/lookup"
	"github.com/starford/semwiki/internal/sqlstore"
	"github.com/starford/semwiki/internal/testutil"
)

var quietLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func testIndexer(t *testing.T) (*Indexer, string, *sqlstore.Store) {
	t.Helper()
	vaultDir, vault := testutil.TestVault(t)
	db := testutil.TestStore(t)
	ns := exporter.NewNamespaces("http://example.org/id/", map[string]string{
		"foaf": "http://xmlns.com/foaf/0.1/",
	})
	return New(db, vault, ns, "_txt", quietLogger), vaultDir, db
}

func values(t *testing.T, db *sqlstore.Store, subject dataitem.WikiPage, key string) []string {
	t.Helper()
	vals, err := db.PropertyValues(context.Background(), subject, dataitem.MustProperty(key))
	require.NoError(t, err)
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.Serialization()
	}
	return out
}

func TestIndexFile_TypedFacts(t *testing.T) {
	ix, vaultDir, db := testIndexer(t)
	ctx := context.Background()

	testutil.WritePage(t, vaultDir, "Property/Has_size.md", "---\nproperties:\n  Has type: Number\n---\n")
	testutil.WritePage(t, vaultDir, "Property/Located_in.md", "[[Has type::Page]]\n")
	testutil.WritePage(t, vaultDir, "Foo.md",
		"---\nproperties:\n  Has size: 42\nsubobjects:\n  sec1:\n    Has note: inner\n---\n"+
			"In [[Located in::Category:Cities]] and [[Has note::plain]].\n")
	require.NoError(t, ix.Sync(ctx))

	foo := dataitem.NewWikiPage("Foo", dataitem.NSMain, "", "")
	assert.Equal(t, []string{"42"}, values(t, db, foo, "Has_size"))
	assert.Equal(t, []string{"Cities#14#"}, values(t, db, foo, "Located_in"))
	assert.Equal(t, []string{"plain"}, values(t, db, foo, "Has_note"))
	assert.Equal(t, []string{"inner"}, values(t, db, foo.WithSubobject("sec1"), "Has_note"))

	typ, ok, err := db.DeclaredType(ctx, dataitem.MustProperty("Has_size"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "_num", typ)
}

func TestIndexFile_Import(t *testing.T) {
	ix, vaultDir, db := testIndexer(t)
	testutil.WritePage(t, vaultDir, "Property/Name.md", "[[Imported from::foaf:name]]\n[[Imported from::nope:x]]\n")
	require.NoError(t, ix.Sync(context.Background()))

	page := dataitem.NewWikiPage("Name", dataitem.NSProperty, "", "")
	assert.Equal(t, []string{"foaf name http://xmlns.com/foaf/0.1/ foaf"}, values(t, db, page, dataitem.KeyImport))
}

func TestIndexFile_SkipsInvalid(t *testing.T) {
	ix, vaultDir, db := testIndexer(t)
	testutil.WritePage(t, vaultDir, "Foo.md",
		"[[Has type::Number]] [[-Bad::x]] [[Has note::ok]]\n")
	require.NoError(t, ix.Sync(context.Background()))

	foo := dataitem.NewWikiPage("Foo", dataitem.NSMain, "", "")
	assert.Empty(t, values(t, db, foo, dataitem.KeyType))
	assert.Equal(t, []string{"ok"}, values(t, db, foo, "Has_note"))
}

func TestIndexFile_UnknownTypeFallsBackToBlob(t *testing.T) {
	ix, vaultDir, db := testIndexer(t)
	testutil.WritePage(t, vaultDir, "Property/Has_size.md", "[[Has type::Number]]\n")
	testutil.WritePage(t, vaultDir, "Foo.md", "[[Has size::large]]\n")
	require.NoError(t, ix.Sync(context.Background()))

	foo := dataitem.NewWikiPage("Foo", dataitem.NSMain, "", "")
	assert.Equal(t, []string{"large"}, values(t, db, foo, "Has_size"))
}

func TestIndexFile_NotAPage(t *testing.T) {
	ix, _, _ := testIndexer(t)
	assert.Error(t, ix.IndexFile(context.Background(), "notes.txt", []byte("x")))
}

func TestSync_ChecksumDriven(t *testing.T) {
	ix, vaultDir, db := testIndexer(t)
	ctx := context.Background()
	foo := dataitem.NewWikiPage("Foo", dataitem.NSMain, "", "")

	testutil.WritePage(t, vaultDir, "Foo.md", "[[Has note::a]]\n")
	require.NoError(t, ix.Sync(ctx))
	require.NoError(t, ix.Sync(ctx))
	rev, err := db.PageRevision(ctx, foo)
	require.NoError(t, err)
	assert.Equal(t, 1, rev, "unchanged page must not be rewritten")

	testutil.WritePage(t, vaultDir, "Foo.md", "[[Has note::b]]\n")
	require.NoError(t, ix.Sync(ctx))
	rev, err = db.PageRevision(ctx, foo)
	require.NoError(t, err)
	assert.Equal(t, 2, rev)
	assert.Equal(t, []string{"b"}, values(t, db, foo, "Has_note"))
}

func TestSync_RetypesOnDeclarationChange(t *testing.T) {
	ix, vaultDir, db := testIndexer(t)
	ctx := context.Background()
	foo := dataitem.NewWikiPage("Foo", dataitem.NSMain, "", "")

	testutil.WritePage(t, vaultDir, "Foo.md", "[[Has size::7]]\n")
	require.NoError(t, ix.Sync(ctx))
	vals, err := db.PropertyValues(ctx, foo, dataitem.MustProperty("Has_size"))
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, dataitem.TypeBlob, vals[0].DIType())

	testutil.WritePage(t, vaultDir, "Property/Has_size.md", "[[Has type::Number]]\n")
	require.NoError(t, ix.Sync(ctx))
	vals, err = db.PropertyValues(ctx, foo, dataitem.MustProperty("Has_size"))
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, dataitem.TypeNumber, vals[0].DIType())
}

func TestSync_RemovesStale(t *testing.T) {
	ix, vaultDir, db := testIndexer(t)
	ctx := context.Background()
	db.UpdatePage(ctx, sqlstore.PageData{ //nolint:errcheck
		Path: "Gone.md", Page: dataitem.NewWikiPage("Gone", dataitem.NSMain, "", ""), Checksum: "x",
	})
	testutil.WritePage(t, vaultDir, "Foo.md", "x")
	require.NoError(t, ix.Sync(ctx))

	cs, err := db.AllChecksums(ctx)
	require.NoError(t, err)
	assert.Contains(t, cs, "Foo.md")
	assert.NotContains(t, cs, "Gone.md")
}

func TestSync_RetypesOnDeclarationRemoval(t *testing.T) {
	ix, vaultDir, db := testIndexer(t)
	ctx := context.Background()
	foo := dataitem.NewWikiPage("Foo", dataitem.NSMain, "", "")

	testutil.WritePage(t, vaultDir, "Property/Has_size.md", "[[Has type::Number]]\n")
	testutil.WritePage(t, vaultDir, "Foo.md", "[[Has size::3]]\n")
	require.NoError(t, ix.Sync(ctx))
	vals, err := db.PropertyValues(ctx, foo, dataitem.MustProperty("Has_size"))
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, dataitem.TypeNumber, vals[0].DIType())

	require.NoError(t, os.Remove(filepath.Join(vaultDir, "Property", "Has_size.md")))
	require.NoError(t, ix.Sync(ctx))

	vals, err = db.PropertyValues(ctx, foo, dataitem.MustProperty("Has_size"))
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, dataitem.TypeBlob, vals[0].DIType())

	entries, err := lookup.NewUndeclaredPropertyListLookup(db, "_txt", lookup.NewRequestOptions()).Lookup(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Has_size", entries[0].Item.Serialization())
}

func TestSync_SkipsDuplicatePage(t *testing.T) {
	ix, vaultDir, db := testIndexer(t)
	ctx := context.Background()
	page := dataitem.NewWikiPage("Foo_bar", dataitem.NSMain, "", "")

	testutil.WritePage(t, vaultDir, "Foo bar.md", "[[Has note::space]]\n")
	testutil.WritePage(t, vaultDir, "Foo_bar.md", "[[Has note::underscore]]\n")
	require.NoError(t, ix.Sync(ctx))

	cs, err := db.AllChecksums(ctx)
	require.NoError(t, err)
	assert.Contains(t, cs, "Foo bar.md")
	assert.NotContains(t, cs, "Foo_bar.md")
	assert.Equal(t, []string{"space"}, values(t, db, page, "Has_note"))

	// The stored file keeps the page.
	testutil.WritePage(t, vaultDir, "Foo_bar.md", "[[Has note::changed]]\n")
	require.NoError(t, ix.Sync(ctx))
	assert.Equal(t, []string{"space"}, values(t, db, page, "Has_note"))

	require.NoError(t, os.Remove(filepath.Join(vaultDir, "Foo bar.md")))
	require.NoError(t, ix.Sync(ctx))
	cs, err = db.AllChecksums(ctx)
	require.NoError(t, err)
	assert.Contains(t, cs, "Foo_bar.md")
	assert.Equal(t, []string{"changed"}, values(t, db, page, "Has_note"))
}
