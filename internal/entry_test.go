package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/wikiservice"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "semwiki.db")
	cfg.Lookup.DefaultPropertyType = "_txt"

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Vault.Path, "Foo.md"), []byte("[[Has note::a]]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRunQuery_Undeclared(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	err := RunQuery(context.Background(), func(ctx context.Context, svc *wikiservice.Service) (any, error) {
		return svc.UndeclaredProperties(ctx, wikiservice.ListQuery{})
	}, WithConfig(cfg), WithOutput(&out), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}

	var list wikiservice.PropertyList
	if err := json.Unmarshal(out.Bytes(), &list); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if len(list.Items) != 1 || list.Items[0].Name != "Has_note" {
		t.Errorf("items = %+v", list.Items)
	}
}

func TestRunQuery_Export(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	err := RunQuery(context.Background(), func(ctx context.Context, svc *wikiservice.Service) (any, error) {
		return svc.MapResource(ctx, dataitem.NewWikiPage("Foo", dataitem.NSMain, "", ""), false)
	}, WithConfig(cfg), WithOutput(&out), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	var res wikiservice.Resource
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.URI != cfg.Export.BaseURI+"Foo" {
		t.Errorf("uri = %q", res.URI)
	}
}

func TestRunQuery_RequiresConfig(t *testing.T) {
	err := RunQuery(context.Background(), func(context.Context, *wikiservice.Service) (any, error) {
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected error without config")
	}
}
