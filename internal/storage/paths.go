package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/starford/semwiki/internal/dataitem"
)

const pageExt = ".md"

// ErrNotAPage is returned for vault paths that cannot name a page.
var ErrNotAPage = errors.New("storage: not a page")

// PageFromPath maps a vault path to the page it stores. A leading directory
// named after a namespace selects that namespace ("Property/Has_name.md");
// any other directories stay part of the main-namespace title.
func PageFromPath(p string) (dataitem.WikiPage, error) {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if !strings.HasSuffix(p, pageExt) {
		return dataitem.WikiPage{}, fmt.Errorf("%w: %s", ErrNotAPage, p)
	}
	title := strings.TrimSuffix(p, pageExt)

	ns := dataitem.NSMain
	if dir, rest, ok := strings.Cut(title, "/"); ok {
		if id, known := dataitem.NamespaceByName(dir); known {
			ns, title = id, rest
		}
	}
	if title == "" || title == ".." || strings.HasPrefix(title, "../") {
		return dataitem.WikiPage{}, fmt.Errorf("%w: %s", ErrNotAPage, p)
	}
	return dataitem.NewWikiPage(title, ns, "", ""), nil
}

// PathFromPage is the inverse of PageFromPath.
func PathFromPage(page dataitem.WikiPage) string {
	p := page.DBKey() + pageExt
	if name := dataitem.NamespaceName(page.Namespace()); name != "" {
		p = name + "/" + p
	}
	return p
}
