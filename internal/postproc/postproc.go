// Package postproc collects the inline queries of a rendered page and emits
// the marker element that triggers their post-processing in the browser.
package postproc

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/semwiki/internal/dataitem"
)

// Names shared with the client script.
const (
	QueryRefKey = "smw-postproc-queryref"
	CookieName  = "smw-postproc"
)

// Output is the render state of one page. It owns named sets of extension
// data and is not safe for concurrent use.
type Output struct {
	ext map[string]map[string]bool
}

// NewOutput returns an empty output.
func NewOutput() *Output {
	return &Output{ext: make(map[string]map[string]bool)}
}

// ExtensionData returns a copy of the named set, nil if unset.
func (o *Output) ExtensionData(key string) map[string]bool {
	set, ok := o.ext[key]
	if !ok {
		return nil
	}
	out := make(map[string]bool, len(set))
	for k, v := range set {
		out[k] = v
	}
	return out
}

// SetExtensionData replaces the named set.
func (o *Output) SetExtensionData(key string, set map[string]bool) {
	o.ext[key] = set
}

// Handler records query references on an Output and renders them.
type Handler struct {
	out *Output
}

// NewHandler returns a handler bound to out.
func NewHandler(out *Output) *Handler {
	return &Handler{out: out}
}

// AddQueryRef adds ref to the page's query reference set.
func (h *Handler) AddQueryRef(ref string) {
	refs := h.out.ExtensionData(QueryRefKey)
	if refs == nil {
		refs = make(map[string]bool, 1)
	}
	refs[ref] = true
	h.out.SetExtensionData(QueryRefKey, refs)
}

// QueryRefs returns the recorded references in sorted order.
func (h *Handler) QueryRefs() []string {
	refs := h.out.ExtensionData(QueryRefKey)
	out := make([]string, 0, len(refs))
	for ref := range refs {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

// CookieValue is the cookie value that marks subject at revision as
// already post-processed.
func CookieValue(subject dataitem.WikiPage, revision int) string {
	return subject.Hash() + "#" + strconv.Itoa(revision)
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// HTML renders the trigger element for subject, or "" when there is
// nothing to post-process or r carries the cookie for this revision. r may
// be nil.
func (h *Handler) HTML(subject dataitem.WikiPage, revision int, r *http.Request) string {
	refs := h.QueryRefs()
	if len(refs) == 0 {
		return ""
	}
	if r != nil {
		if c, err := r.Cookie(CookieName); err == nil && c.Value == CookieValue(subject, revision) {
			return ""
		}
	}

	data, err := json.Marshal(refs)
	if err != nil {
		return ""
	}
	return `<div class="smw-postproc" data-subject="` + attrEscaper.Replace(subject.Hash()) +
		`" data-queryref="` + attrEscaper.Replace(string(data)) + `"></div>`
}
