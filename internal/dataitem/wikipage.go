package dataitem

import (
	"strconv"
	"strings"
)

// WikiPage identifies a page, or a named subobject of a page. The four
// fields together are the full identity.
type WikiPage struct {
	dbkey     string
	namespace int
	interwiki string
	subobject string
}

// NewWikiPage returns a page reference. Spaces in dbkey are stored as
// underscores.
func NewWikiPage(dbkey string, namespace int, interwiki, subobject string) WikiPage {
	return WikiPage{
		dbkey:     toDBKey(dbkey),
		namespace: namespace,
		interwiki: interwiki,
		subobject: subobject,
	}
}

// NewWikiPageFromText parses "Prefix:Title" into a page, using defaultNS
// when the text carries no known namespace prefix.
func NewWikiPageFromText(text string, defaultNS int) WikiPage {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, ":"); i > 0 {
		if ns, ok := NamespaceByName(text[:i]); ok {
			return NewWikiPage(text[i+1:], ns, "", "")
		}
	}
	return NewWikiPage(text, defaultNS, "", "")
}

func (p WikiPage) DBKey() string         { return p.dbkey }
func (p WikiPage) Namespace() int        { return p.namespace }
func (p WikiPage) Interwiki() string     { return p.interwiki }
func (p WikiPage) SubobjectName() string { return p.subobject }

// Text returns the title with underscores shown as spaces.
func (p WikiPage) Text() string {
	return strings.ReplaceAll(p.dbkey, "_", " ")
}

// Page returns the enclosing page of a subobject, or p itself.
func (p WikiPage) Page() WikiPage {
	if p.subobject == "" {
		return p
	}
	return NewWikiPage(p.dbkey, p.namespace, p.interwiki, "")
}

// WithSubobject returns the named subobject of p.
func (p WikiPage) WithSubobject(name string) WikiPage {
	return WikiPage{dbkey: p.dbkey, namespace: p.namespace, interwiki: p.interwiki, subobject: name}
}

func (p WikiPage) DIType() Type { return TypeWikiPage }

// Serialization joins dbkey, namespace and interwiki with '#', followed by
// the subobject name when present: "Foo#0#", "Foo#0#bar#1234".
func (p WikiPage) Serialization() string {
	s := p.dbkey + "#" + strconv.Itoa(p.namespace) + "#" + p.interwiki
	if p.subobject != "" {
		s += "#" + p.subobject
	}
	return s
}

// Hash is the serialization; it is used as a cache key.
func (p WikiPage) Hash() string { return p.Serialization() }

func toDBKey(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}
