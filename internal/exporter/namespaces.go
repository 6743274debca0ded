package exporter

import (
	"fmt"
	"sort"
	"strings"
)

// Namespace ids.
const (
	NSWiki     = "wiki"
	NSProperty = "property"
	NSCategory = "category"
	NSSwivt    = "swivt"
	NSRDF      = "rdf"
	NSRDFS     = "rdfs"
	NSOWL      = "owl"
	NSXSD      = "xsd"
)

var standardNamespaces = map[string]string{
	NSSwivt: "http://semantic-mediawiki.org/swivt/1.0#",
	NSRDF:   "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	NSRDFS:  "http://www.w3.org/2000/01/rdf-schema#",
	NSOWL:   "http://www.w3.org/2002/07/owl#",
	NSXSD:   "http://www.w3.org/2001/XMLSchema#",
}

// Namespaces maps namespace ids to URIs. The wiki namespaces derive from
// the base URI; vocabularies add imported ontologies.
type Namespaces struct {
	uris map[string]string
}

// NewNamespaces builds the registry. Vocabulary prefixes never override
// the built-in ids.
func NewNamespaces(baseURI string, vocabularies map[string]string) *Namespaces {
	uris := make(map[string]string, len(standardNamespaces)+3+len(vocabularies))
	for prefix, uri := range vocabularies {
		uris[prefix] = uri
	}
	for id, uri := range standardNamespaces {
		uris[id] = uri
	}
	uris[NSWiki] = baseURI
	uris[NSProperty] = baseURI + "Property-3A"
	uris[NSCategory] = baseURI + "Category-3A"
	return &Namespaces{uris: uris}
}

// URI returns the URI of a namespace id, "" if unknown.
func (n *Namespaces) URI(id string) string {
	return n.uris[id]
}

// IDs returns all registered namespace ids in sorted order.
func (n *Namespaces) IDs() []string {
	ids := make([]string, 0, len(n.uris))
	for id := range n.uris {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveImport turns an "Imported from" reference "prefix:name" into an
// import declaration against a registered vocabulary.
func (n *Namespaces) ResolveImport(ref string) (ImportValue, error) {
	prefix, name, ok := strings.Cut(strings.TrimSpace(ref), ":")
	if !ok || prefix == "" || name == "" {
		return ImportValue{}, fmt.Errorf("exporter: import %q: want prefix:name", ref)
	}
	uri, ok := n.uris[prefix]
	if !ok {
		return ImportValue{}, fmt.Errorf("exporter: import %q: unknown vocabulary %q", ref, prefix)
	}
	return ImportValue{NamespaceID: prefix, LocalName: name, Namespace: uri, Label: prefix}, nil
}
