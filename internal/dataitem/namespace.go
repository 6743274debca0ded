package dataitem

import "strings"

// Namespace ids. Property and concept follow the extension defaults.
const (
	NSMain      = 0
	NSTalk      = 1
	NSUser      = 2
	NSProject   = 4
	NSFile      = 6
	NSMediaWiki = 8
	NSTemplate  = 10
	NSHelp      = 12
	NSCategory  = 14
	NSProperty  = 102
	NSConcept   = 108
)

var namespaceNames = map[int]string{
	NSTalk:      "Talk",
	NSUser:      "User",
	NSProject:   "Project",
	NSFile:      "File",
	NSMediaWiki: "MediaWiki",
	NSTemplate:  "Template",
	NSHelp:      "Help",
	NSCategory:  "Category",
	NSProperty:  "Property",
	NSConcept:   "Concept",
}

// NamespaceName returns the canonical prefix text of ns, "" for the main
// namespace and for unknown ids.
func NamespaceName(ns int) string {
	return namespaceNames[ns]
}

// NamespaceByName resolves a prefix such as "Property" or "category".
func NamespaceByName(name string) (int, bool) {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	for ns, n := range namespaceNames {
		if strings.EqualFold(n, name) {
			return ns, true
		}
	}
	return 0, false
}
