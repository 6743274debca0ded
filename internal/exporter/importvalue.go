package exporter

import (
	"fmt"
	"strings"
)

// ImportValue is a property's import declaration: the external term the
// property stands for.
type ImportValue struct {
	NamespaceID string
	LocalName   string
	Namespace   string
	Label       string
}

// ParseImportValue parses the stored form
// "<namespaceID> <localName> <namespace> <label>". The label may contain
// spaces.
func ParseImportValue(s string) (ImportValue, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 4)
	if len(parts) != 4 {
		return ImportValue{}, fmt.Errorf("exporter: import declaration %q: want 4 parts, got %d", s, len(parts))
	}
	return ImportValue{NamespaceID: parts[0], LocalName: parts[1], Namespace: parts[2], Label: parts[3]}, nil
}

// String returns the stored form.
func (v ImportValue) String() string {
	return v.NamespaceID + " " + v.LocalName + " " + v.Namespace + " " + v.Label
}
