package dataitem

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// InvalidNameSentinel is the leading character that marks a stored name as
// unusable for a property.
const InvalidNameSentinel = '-'

// Special property keys.
const (
	KeyType   = "_TYPE"
	KeyImport = "_IMPO"
)

// ErrInvalidName is returned when a name fails the title grammar.
var ErrInvalidName = errors.New("invalid name")

var specialLabels = map[string]string{
	KeyType:   "Has type",
	KeyImport: "Imported from",
}

// ValidateTitle checks name against the page title grammar: non-empty, not
// starting with the invalid-name sentinel, and free of characters that
// cannot appear in a title.
func ValidateTitle(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if name[0] == InvalidNameSentinel {
		return fmt.Errorf("%w: %q starts with %q", ErrInvalidName, name, InvalidNameSentinel)
	}
	for _, r := range name {
		if strings.ContainsRune("#<>[]|{}", r) || unicode.IsControl(r) || r == unicode.ReplacementChar {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	return nil
}

// Property is a property reference. User defined properties are keyed by
// their dbkey; predefined ones by a key starting with '_'.
type Property struct {
	key string
}

// NewProperty validates key and returns the property.
func NewProperty(key string) (Property, error) {
	key = toDBKey(key)
	if err := ValidateTitle(key); err != nil {
		return Property{}, err
	}
	return Property{key: key}, nil
}

// NewPropertyFromLabel maps labels of predefined properties ("Has type")
// onto their special keys and otherwise behaves like NewProperty.
func NewPropertyFromLabel(label string) (Property, error) {
	norm := strings.ReplaceAll(strings.TrimSpace(label), "_", " ")
	for key, l := range specialLabels {
		if strings.EqualFold(l, norm) {
			return Property{key: key}, nil
		}
	}
	return NewProperty(label)
}

// MustProperty is NewProperty for known-good keys.
func MustProperty(key string) Property {
	p, err := NewProperty(key)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Property) Key() string { return p.key }

// IsUserDefined reports whether p is not a predefined property.
func (p Property) IsUserDefined() bool {
	return !strings.HasPrefix(p.key, "_")
}

// Label returns the display label.
func (p Property) Label() string {
	if l, ok := specialLabels[p.key]; ok {
		return l
	}
	return strings.ReplaceAll(p.key, "_", " ")
}

// Page returns the declaration page of a user defined property.
func (p Property) Page() WikiPage {
	return NewWikiPage(strings.ReplaceAll(p.Label(), " ", "_"), NSProperty, "", "")
}

func (p Property) DIType() Type { return TypeProperty }

func (p Property) Serialization() string { return p.key }
