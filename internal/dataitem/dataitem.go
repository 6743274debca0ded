// Package dataitem defines the typed values stored in property tables and
// handed to lookups and the exporter.
package dataitem

import (
	"strconv"
	"strings"
)

// Type identifies the kind of a data item. The numeric values are part of
// the export serialization and must not change.
type Type int

// Data item types.
const (
	TypeNoType    Type = 0
	TypeNumber    Type = 1
	TypeBlob      Type = 2
	TypeBoolean   Type = 4
	TypeURI       Type = 5
	TypeTime      Type = 6
	TypeGeo       Type = 7
	TypeContainer Type = 8
	TypeWikiPage  Type = 9
	TypeConcept   Type = 10
	TypeProperty  Type = 11
	TypeError     Type = 12
)

// DataItem is an immutable typed value.
type DataItem interface {
	// DIType reports the item kind.
	DIType() Type
	// Serialization returns the canonical string form. Two items of the
	// same type are interchangeable iff their serializations are equal.
	Serialization() string
}

// Blob is a plain string value.
type Blob struct {
	value string
}

// NewBlob returns a blob holding s.
func NewBlob(s string) Blob { return Blob{value: s} }

// String returns the blob content.
func (b Blob) String() string { return b.value }

func (b Blob) DIType() Type { return TypeBlob }

func (b Blob) Serialization() string { return b.value }

// Number is a numeric value.
type Number struct {
	value float64
}

// NewNumber returns a number item.
func NewNumber(f float64) Number { return Number{value: f} }

// Float returns the numeric value.
func (n Number) Float() float64 { return n.value }

func (n Number) DIType() Type { return TypeNumber }

func (n Number) Serialization() string {
	return strconv.FormatFloat(n.value, 'g', -1, 64)
}

// Error marks a value that could not be turned into a proper data item.
// The rejected input is kept for diagnostics.
type Error struct {
	value    string
	messages []string
}

// NewError returns an error marker for value with the given messages.
func NewError(value string, messages ...string) Error {
	return Error{value: value, messages: append([]string(nil), messages...)}
}

// Value returns the rejected raw input.
func (e Error) Value() string { return e.value }

// Messages returns a copy of the diagnostic messages.
func (e Error) Messages() []string { return append([]string(nil), e.messages...) }

func (e Error) DIType() Type { return TypeError }

func (e Error) Serialization() string {
	return e.value + "|" + strings.Join(e.messages, ";")
}

// IsError reports whether di is an error marker.
func IsError(di DataItem) bool {
	_, ok := di.(Error)
	return ok
}
