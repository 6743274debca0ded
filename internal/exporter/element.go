// Package exporter maps data items onto namespaced export resources.
package exporter

import (
	"github.com/starford/semwiki/internal/dataitem"
)

// Type tags an element kind. The values are part of the serialization.
type Type int

// Element types.
const (
	TypeResource Type = iota
	TypeNSResource
	TypeLiteral
	TypeBlankNode
)

// Element is an immutable export resource: a local name inside a namespace
// plus the data item it was built from.
type Element struct {
	typ         Type
	localName   string
	namespace   string
	namespaceID string
	dataItem    dataitem.DataItem
}

// NewNSResource returns a namespaced resource. di may be nil.
func NewNSResource(localName, namespace, namespaceID string, di dataitem.DataItem) Element {
	return Element{
		typ:         TypeNSResource,
		localName:   localName,
		namespace:   namespace,
		namespaceID: namespaceID,
		dataItem:    di,
	}
}

func (e Element) Type() Type                  { return e.typ }
func (e Element) LocalName() string           { return e.localName }
func (e Element) Namespace() string           { return e.namespace }
func (e Element) NamespaceID() string         { return e.namespaceID }
func (e Element) DataItem() dataitem.DataItem { return e.dataItem }

// URI returns the full resource URI.
func (e Element) URI() string {
	return e.namespace + e.localName
}

// QName returns the prefixed name, e.g. "property:Has_name".
func (e Element) QName() string {
	return e.namespaceID + ":" + e.localName
}

// SerializedDataItem is the serialized form of an element's data item.
type SerializedDataItem struct {
	Type dataitem.Type `json:"type"`
	Item string        `json:"item"`
}

// Serialization is the structured record handed to export writers.
type Serialization struct {
	Type     Type                `json:"type"`
	URI      string              `json:"uri"`
	DataItem *SerializedDataItem `json:"dataitem,omitempty"`
}

// Serialization returns the element as "localName|namespace|namespaceID"
// with the serialized data item.
func (e Element) Serialization() Serialization {
	s := Serialization{
		Type: e.typ,
		URI:  e.localName + "|" + e.namespace + "|" + e.namespaceID,
	}
	if e.dataItem != nil {
		s.DataItem = &SerializedDataItem{Type: e.dataItem.DIType(), Item: e.dataItem.Serialization()}
	}
	return s
}
