package sqlstore

import (
	"strings"

	"github.com/starford/semwiki/internal/dataitem"
)

// Property table ids.
const (
	TableBlob     = "smw_di_blob"
	TableWikiPage = "smw_di_wikipage"
	TableNumber   = "smw_di_number"
	TableType     = "smw_fpt_type"
	TableImport   = "smw_fpt_impo"
)

// TableDefinition describes one property table.
type TableDefinition struct {
	Name   string
	DIType dataitem.Type
	// FixedProperty is the key of the only property a fixed table holds.
	FixedProperty string
	// ValueField is the column holding the object value.
	ValueField string
}

// IsFixedPropertyTable reports whether the table is dedicated to a single
// known property and therefore has no p_id column.
func (t *TableDefinition) IsFixedPropertyTable() bool {
	return t.FixedProperty != ""
}

var propertyTables = []TableDefinition{
	{Name: TableBlob, DIType: dataitem.TypeBlob, ValueField: "o_blob"},
	{Name: TableWikiPage, DIType: dataitem.TypeWikiPage, ValueField: "o_id"},
	{Name: TableNumber, DIType: dataitem.TypeNumber, ValueField: "o_serialized"},
	{Name: TableType, DIType: dataitem.TypeURI, FixedProperty: dataitem.KeyType, ValueField: "o_serialized"},
	{Name: TableImport, DIType: dataitem.TypeBlob, FixedProperty: dataitem.KeyImport, ValueField: "o_blob"},
}

var typeTables = map[string]string{
	"_wpg":  TableWikiPage,
	"_num":  TableNumber,
	"_qty":  TableNumber,
	"_tem":  TableNumber,
	"_txt":  TableBlob,
	"_str":  TableBlob,
	"_cod":  TableBlob,
	"_uri":  TableBlob,
	"_ema":  TableBlob,
	"__typ": TableType,
	"__imp": TableImport,
}

// typeLabels maps "Has type" values to type ids.
var typeLabels = map[string]string{
	"page":        "_wpg",
	"number":      "_num",
	"quantity":    "_qty",
	"temperature": "_tem",
	"text":        "_txt",
	"string":      "_str",
	"code":        "_cod",
	"url":         "_uri",
	"email":       "_ema",
}

// FindTypeTableID returns the id of the table storing values of typeID, or
// "" for unknown types.
func (s *Store) FindTypeTableID(typeID string) string {
	return typeTables[typeID]
}

// PropertyTables returns all table definitions keyed by table id.
func (s *Store) PropertyTables() map[string]*TableDefinition {
	out := make(map[string]*TableDefinition, len(propertyTables))
	for i := range propertyTables {
		def := propertyTables[i]
		out[def.Name] = &def
	}
	return out
}

// TypeIDFromLabel maps a declared type label ("Number") or a raw type id
// ("_num") onto a known type id.
func TypeIDFromLabel(label string) (string, bool) {
	if _, ok := typeTables[label]; ok {
		return label, true
	}
	id, ok := typeLabels[strings.ToLower(strings.TrimSpace(label))]
	return id, ok
}
