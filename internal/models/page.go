// Package models defines the shared domain types for semwiki.
package models

import "time"

// PageMetadata is a lightweight representation of a vault file returned by
// list operations.
type PageMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Annotation is one property value stated on a page. Subobject is empty for
// values of the page itself.
type Annotation struct {
	Subobject string `json:"subobject,omitempty"`
	Property  string `json:"property"`
	Value     string `json:"value"`
}

// PageSummary is the rendered view of an indexed page.
type PageSummary struct {
	Path        string       `json:"path"`
	Title       string       `json:"title"`
	Namespace   int          `json:"namespace"`
	Revision    int          `json:"revision"`
	Annotations []Annotation `json:"annotations"`
	QueryRefs   []string     `json:"query_refs"`
	PostProc    string       `json:"postproc_html,omitempty"`
}
