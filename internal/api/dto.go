package api

import (
	"github.com/starford/semwiki/internal/models"
	"github.com/starford/semwiki/internal/wikiservice"
)

// PropertyListResponse is a property lookup result (aliased from the domain layer).
type PropertyListResponse = wikiservice.PropertyList

// PropertyItem is one property row (aliased from the domain layer).
type PropertyItem = wikiservice.PropertyItem

// ResourceResponse is the export resource of a page (aliased from the domain layer).
type ResourceResponse = wikiservice.Resource

// PageSummaryResponse is the semantic summary of a page.
type PageSummaryResponse = models.PageSummary

// PropertyItemDTO mirrors PropertyItem with examples for swag.
type PropertyItemDTO struct {
	Name   string   `json:"name" example:"Has_note" validate:"required"`
	Label  string   `json:"label,omitempty" example:"Has note"`
	Count  int      `json:"count" example:"3" validate:"required"`
	Errors []string `json:"errors,omitempty"`
}

// ResourceDTO mirrors ResourceResponse with examples for swag.
type ResourceDTO struct {
	URI   string `json:"uri" example:"http://example.org/id/Property-3AHas_note" validate:"required"`
	QName string `json:"qname" example:"property:Has_note" validate:"required"`
}
