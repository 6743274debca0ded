package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/semwiki/internal/wikiservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc *wikiservice.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Property lists.
	r.Get("/properties/undeclared", h.UndeclaredProperties)
	r.Get("/properties/usage", h.PropertyUsage)
	r.Get("/properties/unused", h.UnusedProperties)

	// Export.
	r.Get("/export/resource", h.ExportResource)

	// Pages.
	r.Get("/pages/*", h.GetPage)

	return r
}
