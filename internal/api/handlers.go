package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/semwiki/internal/apperr"
	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/wikiservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *wikiservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *wikiservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pagePath extracts the page path from the URL (everything after /api/pages/).
// Supports encoded slashes from OpenAPI clients (e.g. Property%2FHas_name.md).
func pagePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// listQuery reads the shared list parameters. Malformed numbers are
// rejected rather than ignored.
func listQuery(r *http.Request) (wikiservice.ListQuery, error) {
	q := r.URL.Query()
	var lq wikiservice.ListQuery
	var err error
	if v := q.Get("limit"); v != "" {
		if lq.Limit, err = strconv.Atoi(v); err != nil {
			return lq, apperr.ErrInvalidArgument
		}
	}
	if v := q.Get("offset"); v != "" {
		if lq.Offset, err = strconv.Atoi(v); err != nil {
			return lq, apperr.ErrInvalidArgument
		}
	}
	switch q.Get("sort") {
	case "", "count":
	case "name":
		lq.SortByName = true
	default:
		return lq, apperr.ErrInvalidArgument
	}
	switch q.Get("order") {
	case "", "asc":
	case "desc":
		lq.Descending = true
	default:
		return lq, apperr.ErrInvalidArgument
	}
	lq.Prefix = q.Get("prefix")
	lq.Contains = q.Get("contains")
	return lq, nil
}

type listFunc func(ctx context.Context, q wikiservice.ListQuery) (*wikiservice.PropertyList, error)

func (h *Handler) serveList(w http.ResponseWriter, r *http.Request, op string, fn listFunc) {
	lq, err := listQuery(r)
	if err != nil {
		writeError(w, op, err)
		return
	}
	list, err := fn(r.Context(), lq)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// UndeclaredProperties handles GET /api/properties/undeclared.
//
//	@Summary		List properties used without a declaration page
//	@Tags			properties
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			sort		query		string	false	"Sort field"	Enums(count, name)
//	@Param			order		query		string	false	"Sort order"	Enums(asc, desc)
//	@Param			prefix		query		string	false	"Name prefix"
//	@Param			contains	query		string	false	"Name substring"
//	@Success		200			{object}	PropertyListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/properties/undeclared [get]
func (h *Handler) UndeclaredProperties(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "undeclared properties", h.svc.UndeclaredProperties)
}

// PropertyUsage handles GET /api/properties/usage.
//
//	@Summary		List used properties with usage counts
//	@Tags			properties
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			sort		query		string	false	"Sort field"	Enums(count, name)
//	@Param			order		query		string	false	"Sort order"	Enums(asc, desc)
//	@Param			prefix		query		string	false	"Name prefix"
//	@Param			contains	query		string	false	"Name substring"
//	@Success		200			{object}	PropertyListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/properties/usage [get]
func (h *Handler) PropertyUsage(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "property usage", h.svc.PropertyUsage)
}

// UnusedProperties handles GET /api/properties/unused.
//
//	@Summary		List declared properties without usage
//	@Tags			properties
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			prefix		query		string	false	"Name prefix"
//	@Param			contains	query		string	false	"Name substring"
//	@Success		200			{object}	PropertyListResponse
//	@Security		BearerAuth
//	@Router			/properties/unused [get]
func (h *Handler) UnusedProperties(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "unused properties", h.svc.UnusedProperties)
}

// ExportResource handles GET /api/export/resource.
//
//	@Summary		Map a page onto its export resource
//	@Tags			export
//	@Produce		json
//	@Param			title		query		string	true	"Page title, optionally with namespace prefix"
//	@Param			ns			query		int		false	"Namespace id"
//	@Param			iw			query		string	false	"Interwiki prefix"
//	@Param			subobject	query		string	false	"Subobject name"
//	@Param			aux			query		bool	false	"Auxiliary resource"
//	@Success		200			{object}	ResourceDTO
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export/resource [get]
func (h *Handler) ExportResource(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	title := q.Get("title")
	if title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}

	page := dataitem.NewWikiPageFromText(title, dataitem.NSMain)
	if v := q.Get("ns"); v != "" {
		ns, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("ns must be an integer"))
			return
		}
		page = dataitem.NewWikiPage(title, ns, "", "")
	}
	page = dataitem.NewWikiPage(page.DBKey(), page.Namespace(), q.Get("iw"), q.Get("subobject"))
	aux := false
	if v := q.Get("aux"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("aux must be a boolean"))
			return
		}
		aux = b
	}

	res, err := h.svc.MapResource(r.Context(), page, aux)
	if err != nil {
		writeError(w, "export resource", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetPage handles GET /api/pages/*.
//
//	@Summary		Get the semantic summary of a page
//	@Tags			pages
//	@Produce		json
//	@Param			path	path		string	true	"Page path"
//	@Success		200		{object}	PageSummaryResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{path} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	path := pagePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	sum, err := h.svc.RenderPage(r.Context(), path, r)
	if err != nil {
		writeError(w, "get page", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
