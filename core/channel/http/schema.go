package http

import (
	"net/http"

	"github.com/artpar/searchtable/app"
	"github.com/artpar/searchtable/core/locale"
	"github.com/artpar/searchtable/pkg/jsonapi"
	"github.com/go-chi/chi/v5"
)

// SchemaHandler serves the derived layout of the current field list.
type SchemaHandler struct {
	sessions *app.SessionService
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(sessions *app.SessionService) *SchemaHandler {
	return &SchemaHandler{sessions: sessions}
}

// Routes returns a router with all schema routes.
func (h *SchemaHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.getLayout)
	r.Get("/fields", h.getFields)
	return r
}

// getLayout handles GET /_schema?locale=xx
func (h *SchemaHandler) getLayout(w http.ResponseWriter, r *http.Request) {
	loc := r.URL.Query().Get("locale")
	layout, diags := h.sessions.Layout(loc)
	if loc == "" {
		loc = h.sessions.DefaultLocale()
	}
	meta := jsonapi.Meta{
		"locale": loc,
		"layout": layout,
		"labels": locale.ForLocale(loc),
	}
	if len(diags) > 0 {
		meta["diagnostics"] = diags
	}
	jsonapi.WriteMeta(w, http.StatusOK, meta)
}

// getFields handles GET /_schema/fields
func (h *SchemaHandler) getFields(w http.ResponseWriter, r *http.Request) {
	fields := h.sessions.Fields()
	jsonapi.WriteMeta(w, http.StatusOK, jsonapi.Meta{
		"fields": fields,
		"count":  len(fields),
	})
}
