package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aleber123/nytt-sub001/internal/catalog"
	"github.com/aleber123/nytt-sub001/pkg/httputil"
)

// CatalogHandler serves the reference data the wizard steps render.
type CatalogHandler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(cat *catalog.Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: cat,
		logger:  logger,
	}
}

// ListCountries handles GET /api/v1/catalog/countries
func (h *CatalogHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.catalog.Countries()})
}

// CountryServices handles GET /api/v1/catalog/countries/{code}/services
func (h *CatalogHandler) CountryServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.ServicesFor(chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: services})
}

// VisaProducts handles GET /api/v1/catalog/countries/{code}/visa-products
func (h *CatalogHandler) VisaProducts(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	country, ok := h.catalog.Country(code)
	if !ok {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "unknown country " + code},
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.catalog.VisaProducts(country.Code)})
}

// ListDocumentTypes handles GET /api/v1/catalog/document-types
func (h *CatalogHandler) ListDocumentTypes(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.catalog.DocumentTypes()})
}
