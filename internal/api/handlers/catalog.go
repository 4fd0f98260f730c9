package handlers

import (
	"net/http"
	"strconv"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
	logger         *zap.Logger
}

func NewCatalogHandler(catalogService *service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, logger: logger}
}

type SearchResponse struct {
	Results []domain.CatalogCard `json:"results"`
}

func (h *CatalogHandler) Combined(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	combined, err := h.catalogService.Combined(r.Context(), page)
	if err != nil {
		writeServiceError(w, h.logger, "catalog.Combined", err)
		return
	}

	writeJSON(w, http.StatusOK, combined)
}

func (h *CatalogHandler) Detail(w http.ResponseWriter, r *http.Request) {
	provider := domain.Provider(chi.URLParam(r, "provider"))
	id := chi.URLParam(r, "id")

	record, err := h.catalogService.Detail(r.Context(), provider, id)
	if err != nil {
		writeServiceError(w, h.logger, "catalog.Detail", err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.catalogService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, h.logger, "catalog.Search", err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
