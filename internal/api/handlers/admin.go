package handlers

import (
	"errors"
	"net/http"

	"github.com/dom/kaf-catalog/internal/api/middleware"
	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/service"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

type AdminHandler struct {
	catalogService *service.CatalogService
	logger         *zap.Logger
}

func NewAdminHandler(catalogService *service.CatalogService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{catalogService: catalogService, logger: logger}
}

type UploadResponse struct {
	OK    bool               `json:"ok"`
	Movie *domain.LocalTitle `json:"movie"`
}

func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	// Refuse before reading the body so non-admins cannot push files at us.
	if !identity.IsAdmin() {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	input := service.UploadInput{
		Title:    r.FormValue("title"),
		Year:     r.FormValue("year"),
		Genres:   r.FormValue("genres"),
		Overview: r.FormValue("overview"),
	}

	file, header, err := r.FormFile("poster")
	switch {
	case err == nil:
		defer file.Close()
		input.Poster = &service.PosterUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		writeError(w, http.StatusBadRequest, "Invalid poster upload")
		return
	}

	movie, err := h.catalogService.UploadLocal(r.Context(), identity, input)
	if err != nil {
		writeServiceError(w, h.logger, "admin.Upload", err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{OK: true, Movie: movie})
}
