package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/dom/kaf-catalog/internal/api/middleware"
	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type WatchlistHandler struct {
	watchlistService *service.WatchlistService
	logger           *zap.Logger
}

func NewWatchlistHandler(watchlistService *service.WatchlistService, logger *zap.Logger) *WatchlistHandler {
	return &WatchlistHandler{watchlistService: watchlistService, logger: logger}
}

// itemID accepts both JSON strings and numbers; remote catalog ids arrive
// as numbers from the frontend.
type itemID string

func (id *itemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = itemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = itemID(n.String())
	return nil
}

type itemRequest struct {
	Provider domain.Provider `json:"provider"`
	ID       itemID          `json:"id"`
}

// AddItemRequest accepts {"item": {...}} as well as a bare item object.
type AddItemRequest struct {
	Item *itemRequest `json:"item"`
	itemRequest
}

func (h *WatchlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items, err := h.watchlistService.Get(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, h.logger, "watchlist.Get", err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	item := req.itemRequest
	if req.Item != nil {
		item = *req.Item
	}

	items, err := h.watchlistService.Add(r.Context(), identity.UserID, domain.ItemRef{
		Provider: item.Provider,
		ID:       string(item.ID),
	})
	if err != nil {
		writeServiceError(w, h.logger, "watchlist.Add", err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	provider := domain.Provider(chi.URLParam(r, "provider"))
	id := chi.URLParam(r, "id")

	items, err := h.watchlistService.Remove(r.Context(), identity.UserID, provider, id)
	if err != nil {
		writeServiceError(w, h.logger, "watchlist.Remove", err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}
