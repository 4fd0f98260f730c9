package domain

import "github.com/google/uuid"

// ItemRef identifies a catalog item regardless of where it comes from.
type ItemRef struct {
	Provider Provider `json:"provider"`
	ID       string   `json:"id"`
}

func (r ItemRef) Key() string {
	return string(r.Provider) + ":" + r.ID
}

// Watchlist is the single record stored in a user's watchlist collection.
type Watchlist struct {
	UserID uuid.UUID `json:"userId"`
	Items  []ItemRef `json:"items"`
}

func (w *Watchlist) Contains(provider Provider, id string) bool {
	return w.indexOf(provider, id) >= 0
}

// Add appends the item unless an item with the same provider and id exists.
// It reports whether the list changed.
func (w *Watchlist) Add(item ItemRef) bool {
	if w.Contains(item.Provider, item.ID) {
		return false
	}
	w.Items = append(w.Items, item)
	return true
}

// Remove drops the matching item, keeping the order of the rest.
// It reports whether the list changed.
func (w *Watchlist) Remove(provider Provider, id string) bool {
	i := w.indexOf(provider, id)
	if i < 0 {
		return false
	}
	w.Items = append(w.Items[:i], w.Items[i+1:]...)
	return true
}

func (w *Watchlist) indexOf(provider Provider, id string) int {
	for i, item := range w.Items {
		if item.Provider == provider && item.ID == id {
			return i
		}
	}
	return -1
}
