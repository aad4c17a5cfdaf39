package handler

import (
	"context"
	"net/http"

	"github.com/collectr-app/authgate/internal/logger"
	"github.com/collectr-app/authgate/internal/model"
)

// PreferencesService defines typed local preference operations.
type PreferencesService interface {
	Load(ctx context.Context) (model.Preferences, error)
	Save(ctx context.Context, prefs model.Preferences) error
}

// Preferences handles HTTP endpoints for local preferences.
type Preferences struct {
	prefs  PreferencesService
	logger *logger.Logger
}

// NewPreferences creates a new Preferences handler.
func NewPreferences(prefs PreferencesService, logger *logger.Logger) *Preferences {
	return &Preferences{prefs: prefs, logger: logger}
}

type preferencesPayload struct {
	NotificationsEnabled bool `json:"notifications_enabled"`
}

// Get returns the stored preferences.
func (h *Preferences) Get(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.prefs.Load(r.Context())
	if err != nil {
		h.logger.Error("preferences handler: load failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, preferencesPayload{NotificationsEnabled: prefs.NotificationsEnabled})
}

// Put replaces the stored preferences.
func (h *Preferences) Put(w http.ResponseWriter, r *http.Request) {
	var req preferencesPayload
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	if err := h.prefs.Save(r.Context(), model.Preferences{NotificationsEnabled: req.NotificationsEnabled}); err != nil {
		h.logger.Error("preferences handler: save failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
