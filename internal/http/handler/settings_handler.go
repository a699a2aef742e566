package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/probelink/probelink/internal/domain"
	"github.com/probelink/probelink/internal/http/response"
	"github.com/probelink/probelink/internal/observability"
	"github.com/probelink/probelink/internal/service"
)

// SettingsHandler exposes the mutable relay settings to authenticated
// viewers.
type SettingsHandler struct {
	settings *service.SettingsService
}

func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

type settingsBody struct {
	Ok       bool            `json:"ok"`
	Settings domain.Settings `json:"settings"`
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, settingsBody{Ok: true, Settings: h.settings.Get()})
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var settings domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		response.Fail(w, r, http.StatusBadRequest, "malformed_request")
		return
	}

	updated, err := h.settings.Update(r.Context(), settings)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSettings) {
			response.Fail(w, r, http.StatusBadRequest, "invalid_settings")
			return
		}
		response.Fail(w, r, http.StatusInternalServerError, "settings_update_failed")
		return
	}
	observability.Audit(r, "settings_updated")
	response.JSON(w, r, http.StatusOK, settingsBody{Ok: true, Settings: updated})
}
