package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/medlog/internal/apperr"
	"github.com/starford/medlog/internal/notify"
)

// RemindersResponse bundles the current preferences with the selectable
// vocabularies so the settings screen needs a single request.
type RemindersResponse struct {
	Prefs         notify.Prefs   `json:"prefs" validate:"required"`
	Sounds        []notify.Sound `json:"sounds" validate:"required"`
	SnoozeOptions []string       `json:"snoozeOptions" validate:"required"`
}

// GetReminders handles GET /api/reminders.
//
//	@Summary		Get reminder preferences and selectable options
//	@Tags			reminders
//	@Produce		json
//	@Success		200	{object}	RemindersResponse
//	@Security		BearerAuth
//	@Router			/reminders [get]
func (h *Handler) GetReminders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RemindersResponse{
		Prefs:         h.center.Prefs(),
		Sounds:        notify.Sounds,
		SnoozeOptions: notify.SnoozeOptions,
	})
}

// SaveReminders handles PUT /api/reminders.
//
//	@Summary		Save reminder preferences
//	@Tags			reminders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		notify.Prefs	true	"Preferences to apply"
//	@Success		200		{object}	notify.Prefs
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reminders [put]
func (h *Handler) SaveReminders(w http.ResponseWriter, r *http.Request) {
	var prefs notify.Prefs
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.center.SetPrefs(prefs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.center.Prefs())
}

// TestReminder handles POST /api/reminders/{id}/test.
//
//	@Summary		Trigger a test push banner for a medication
//	@Tags			reminders
//	@Param			id	path	string	true	"Medication id"
//	@Success		204	"Test banner triggered (suppressed when push is disabled)"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reminders/{id}/test [post]
func (h *Handler) TestReminder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	med, err := h.svc.Medication(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	h.center.Push("Time for "+med.Name,
		"It's time for your scheduled dose of "+med.Name+". Please take 1 tablet with water.")
	w.WriteHeader(http.StatusNoContent)
}
