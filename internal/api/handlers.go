package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/medlog/internal/apperr"
	"github.com/starford/medlog/internal/medservice"
	"github.com/starford/medlog/internal/models"
	"github.com/starford/medlog/internal/notify"
	"github.com/starford/medlog/internal/scanner"
	"github.com/starford/medlog/internal/schedule"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *medservice.Service
	scan   scanner.Client // nil when the scanner is not configured
	center *notify.Center
}

// NewHandler creates a new Handler.
func NewHandler(svc *medservice.Service, scan scanner.Client, center *notify.Center) *Handler {
	return &Handler{svc: svc, scan: scan, center: center}
}

// scopeParam reads the scope query parameter, defaulting to the primary user.
func scopeParam(r *http.Request) string {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		return schedule.ScopeSelf
	}
	return scope
}

// ListMedications handles GET /api/medications.
//
//	@Summary		List medications for a scope
//	@Tags			medications
//	@Produce		json
//	@Param			scope	query		string	false	"self or a dependent id"
//	@Param			q		query		string	false	"Case-insensitive name or category filter"
//	@Param			time	query		string	false	"Time-of-day filter"	Enums(All, Morning, Afternoon)
//	@Success		200		{object}	MedicationListResponse
//	@Security		BearerAuth
//	@Router			/medications [get]
func (h *Handler) ListMedications(w http.ResponseWriter, r *http.Request) {
	meds, logs, _, _ := h.svc.Snapshot()
	meds, _ = schedule.ForScope(meds, logs, scopeParam(r))
	meds = schedule.FilterMedications(meds, r.URL.Query().Get("q"), r.URL.Query().Get("time"))
	if meds == nil {
		meds = []models.Medication{}
	}
	writeJSON(w, http.StatusOK, MedicationListResponse{
		Medications: meds,
		Total:       len(meds),
	})
}

// CreateMedication handles POST /api/medications.
//
//	@Summary		Add a medication to the schedule
//	@Tags			medications
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MedicationRequest	true	"Medication to create"
//	@Success		201		{object}	models.Medication
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/medications [post]
func (h *Handler) CreateMedication(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req MedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	req.ID = ""

	med, err := h.svc.SaveMedication(req)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorBody("medication name is required"))
		case errors.Is(err, apperr.ErrProfileRequired):
			writeJSON(w, http.StatusConflict, errorBody("profile must be set up first"))
		default:
			slog.Error("create medication failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, med)
}

// UpdateMedication handles PUT /api/medications/{id}.
//
//	@Summary		Update an existing medication
//	@Tags			medications
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Medication id"
//	@Param			body	body		MedicationRequest	true	"Fields to change"
//	@Success		200		{object}	models.Medication
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/medications/{id} [put]
func (h *Handler) UpdateMedication(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")

	var req MedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	req.ID = id

	med, err := h.svc.SaveMedication(req)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorBody("medication name is required"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		default:
			slog.Error("update medication failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, med)
}

// DeleteMedication handles DELETE /api/medications/{id}.
//
//	@Summary		Delete a medication, keeping its intake history
//	@Tags			medications
//	@Param			id	path	string	true	"Medication id"
//	@Success		204	"Medication deleted"
//	@Security		BearerAuth
//	@Router			/medications/{id} [delete]
func (h *Handler) DeleteMedication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteMedication(id); err != nil {
		slog.Error("delete medication failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordDose handles POST /api/medications/{id}/doses.
//
//	@Summary		Record a taken dose
//	@Tags			doses
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Medication id"
//	@Param			body	body		DoseRequest	false	"Dose date, defaults to today"
//	@Success		201		{object}	models.IntakeLog
//	@Success		204		"Medication no longer exists; nothing recorded"
//	@Security		BearerAuth
//	@Router			/medications/{id}/doses [post]
func (h *Handler) RecordDose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DoseRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}

	log, err := h.svc.RecordDose(id, req.Date)
	if err != nil {
		slog.Error("record dose failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if log == nil {
		// Stale client state: the medication is gone, and that is fine.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, log)
}

// Schedule handles GET /api/schedule.
//
//	@Summary		Computed day schedule with per-medication dose status
//	@Tags			schedule
//	@Produce		json
//	@Param			scope	query		string	false	"self or a dependent id"
//	@Param			date	query		string	false	"YYYY-MM-DD, defaults to today"
//	@Success		200		{object}	ScheduleResponse
//	@Security		BearerAuth
//	@Router			/schedule [get]
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	scope := scopeParam(r)
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.svc.Now().Format(models.DateLayout)
	}

	meds, logs, _, _ := h.svc.Snapshot()
	meds, logs = schedule.ForScope(meds, logs, scope)
	statuses := schedule.DayStatuses(meds, logs, date)
	if statuses == nil {
		statuses = []schedule.MedicationStatus{}
	}

	writeJSON(w, http.StatusOK, ScheduleResponse{
		Date:        date,
		Scope:       scope,
		Medications: statuses,
		Progress:    schedule.DayProgress(statuses),
	})
}

// Adherence handles GET /api/adherence.
//
//	@Summary		Trailing seven-day adherence statistics
//	@Tags			schedule
//	@Produce		json
//	@Param			scope	query		string	false	"self or a dependent id"
//	@Success		200		{object}	AdherenceResponse
//	@Security		BearerAuth
//	@Router			/adherence [get]
func (h *Handler) Adherence(w http.ResponseWriter, r *http.Request) {
	meds, logs, _, _ := h.svc.Snapshot()
	meds, logs = schedule.ForScope(meds, logs, scopeParam(r))
	writeJSON(w, http.StatusOK, schedule.WeeklyAdherence(meds, logs, h.svc.Now()))
}

// History handles GET /api/history.
//
//	@Summary		Intake history grouped by day, newest day first
//	@Tags			history
//	@Produce		json
//	@Param			scope	query		string	false	"self or a dependent id"
//	@Param			q		query		string	false	"Case-insensitive medication name filter"
//	@Param			date	query		string	false	"Exact date filter, YYYY-MM-DD"
//	@Success		200		{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	date := r.URL.Query().Get("date")

	meds, logs, _, _ := h.svc.Snapshot()
	_, logs = schedule.ForScope(meds, logs, scopeParam(r))
	groups := schedule.GroupHistory(logs, q, date)
	if groups == nil {
		groups = []schedule.HistoryGroup{}
	}

	total := 0
	for _, g := range groups {
		total += len(g.Logs)
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Groups: groups, Total: total})
}

// GetProfile handles GET /api/profile.
//
//	@Summary		Get the user profile and dependents
//	@Tags			profile
//	@Produce		json
//	@Success		200	{object}	ProfileResponse
//	@Security		BearerAuth
//	@Router			/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, dependents := h.svc.Profile()
	if dependents == nil {
		dependents = []models.Dependent{}
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Profile: profile, Dependents: dependents})
}

// SaveProfile handles PUT /api/profile.
//
//	@Summary		Save the user profile, optionally replacing dependents
//	@Tags			profile
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ProfileRequest	true	"Profile to save"
//	@Success		200		{object}	ProfileResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/profile [put]
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	var dependents []models.Dependent
	if req.Dependents != nil {
		dependents = *req.Dependents
		if dependents == nil {
			dependents = []models.Dependent{}
		}
	}

	if err := h.svc.SaveProfile(req.Profile, dependents); err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		} else {
			slog.Error("save profile failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	profile, deps := h.svc.Profile()
	if deps == nil {
		deps = []models.Dependent{}
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Profile: profile, Dependents: deps})
}

// Reset handles POST /api/reset.
//
//	@Summary		Permanently clear all application data
//	@Tags			profile
//	@Success		204	"All data cleared"
//	@Security		BearerAuth
//	@Router			/reset [post]
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(); err != nil {
		slog.Error("reset failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const scanFailureBody = "Could not read the label. Please try again or enter the details manually."

// Scan handles POST /api/scan.
//
//	@Summary		Extract form prefill from a label photo
//	@Tags			scan
//	@Accept			mpfd
//	@Produce		json
//	@Param			image	formData	file	true	"Label photo"
//	@Success		200		{object}	ScanResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	ScanErrorResponse
//	@Failure		503		{object}	ScanErrorResponse
//	@Security		BearerAuth
//	@Router			/scan [post]
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	if h.scan == nil {
		writeJSON(w, http.StatusServiceUnavailable, ScanErrorResponse{
			Error: "scanner not configured",
			Alert: ScanAlert{Title: "Scan Unavailable", Body: "Label scanning is not set up on this server."},
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("image file is required"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read image"))
		return
	}

	prefill, err := h.scan.Scan(r.Context(), image, header.Header.Get("Content-Type"))
	if err != nil {
		slog.Error("label scan failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ScanErrorResponse{
			Error: "scan failed",
			Alert: ScanAlert{Title: "Scan Failed", Body: scanFailureBody},
		})
		return
	}
	writeJSON(w, http.StatusOK, prefill)
}
