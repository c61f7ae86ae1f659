package api

import (
	"github.com/starford/medlog/internal/medservice"
	"github.com/starford/medlog/internal/models"
	"github.com/starford/medlog/internal/scanner"
	"github.com/starford/medlog/internal/schedule"
)

// MedicationRequest is the request body for creating or updating a
// medication (aliased from the domain layer; the id field is ignored on
// create and taken from the URL on update).
type MedicationRequest = medservice.MedicationInput

// MedicationListResponse wraps scoped medication listings.
type MedicationListResponse struct {
	Medications []models.Medication `json:"medications" validate:"required"`
	Total       int                 `json:"total" example:"3" validate:"required"`
}

// DoseRequest is the request body for recording a dose. An empty date means
// today.
type DoseRequest struct {
	Date string `json:"date" example:"2026-08-30"`
}

// ScheduleResponse is the computed day view for one scope.
type ScheduleResponse struct {
	Date        string                      `json:"date" example:"2026-08-30" validate:"required"`
	Scope       string                      `json:"scope" example:"self" validate:"required"`
	Medications []schedule.MedicationStatus `json:"medications" validate:"required"`
	Progress    schedule.Progress           `json:"progress" validate:"required"`
}

// AdherenceResponse is the trailing-week adherence view (aliased from the
// domain layer).
type AdherenceResponse = schedule.WeeklyStats

// HistoryResponse wraps the filtered, day-grouped intake history.
type HistoryResponse struct {
	Groups []schedule.HistoryGroup `json:"groups" validate:"required"`
	Total  int                     `json:"total" example:"12" validate:"required"`
}

// ProfileResponse bundles the singleton profile with its dependents.
type ProfileResponse struct {
	Profile    models.UserProfile `json:"profile" validate:"required"`
	Dependents []models.Dependent `json:"dependents" validate:"required"`
}

// ProfileRequest is the request body for saving the profile. A nil
// dependents field leaves the dependents collection untouched; an empty
// array clears it.
type ProfileRequest struct {
	Profile    models.UserProfile  `json:"profile" validate:"required"`
	Dependents *[]models.Dependent `json:"dependents"`
}

// ScanResponse is the form prefill extracted from a label photo (aliased
// from the scanner layer).
type ScanResponse = scanner.Prefill

// ScanAlert is the user-facing message attached to scan failures.
type ScanAlert struct {
	Title string `json:"title" example:"Scan Failed" validate:"required"`
	Body  string `json:"body" validate:"required"`
}

// ScanErrorResponse is returned when the vision endpoint is unavailable or
// could not read the label.
type ScanErrorResponse struct {
	Error string    `json:"error" validate:"required"`
	Alert ScanAlert `json:"alert" validate:"required"`
}
