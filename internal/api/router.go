package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/medlog/internal/medservice"
	"github.com/starford/medlog/internal/notify"
	"github.com/starford/medlog/internal/scanner"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// scan may be nil, in which case POST /scan reports the feature unavailable.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *medservice.Service, scan scanner.Client, center *notify.Center, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, scan, center)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Medications CRUD.
	r.Get("/medications", h.ListMedications)
	r.Post("/medications", h.CreateMedication)
	r.Put("/medications/{id}", h.UpdateMedication)
	r.Delete("/medications/{id}", h.DeleteMedication)

	// Dose logging.
	r.Post("/medications/{id}/doses", h.RecordDose)

	// Derived views.
	r.Get("/schedule", h.Schedule)
	r.Get("/adherence", h.Adherence)
	r.Get("/history", h.History)

	// Profile and dependents.
	r.Get("/profile", h.GetProfile)
	r.Put("/profile", h.SaveProfile)
	r.Post("/reset", h.Reset)

	// Reminder preferences.
	r.Get("/reminders", h.GetReminders)
	r.Put("/reminders", h.SaveReminders)
	r.Post("/reminders/{id}/test", h.TestReminder)

	// Label scanning.
	r.Post("/scan", h.Scan)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
