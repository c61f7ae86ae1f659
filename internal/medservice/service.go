// Package medservice owns the application state (the four persisted
// collections) and every mutation operation over it. All shared state lives
// behind one mutex; each mutation persists the affected collection before it
// returns, so storage never trails memory.
package medservice

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/medlog/internal/apperr"
	"github.com/starford/medlog/internal/checksum"
	"github.com/starford/medlog/internal/models"
	"github.com/starford/medlog/internal/notify"
	"github.com/starford/medlog/internal/storage"
)

// Collection names used in change events.
const (
	CollectionMedications = "medications"
	CollectionLogs        = "logs"
	CollectionDependents  = "dependents"
	CollectionProfile     = "profile"
)

var keyCollections = map[string]string{
	storage.KeyMedications: CollectionMedications,
	storage.KeyLogs:        CollectionLogs,
	storage.KeyDependents:  CollectionDependents,
	storage.KeyProfile:     CollectionProfile,
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithOnChange registers a callback invoked with the collection name after
// every persisted mutation.
func WithOnChange(cb func(collection string)) Option {
	return func(s *Service) { s.onChange = cb }
}

// Service coordinates the in-memory collections, durable storage, and user
// feedback for all mutation operations.
type Service struct {
	mu       sync.Mutex
	store    storage.Provider
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
	onChange func(string)

	meds       []models.Medication
	logs       []models.IntakeLog
	dependents []models.Dependent
	profile    models.UserProfile

	// saved maps collection key to the checksum of the value last written
	// to (or read from) storage, so the watcher can tell self-writes from
	// external edits.
	saved map[string]string
}

// New loads all four collections from storage and returns a ready Service.
// A missing or unparsable collection degrades to its default value.
func New(store storage.Provider, notifier notify.Notifier, logger *slog.Logger, opts ...Option) (*Service, error) {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		saved:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s, nil
}

// loadLocked reads every collection, independently falling back to defaults.
func (s *Service) loadLocked() {
	s.meds = loadCollection[models.Medication](s, storage.KeyMedications)
	s.logs = loadCollection[models.IntakeLog](s, storage.KeyLogs)
	s.dependents = loadCollection[models.Dependent](s, storage.KeyDependents)

	s.profile = models.DefaultProfile()
	data, err := s.store.Get(storage.KeyProfile)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
	case err != nil:
		s.logger.Warn("load profile failed, using default", slog.String("error", err.Error()))
	default:
		s.saved[storage.KeyProfile] = checksum.Sum(data)
		var p models.UserProfile
		if jsonErr := json.Unmarshal(data, &p); jsonErr != nil {
			s.logger.Warn("profile entry unparsable, using default", slog.String("error", jsonErr.Error()))
		} else {
			s.profile = p
		}
	}
}

func loadCollection[T any](s *Service, key string) []T {
	data, err := s.store.Get(key)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Warn("load collection failed, using default",
			slog.String("key", key), slog.String("error", err.Error()))
		return nil
	}
	s.saved[key] = checksum.Sum(data)
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn("collection entry unparsable, using default",
			slog.String("key", key), slog.String("error", err.Error()))
		return nil
	}
	return out
}

// persistLocked serializes v, writes it to key, and fires the change event.
func (s *Service) persistLocked(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("medservice: marshal %s: %w", keyCollections[key], err)
	}
	if err := s.store.Put(key, data); err != nil {
		return fmt.Errorf("medservice: save %s: %w", keyCollections[key], err)
	}
	s.saved[key] = checksum.Sum(data)
	if s.onChange != nil {
		s.onChange(keyCollections[key])
	}
	return nil
}

// LastChecksum returns the checksum of the value last synchronized with
// storage for key, or "" when the key has never been written or read.
func (s *Service) LastChecksum(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[key]
}

// Reload re-reads every collection from storage, replacing in-memory state.
// Used when the data files change underneath the process.
func (s *Service) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = make(map[string]string)
	s.loadLocked()
}

// MedicationInput carries the add/edit form fields. Zero values mean
// "not supplied": on update the existing field is preserved, on create the
// documented default applies.
type MedicationInput struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name"`
	Dosage         string   `json:"dosage"`
	DosageUnit     string   `json:"dosageUnit"`
	Form           string   `json:"type"`
	Category       string   `json:"category"`
	Frequency      int      `json:"frequency"`
	ScheduledTimes []string `json:"scheduledTimes"`
	DependentID    string   `json:"dependentId"`
}

// normalizeDependent maps the form's "self" sentinel to the empty owner.
func normalizeDependent(id string) string {
	if id == schedulerSelf {
		return ""
	}
	return id
}

// schedulerSelf mirrors schedule.ScopeSelf without importing the package.
const schedulerSelf = "self"

// SaveMedication creates or updates a medication. A missing name aborts with
// apperr.ErrValidation and no state change; creation additionally requires a
// set-up profile. New records are prepended (most-recent-first).
func (s *Service) SaveMedication(input MedicationInput) (*models.Medication, error) {
	if strings.TrimSpace(input.Name) == "" {
		s.notifier.Toast("Error", "Medication name is required")
		return nil, apperr.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if input.ID != "" {
		return s.updateLocked(input)
	}
	return s.createLocked(input)
}

func (s *Service) updateLocked(input MedicationInput) (*models.Medication, error) {
	for i := range s.meds {
		if s.meds[i].ID != input.ID {
			continue
		}
		m := &s.meds[i]
		m.Name = input.Name
		if input.Dosage != "" {
			m.Dosage = input.Dosage
		}
		if input.DosageUnit != "" {
			m.DosageUnit = input.DosageUnit
		}
		if input.Form != "" {
			m.Form = models.ParseForm(input.Form)
		}
		if input.Category != "" {
			m.Category = strings.ToUpper(input.Category)
		}
		if input.Frequency > 0 {
			m.Frequency = input.Frequency
			m.Interval = models.IntervalLabel(input.Frequency)
		}
		if input.ScheduledTimes != nil {
			m.ScheduledTimes = input.ScheduledTimes
		}
		m.DependentID = normalizeDependent(input.DependentID)

		if err := s.persistLocked(storage.KeyMedications, s.meds); err != nil {
			return nil, err
		}
		s.notifier.Toast("Updated", m.Name+" changes saved")
		out := *m
		return &out, nil
	}
	return nil, apperr.ErrNotFound
}

func (s *Service) createLocked(input MedicationInput) (*models.Medication, error) {
	if !s.profile.SetUp() {
		s.notifier.Toast("Profile Required", "Please set up your name first")
		return nil, apperr.ErrProfileRequired
	}

	form := models.FormTablet
	if input.Form != "" {
		form = models.ParseForm(input.Form)
	}
	frequency := input.Frequency
	if frequency <= 0 {
		frequency = 1
	}
	times := input.ScheduledTimes
	if len(times) == 0 {
		times = models.SuggestedTimes(frequency)
	}
	dosage := input.Dosage
	if dosage == "" {
		dosage = "10"
	}
	unit := input.DosageUnit
	if unit == "" {
		unit = form.DefaultUnit()
	}
	category := "GENERAL"
	if input.Category != "" {
		category = strings.ToUpper(input.Category)
	}
	nextDose := "09:00 AM"
	if len(times) > 0 {
		nextDose = times[0]
	}

	med := models.Medication{
		ID:             models.NewID(),
		Name:           input.Name,
		Dosage:         dosage,
		DosageUnit:     unit,
		Form:           form,
		Category:       category,
		Frequency:      frequency,
		Interval:       models.IntervalLabel(frequency),
		NextDose:       nextDose,
		ScheduledTimes: times,
		Status:         models.StatusActive,
		DependentID:    normalizeDependent(input.DependentID),
	}

	s.meds = append([]models.Medication{med}, s.meds...)
	if err := s.persistLocked(storage.KeyMedications, s.meds); err != nil {
		return nil, err
	}
	s.notifier.Toast("Success", med.Name+" added to schedule")
	return &med, nil
}

// RecordDose appends a Confirmed intake log for the medication on the given
// date (today when empty). An unknown medication id is a silent no-op: stale
// UI state, not an error. Frequency is deliberately not a cap; excess logs
// are retained and the day simply reads as complete.
func (s *Service) RecordDose(medicationID, date string) (*models.IntakeLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now().Format(models.DateLayout)
	if date == "" {
		date = today
	}

	var med *models.Medication
	for i := range s.meds {
		if s.meds[i].ID == medicationID {
			med = &s.meds[i]
			break
		}
	}
	if med == nil {
		return nil, nil
	}

	timeStr := s.now().Format(models.ClockLayout)
	log := models.IntakeLog{
		ID:             models.NewID(),
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Time:           timeStr,
		Date:           date,
		Status:         models.LogConfirmed,
		DependentID:    med.DependentID,
	}

	s.logs = append([]models.IntakeLog{log}, s.logs...)
	if err := s.persistLocked(storage.KeyLogs, s.logs); err != nil {
		return nil, err
	}

	if date == today {
		med.LastTaken = timeStr + " today"
		if err := s.persistLocked(storage.KeyMedications, s.meds); err != nil {
			return nil, err
		}
	}

	s.notifier.Toast("Dose Logged", "Recorded "+med.Name+" at "+timeStr)
	return &log, nil
}

// DeleteMedication removes the medication from the collection. Historical
// logs are retained untouched. Deleting an unknown id is benign.
func (s *Service) DeleteMedication(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := "Medication"
	kept := s.meds[:0]
	found := false
	for _, m := range s.meds {
		if m.ID == id {
			name = m.Name
			found = true
			continue
		}
		kept = append(kept, m)
	}
	s.meds = kept

	if found {
		if err := s.persistLocked(storage.KeyMedications, s.meds); err != nil {
			return err
		}
	}
	s.notifier.Toast("Deleted", name+" removed")
	return nil
}

// SaveProfile replaces the profile wholesale. When dependents is non-nil the
// dependents collection is replaced too (the profile editor manages family
// members inline). Removing a dependent never cascades to their medications
// or logs; the orphaned records stay in storage but no longer match any
// selectable scope.
func (s *Service) SaveProfile(profile models.UserProfile, dependents []models.Dependent) error {
	if strings.TrimSpace(profile.Name) == "" {
		s.notifier.Toast("Error", "Please enter your name to continue")
		return apperr.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = profile
	if err := s.persistLocked(storage.KeyProfile, s.profile); err != nil {
		return err
	}

	if dependents != nil {
		s.warnOrphansLocked(dependents)
		s.dependents = dependents
		if err := s.persistLocked(storage.KeyDependents, s.dependents); err != nil {
			return err
		}
	}

	s.notifier.Toast("Profile Updated", "Information saved successfully")
	return nil
}

// warnOrphansLocked logs when a removed dependent still owns records.
func (s *Service) warnOrphansLocked(next []models.Dependent) {
	keep := make(map[string]struct{}, len(next))
	for _, d := range next {
		keep[d.ID] = struct{}{}
	}
	for _, d := range s.dependents {
		if _, ok := keep[d.ID]; ok {
			continue
		}
		meds, logs := 0, 0
		for _, m := range s.meds {
			if m.DependentID == d.ID {
				meds++
			}
		}
		for _, l := range s.logs {
			if l.DependentID == d.ID {
				logs++
			}
		}
		if meds > 0 || logs > 0 {
			s.logger.Warn("dependent removed with records left orphaned",
				slog.String("dependent_id", d.ID),
				slog.Int("medications", meds),
				slog.Int("logs", logs))
		}
	}
}

// Reset clears every collection to its default and removes all four storage
// keys under one critical section, so storage and memory never disagree.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meds = nil
	s.logs = nil
	s.dependents = nil
	s.profile = models.DefaultProfile()

	for _, key := range storage.Keys {
		if err := s.store.Delete(key); err != nil {
			return fmt.Errorf("medservice: reset: %w", err)
		}
		delete(s.saved, key)
		if s.onChange != nil {
			s.onChange(keyCollections[key])
		}
	}

	s.notifier.Toast("App Reset", "All your data has been permanently cleared.")
	return nil
}

// Snapshot returns copies of the collections for derived-state computation.
func (s *Service) Snapshot() ([]models.Medication, []models.IntakeLog, []models.Dependent, models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meds := make([]models.Medication, len(s.meds))
	copy(meds, s.meds)
	logs := make([]models.IntakeLog, len(s.logs))
	copy(logs, s.logs)
	deps := make([]models.Dependent, len(s.dependents))
	copy(deps, s.dependents)
	return meds, logs, deps, s.profile
}

// Medication looks up one medication by id.
func (s *Service) Medication(id string) (models.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meds {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Medication{}, apperr.ErrNotFound
}

// Profile returns the current profile and dependents.
func (s *Service) Profile() (models.UserProfile, []models.Dependent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deps := make([]models.Dependent, len(s.dependents))
	copy(deps, s.dependents)
	return s.profile, deps
}

// Now exposes the service clock (the API layer uses it for default dates).
func (s *Service) Now() time.Time {
	return s.now()
}
