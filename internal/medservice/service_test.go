package medservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/medlog/internal/apperr"
	"github.com/starford/medlog/internal/models"
	"github.com/starford/medlog/internal/storage"
)

// recorder captures notifications for assertions.
type recorder struct {
	mu     sync.Mutex
	toasts [][2]string
}

func (r *recorder) Toast(message, sub string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, [2]string{message, sub})
}

func (r *recorder) Push(string, string) {}

func (r *recorder) last(t *testing.T) [2]string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		t.Fatal("expected a toast, got none")
	}
	return r.toasts[len(r.toasts)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toasts)
}

var testClock = func() time.Time {
	return time.Date(2026, 8, 30, 9, 5, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *storage.File, *recorder) {
	t.Helper()
	store, err := storage.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	rec := &recorder{}
	svc, err := New(store, rec, slog.New(slog.NewTextHandler(os.Stderr, nil)), WithClock(testClock))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, store, rec
}

func setUpProfile(t *testing.T, svc *Service) {
	t.Helper()
	if err := svc.SaveProfile(models.UserProfile{Name: "Alex", BloodType: "O+", Allergies: "None"}, nil); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
}

func TestCreateRequiresProfile(t *testing.T) {
	svc, _, rec := newTestService(t)

	_, err := svc.SaveMedication(MedicationInput{Name: "Aspirin"})
	if !errors.Is(err, apperr.ErrProfileRequired) {
		t.Fatalf("err = %v, want ErrProfileRequired", err)
	}
	if got := rec.last(t); got[0] != "Profile Required" {
		t.Fatalf("toast = %q, want Profile Required", got[0])
	}
	meds, _, _, _ := svc.Snapshot()
	if len(meds) != 0 {
		t.Fatalf("medications = %d, want 0", len(meds))
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _, rec := newTestService(t)
	setUpProfile(t, svc)

	med, err := svc.SaveMedication(MedicationInput{Name: "Aspirin", Frequency: 2})
	if err != nil {
		t.Fatalf("SaveMedication: %v", err)
	}
	if med.ID == "" {
		t.Fatal("expected generated id")
	}
	if med.Dosage != "10" || med.DosageUnit != "mg" {
		t.Fatalf("dosage = %s %s, want 10 mg", med.Dosage, med.DosageUnit)
	}
	if med.Form != models.FormTablet || med.Category != "GENERAL" {
		t.Fatalf("form/category = %s/%s", med.Form, med.Category)
	}
	wantTimes := []string{"08:00 AM", "08:00 PM"}
	if len(med.ScheduledTimes) != 2 || med.ScheduledTimes[0] != wantTimes[0] || med.ScheduledTimes[1] != wantTimes[1] {
		t.Fatalf("scheduledTimes = %v, want %v", med.ScheduledTimes, wantTimes)
	}
	if med.Interval != "Every 12h" {
		t.Fatalf("interval = %q, want Every 12h", med.Interval)
	}
	if med.NextDose != "08:00 AM" {
		t.Fatalf("nextDose = %q, want 08:00 AM", med.NextDose)
	}
	if med.Status != models.StatusActive {
		t.Fatalf("status = %q, want active", med.Status)
	}
	if got := rec.last(t); got[0] != "Success" || got[1] != "Aspirin added to schedule" {
		t.Fatalf("toast = %v", got)
	}
}

func TestCreateLiquidDefaultsToMl(t *testing.T) {
	svc, _, _ := newTestService(t)
	setUpProfile(t, svc)

	med, err := svc.SaveMedication(MedicationInput{Name: "Cough Syrup", Form: "Liquid"})
	if err != nil {
		t.Fatalf("SaveMedication: %v", err)
	}
	if med.DosageUnit != "ml" {
		t.Fatalf("dosageUnit = %q, want ml", med.DosageUnit)
	}
}

func TestCreatePrepends(t *testing.T) {
	svc, _, _ := newTestService(t)
	setUpProfile(t, svc)

	if _, err := svc.SaveMedication(MedicationInput{Name: "First"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveMedication(MedicationInput{Name: "Second"}); err != nil {
		t.Fatal(err)
	}
	meds, _, _, _ := svc.Snapshot()
	if meds[0].Name != "Second" || meds[1].Name != "First" {
		t.Fatalf("order = %s, %s; want Second, First", meds[0].Name, meds[1].Name)
	}
}

func TestSaveMedicationEmptyName(t *testing.T) {
	svc, _, rec := newTestService(t)
	setUpProfile(t, svc)

	_, err := svc.SaveMedication(MedicationInput{Name: "   "})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if got := rec.last(t); got[1] != "Medication name is required" {
		t.Fatalf("toast = %v", got)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	svc, _, rec := newTestService(t)
	setUpProfile(t, svc)

	med, err := svc.SaveMedication(MedicationInput{Name: "Aspirin", Dosage: "100", DependentID: "dep-1"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.SaveMedication(MedicationInput{
		ID:          med.ID,
		Name:        "Aspirin Forte",
		Frequency:   3,
		DependentID: "self",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Aspirin Forte" {
		t.Fatalf("name = %q", updated.Name)
	}
	if updated.Dosage != "100" {
		t.Fatalf("dosage = %q, want preserved 100", updated.Dosage)
	}
	if updated.Interval != "Every 8h" {
		t.Fatalf("interval = %q, want Every 8h", updated.Interval)
	}
	if updated.DependentID != "" {
		t.Fatalf("dependentId = %q, want empty after self", updated.DependentID)
	}
	if got := rec.last(t); got[0] != "Updated" || got[1] != "Aspirin Forte changes saved" {
		t.Fatalf("toast = %v", got)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t)
	setUpProfile(t, svc)

	_, err := svc.SaveMedication(MedicationInput{ID: "missing", Name: "Ghost"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordDoseToday(t *testing.T) {
	svc, _, rec := newTestService(t)
	setUpProfile(t, svc)

	med, err := svc.SaveMedication(MedicationInput{Name: "Aspirin"})
	if err != nil {
		t.Fatal(err)
	}

	log, err := svc.RecordDose(med.ID, "")
	if err != nil {
		t.Fatalf("RecordDose: %v", err)
	}
	if log == nil {
		t.Fatal("expected a log entry")
	}
	if log.Time != "09:05 AM" || log.Date != "2026-08-30" {
		t.Fatalf("log time/date = %s %s", log.Time, log.Date)
	}
	if log.Status != models.LogConfirmed {
		t.Fatalf("status = %q", log.Status)
	}
	if log.MedicationName != "Aspirin" {
		t.Fatalf("medicationName = %q", log.MedicationName)
	}

	meds, logs, _, _ := svc.Snapshot()
	if len(logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(logs))
	}
	if meds[0].LastTaken != "09:05 AM today" {
		t.Fatalf("lastTaken = %q, want 09:05 AM today", meds[0].LastTaken)
	}
	if got := rec.last(t); got[0] != "Dose Logged" || got[1] != "Recorded Aspirin at 09:05 AM" {
		t.Fatalf("toast = %v", got)
	}
}

func TestRecordDosePastDateSkipsLastTaken(t *testing.T) {
	svc, _, _ := newTestService(t)
	setUpProfile(t, svc)

	med, err := svc.SaveMedication(MedicationInput{Name: "Aspirin"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordDose(med.ID, "2026-08-28"); err != nil {
		t.Fatal(err)
	}
	meds, _, _, _ := svc.Snapshot()
	if meds[0].LastTaken != "" {
		t.Fatalf("lastTaken = %q, want empty for past date", meds[0].LastTaken)
	}
}

func TestRecordDoseUnknownMedication(t *testing.T) {
	svc, _, rec := newTestService(t)
	setUpProfile(t, svc)
	before := rec.count()

	log, err := svc.RecordDose("missing", "")
	if err != nil || log != nil {
		t.Fatalf("got (%v, %v), want silent no-op", log, err)
	}
	if rec.count() != before {
		t.Fatal("no toast expected for unknown medication")
	}
	_, logs, _, _ := svc.Snapshot()
	if len(logs) != 0 {
		t.Fatalf("logs = %d, want 0", len(logs))
	}
}

func TestDeleteKeepsLogs(t *testing.T) {
	svc, _, rec := newTestService(t)
	setUpProfile(t, svc)

	med, err := svc.SaveMedication(MedicationInput{Name: "Aspirin"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.RecordDose(med.ID, ""); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.DeleteMedication(med.ID); err != nil {
		t.Fatalf("DeleteMedication: %v", err)
	}
	meds, logs, _, _ := svc.Snapshot()
	if len(meds) != 0 {
		t.Fatalf("medications = %d, want 0", len(meds))
	}
	if len(logs) != 3 {
		t.Fatalf("logs = %d, want 3 retained", len(logs))
	}
	if got := rec.last(t); got[0] != "Deleted" || got[1] != "Aspirin removed" {
		t.Fatalf("toast = %v", got)
	}
}

func TestDeleteUnknownMedication(t *testing.T) {
	svc, _, rec := newTestService(t)

	if err := svc.DeleteMedication("missing"); err != nil {
		t.Fatal(err)
	}
	if got := rec.last(t); got[1] != "Medication removed" {
		t.Fatalf("toast = %v", got)
	}
}

func TestSaveProfileValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.SaveProfile(models.UserProfile{Name: "  "}, nil)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestSaveProfileNilDependentsUntouched(t *testing.T) {
	svc, _, _ := newTestService(t)

	deps := []models.Dependent{{ID: "dep-1", Name: "Kid", Relationship: "Child"}}
	if err := svc.SaveProfile(models.UserProfile{Name: "Alex"}, deps); err != nil {
		t.Fatal(err)
	}
	if err := svc.SaveProfile(models.UserProfile{Name: "Alexandra"}, nil); err != nil {
		t.Fatal(err)
	}

	profile, got := svc.Profile()
	if profile.Name != "Alexandra" {
		t.Fatalf("name = %q", profile.Name)
	}
	if len(got) != 1 || got[0].ID != "dep-1" {
		t.Fatalf("dependents = %v, want dep-1 retained", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	svc, store, rec := newTestService(t)
	setUpProfile(t, svc)

	med, err := svc.SaveMedication(MedicationInput{Name: "Aspirin"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordDose(med.ID, ""); err != nil {
		t.Fatal(err)
	}

	if err := svc.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	meds, logs, deps, profile := svc.Snapshot()
	if len(meds) != 0 || len(logs) != 0 || len(deps) != 0 {
		t.Fatalf("collections not empty: %d/%d/%d", len(meds), len(logs), len(deps))
	}
	if profile.Name != "" || profile.BloodType != "Unknown" {
		t.Fatalf("profile = %+v, want default", profile)
	}
	for _, key := range storage.Keys {
		if _, err := store.Get(key); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("key %s still present after reset", key)
		}
	}
	if got := rec.last(t); got[0] != "App Reset" || got[1] != "All your data has been permanently cleared." {
		t.Fatalf("toast = %v", got)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	svc, store, _ := newTestService(t)
	setUpProfile(t, svc)

	if _, err := svc.SaveMedication(MedicationInput{Name: "Aspirin", Frequency: 2}); err != nil {
		t.Fatal(err)
	}

	reopened, err := New(store, nil, nil, WithClock(testClock))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	meds, _, _, profile := reopened.Snapshot()
	if len(meds) != 1 || meds[0].Name != "Aspirin" {
		t.Fatalf("medications = %v", meds)
	}
	if profile.Name != "Alex" {
		t.Fatalf("profile name = %q", profile.Name)
	}
}

func TestCorruptCollectionDegradesToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(storage.KeyMedications, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	svc, err := New(store, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	meds, _, _, _ := svc.Snapshot()
	if len(meds) != 0 {
		t.Fatalf("medications = %d, want 0 from corrupt data", len(meds))
	}
}

func TestOnChangeFires(t *testing.T) {
	store, err := storage.NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	var changes []string
	svc, err := New(store, nil, nil, WithOnChange(func(c string) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	}))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.SaveProfile(models.UserProfile{Name: "Alex"}, nil); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 || changes[0] != CollectionProfile {
		t.Fatalf("changes = %v, want [profile]", changes)
	}
}

func TestWatchReloadsOnExternalEdit(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := New(store, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan string, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, svc, store, slog.New(slog.NewTextHandler(os.Stderr, nil)), func(c string) {
			reloaded <- c
		})
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, storage.KeyMedications+".json")
	external := `[{"id":"ext-1","name":"Imported","dosage":"5","dosageUnit":"mg","type":"Tablet","category":"GENERAL","frequency":1,"interval":"Once Daily","nextDose":"09:00 AM","scheduledTimes":["09:00 AM"],"lastTaken":"","status":"active","color":""}]`
	if err := os.WriteFile(path, []byte(external), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-reloaded:
		if c != CollectionMedications {
			t.Fatalf("collection = %q, want medications", c)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the external edit")
	}

	meds, _, _, _ := svc.Snapshot()
	if len(meds) != 1 || meds[0].Name != "Imported" {
		t.Fatalf("medications = %v, want the imported record", meds)
	}

	cancel()
	<-done
}
