// Package models defines the domain types for MedLog.
package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Form is the physical form of a medication.
type Form string

const (
	FormTablet  Form = "Tablet"
	FormCapsule Form = "Capsule"
	FormSoftgel Form = "Softgel"
	FormLiquid  Form = "Liquid"
	FormSyringe Form = "Syringe"
)

// Forms lists every valid medication form.
var Forms = []Form{FormTablet, FormCapsule, FormSoftgel, FormLiquid, FormSyringe}

// Valid reports whether f is a known form.
func (f Form) Valid() bool {
	for _, known := range Forms {
		if f == known {
			return true
		}
	}
	return false
}

// DefaultUnit returns the dosage unit a form implies when none is given.
// Measured liquids are dosed in ml, everything else in mg.
func (f Form) DefaultUnit() string {
	if f == FormLiquid || f == FormSyringe {
		return "ml"
	}
	return "mg"
}

// ParseForm matches s against the known forms case-insensitively.
// Unrecognized input falls back to Tablet.
func ParseForm(s string) Form {
	for _, known := range Forms {
		if strings.EqualFold(s, string(known)) {
			return known
		}
	}
	return FormTablet
}

// DosageUnits lists the selectable dosage units.
var DosageUnits = []string{"mg", "ml", "mcg", "g", "pills", "drop", "IU"}

// MedicationStatus is the lifecycle state of a medication.
type MedicationStatus string

const (
	StatusActive    MedicationStatus = "active"
	StatusPaused    MedicationStatus = "paused"
	StatusCompleted MedicationStatus = "completed"
)

// Medication is a prescribed item the user tracks.
// DependentID empty means the medication belongs to the primary user.
type Medication struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Dosage         string           `json:"dosage"`
	DosageUnit     string           `json:"dosageUnit"`
	Form           Form             `json:"type"`
	Category       string           `json:"category"`
	Frequency      int              `json:"frequency"`
	Interval       string           `json:"interval"`
	NextDose       string           `json:"nextDose"`
	ScheduledTimes []string         `json:"scheduledTimes"`
	LastTaken      string           `json:"lastTaken,omitempty"`
	Status         MedicationStatus `json:"status"`
	Color          string           `json:"color,omitempty"`
	DependentID    string           `json:"dependentId,omitempty"`
}

// NewID returns a fresh opaque entity id.
func NewID() string {
	return uuid.NewString()
}

// SuggestedTimes returns sensible default dose times for a daily frequency.
func SuggestedTimes(frequency int) []string {
	switch frequency {
	case 1:
		return []string{"09:00 AM"}
	case 2:
		return []string{"08:00 AM", "08:00 PM"}
	case 3:
		return []string{"08:00 AM", "02:00 PM", "08:00 PM"}
	case 4:
		return []string{"08:00 AM", "12:00 PM", "04:00 PM", "08:00 PM"}
	case 5:
		return []string{"07:00 AM", "11:00 AM", "03:00 PM", "07:00 PM", "11:00 PM"}
	case 6:
		return []string{"06:00 AM", "10:00 AM", "02:00 PM", "06:00 PM", "10:00 PM", "02:00 AM"}
	default:
		return []string{"09:00 AM"}
	}
}

// IntervalLabel renders the display-only interval for a daily frequency.
// The floor division is imprecise for frequencies that do not divide 24
// (5 yields "Every 4h"); intentionally kept, it is cosmetic and never feeds
// the adherence math.
func IntervalLabel(frequency int) string {
	if frequency > 1 {
		return fmt.Sprintf("Every %dh", 24/frequency)
	}
	return "Once Daily"
}
