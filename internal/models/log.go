package models

// LogStatus is the recorded outcome of a dose.
type LogStatus string

const (
	LogConfirmed LogStatus = "Confirmed"
	LogMissed    LogStatus = "Missed"
	LogLate      LogStatus = "Late"
)

// DateLayout is the calendar-date form used by logs and schedule queries.
const DateLayout = "2006-01-02"

// ClockLayout is the hour:minute form used for dose times ("08:00 AM").
const ClockLayout = "03:04 PM"

// IntakeLog records that one dose was confirmed taken. Logs are immutable
// once created and are retained even after their medication is deleted.
// MedicationName is a snapshot taken at log time; it does not follow renames.
type IntakeLog struct {
	ID             string    `json:"id"`
	MedicationID   string    `json:"medicationId"`
	MedicationName string    `json:"medicationName"`
	Time           string    `json:"time"`
	Date           string    `json:"date"`
	Status         LogStatus `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	DependentID    string    `json:"dependentId,omitempty"`
}
