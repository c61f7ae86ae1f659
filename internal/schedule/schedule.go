// Package schedule computes derived views over the medication collections:
// per-day dose status, daily progress, trailing-week adherence, and history
// groupings. Every function is pure; given the same slices and filters it
// returns the same result.
package schedule

import (
	"math"
	"strings"
	"time"

	"github.com/starford/medlog/internal/models"
)

// ScopeSelf selects the primary user's records. Any other scope value is a
// dependent id. Exactly one scope is active at a time and scopes never
// overlap: a record matches self only when it has no dependent reference.
const ScopeSelf = "self"

// ForScope filters medications and logs down to one person.
func ForScope(meds []models.Medication, logs []models.IntakeLog, scope string) ([]models.Medication, []models.IntakeLog) {
	outMeds := make([]models.Medication, 0, len(meds))
	for _, m := range meds {
		if inScope(m.DependentID, scope) {
			outMeds = append(outMeds, m)
		}
	}
	outLogs := make([]models.IntakeLog, 0, len(logs))
	for _, l := range logs {
		if inScope(l.DependentID, scope) {
			outLogs = append(outLogs, l)
		}
	}
	return outMeds, outLogs
}

func inScope(dependentID, scope string) bool {
	if scope == ScopeSelf || scope == "" {
		return dependentID == ""
	}
	return dependentID == scope
}

// MedicationStatus is one medication's dose state for a single date.
type MedicationStatus struct {
	models.Medication
	LogsForDay         []models.IntakeLog `json:"logsForDay"`
	CalculatedNextDose string             `json:"calculatedNextDose"`
	IsFullyTaken       bool               `json:"isFullyTaken"`
	DosesRemaining     int                `json:"dosesRemaining"`
}

// DayStatuses computes per-medication dose status for date (yyyy-mm-dd).
// The next-dose lookup tolerates a scheduledTimes length that disagrees with
// frequency: a missing index falls back to the first scheduled time, then to
// the medication's static NextDose field.
func DayStatuses(meds []models.Medication, logs []models.IntakeLog, date string) []MedicationStatus {
	statuses := make([]MedicationStatus, 0, len(meds))
	for _, med := range meds {
		var forDay []models.IntakeLog
		for _, l := range logs {
			if l.MedicationID == med.ID && l.Date == date {
				forDay = append(forDay, l)
			}
		}

		doseIndex := len(forDay)
		next := med.NextDose
		switch {
		case doseIndex < len(med.ScheduledTimes):
			next = med.ScheduledTimes[doseIndex]
		case len(med.ScheduledTimes) > 0:
			next = med.ScheduledTimes[0]
		}

		remaining := med.Frequency - len(forDay)
		if remaining < 0 {
			remaining = 0
		}

		statuses = append(statuses, MedicationStatus{
			Medication:         med,
			LogsForDay:         forDay,
			CalculatedNextDose: next,
			IsFullyTaken:       len(forDay) >= med.Frequency,
			DosesRemaining:     remaining,
		})
	}
	return statuses
}

// Progress aggregates one day's dose counts across all medications in scope.
type Progress struct {
	RemainingCount  int `json:"remainingCount"`
	TotalScheduled  int `json:"totalScheduled"`
	TakenCount      int `json:"takenCount"`
	ProgressPercent int `json:"progressPercent"`
}

// DayProgress folds per-medication statuses into a day summary.
// ProgressPercent is 0 when nothing is scheduled.
func DayProgress(statuses []MedicationStatus) Progress {
	var p Progress
	for _, st := range statuses {
		p.RemainingCount += st.DosesRemaining
		p.TotalScheduled += st.Frequency
	}
	p.TakenCount = p.TotalScheduled - p.RemainingCount
	if p.TotalScheduled > 0 {
		p.ProgressPercent = roundPercent(p.TakenCount, p.TotalScheduled)
	}
	return p
}

// DayStat is one bar of the weekly adherence chart.
type DayStat struct {
	Date       string  `json:"date"`
	Label      string  `json:"label"`
	Expected   int     `json:"expected"`
	Taken      int     `json:"taken"`
	Percentage float64 `json:"percentage"`
	BarHeight  float64 `json:"barHeight"`
	IsToday    bool    `json:"isToday"`
}

// WeeklyStats is the trailing 7-day adherence summary.
type WeeklyStats struct {
	Days           []DayStat `json:"days"`
	TotalExpected  int       `json:"totalExpected"`
	TotalTaken     int       `json:"totalTaken"`
	OverallSuccess int       `json:"overallSuccess"`
}

// barHeightCap is the chart's fixed visual height in pixels. Percentage is
// left unclamped; only BarHeight is capped.
const barHeightCap = 40

// WeeklyAdherence computes the trailing 7-day window ending at today,
// inclusive, in chronological order. Expected doses use current medication
// frequencies rather than a historical reconstruction, so medications added
// or removed mid-week skew earlier days. Documented limitation, kept as-is.
func WeeklyAdherence(meds []models.Medication, logs []models.IntakeLog, today time.Time) WeeklyStats {
	expected := 0
	for _, m := range meds {
		expected += m.Frequency
	}

	perDay := make(map[string]int, len(logs))
	for _, l := range logs {
		perDay[l.Date]++
	}

	var stats WeeklyStats
	for i := 6; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		dateStr := d.Format(models.DateLayout)
		taken := perDay[dateStr]

		var pct, height float64
		if expected > 0 {
			pct = float64(taken) / float64(expected)
			height = math.Min(pct*barHeightCap, barHeightCap)
		}

		stats.Days = append(stats.Days, DayStat{
			Date:       dateStr,
			Label:      d.Weekday().String()[:1],
			Expected:   expected,
			Taken:      taken,
			Percentage: pct,
			BarHeight:  height,
			IsToday:    i == 0,
		})
		stats.TotalExpected += expected
		stats.TotalTaken += taken
	}

	if stats.TotalExpected > 0 {
		stats.OverallSuccess = roundPercent(stats.TotalTaken, stats.TotalExpected)
	}
	return stats
}

// HistoryGroup is one calendar day of intake logs.
type HistoryGroup struct {
	Date string             `json:"date"`
	Logs []models.IntakeLog `json:"logs"`
}

// GroupHistory filters logs by a case-insensitive medication-name search and
// an optional exact date, then groups them by date. Within a day the input
// (most-recent-first) order is preserved; days are sorted descending.
func GroupHistory(logs []models.IntakeLog, search, dateFilter string) []HistoryGroup {
	needle := strings.ToLower(search)

	byDate := make(map[string]*HistoryGroup)
	var order []string
	for _, l := range logs {
		if needle != "" && !strings.Contains(strings.ToLower(l.MedicationName), needle) {
			continue
		}
		if dateFilter != "" && l.Date != dateFilter {
			continue
		}
		g, ok := byDate[l.Date]
		if !ok {
			g = &HistoryGroup{Date: l.Date}
			byDate[l.Date] = g
			order = append(order, l.Date)
		}
		g.Logs = append(g.Logs, l)
	}

	// Dates are ISO yyyy-mm-dd, so a lexical sort is chronological.
	groups := make([]HistoryGroup, 0, len(order))
	for _, date := range order {
		groups = append(groups, *byDate[date])
	}
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			if groups[j].Date > groups[i].Date {
				groups[i], groups[j] = groups[j], groups[i]
			}
		}
	}
	return groups
}

// Time-of-day filters for the medication list.
const (
	FilterAll       = "All"
	FilterMorning   = "Morning"
	FilterAfternoon = "Afternoon"
)

// FilterMedications applies the list view's search and time-of-day filters.
// Search matches name or category; Morning keeps medications with any AM
// dose, Afternoon any PM dose.
func FilterMedications(meds []models.Medication, search, timeOfDay string) []models.Medication {
	needle := strings.ToLower(search)

	out := make([]models.Medication, 0, len(meds))
	for _, m := range meds {
		if needle != "" &&
			!strings.Contains(strings.ToLower(m.Name), needle) &&
			!strings.Contains(strings.ToLower(m.Category), needle) {
			continue
		}
		if timeOfDay != "" && timeOfDay != FilterAll && !hasTimeOfDay(m.ScheduledTimes, timeOfDay) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func hasTimeOfDay(times []string, timeOfDay string) bool {
	marker := ""
	switch timeOfDay {
	case FilterMorning:
		marker = "AM"
	case FilterAfternoon:
		marker = "PM"
	default:
		return false
	}
	for _, t := range times {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}

func roundPercent(part, total int) int {
	return int(math.Round(float64(part) / float64(total) * 100))
}
