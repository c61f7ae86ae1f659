package mcpserver

// DataContract describes the data shapes and semantics that LLM consumers
// should understand before reading schedules or recording doses.
const DataContract = `# MedLog Data Contract

MedLog tracks medications, dose intake logs, dependents (family members),
and a single user profile. All state is owned by the server; tools return
JSON snapshots.

## Medication

` + "```" + `json
{
  "id": "opaque string",
  "name": "Aspirin",
  "dosage": "100",
  "dosageUnit": "mg",
  "type": "Tablet | Capsule | Softgel | Liquid | Syringe",
  "category": "UPPERCASE purpose, e.g. PAIN RELIEF",
  "frequency": 2,
  "interval": "display label, e.g. Every 12h",
  "nextDose": "08:00 AM",
  "scheduledTimes": ["08:00 AM", "08:00 PM"],
  "lastTaken": "09:05 AM today",
  "status": "active | paused | completed",
  "dependentId": "empty/absent = the primary user"
}
` + "```" + `

## Intake log

` + "```" + `json
{
  "id": "opaque string",
  "medicationId": "owning medication id",
  "medicationName": "name snapshot taken at logging time",
  "time": "09:05 AM",
  "date": "2026-08-30",
  "status": "Confirmed | Missed | Late",
  "dependentId": "copied from the medication"
}
` + "```" + `

## Rules

1. **Scope.** Every tool accepting a ` + "`" + `scope` + "`" + ` argument filters by owner:
   ` + "`" + `self` + "`" + ` (the primary user, default) or a dependent id. Scopes never mix.
2. **Frequency is not a cap.** ` + "`" + `frequency` + "`" + ` is doses per day; recording more
   doses than that is allowed and the day simply reads as complete.
3. **Times are clock labels.** ` + "`" + `time` + "`" + ` fields use 12-hour strings like
   ` + "`" + `09:05 AM` + "`" + `; dates are ` + "`" + `YYYY-MM-DD` + "`" + `.
4. **Deleting keeps history.** A deleted medication's intake logs survive;
   its ` + "`" + `medicationName` + "`" + ` snapshot keeps history readable.
5. **Adherence window.** The weekly summary covers the trailing seven days
   ending today, inclusive, using each medication's *current* frequency for
   the expected count on every day in the window.
6. **Stale ids.** Recording a dose against an id that no longer exists
   changes nothing; the tool reports it as an error so you can re-list.
`
