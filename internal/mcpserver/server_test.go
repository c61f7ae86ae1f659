package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/medlog/internal/medservice"
	"github.com/starford/medlog/internal/models"
	"github.com/starford/medlog/internal/storage"
)

var mcpClock = func() time.Time {
	return time.Date(2026, 8, 30, 9, 5, 0, 0, time.UTC)
}

func testServer(t *testing.T) (*Server, *medservice.Service) {
	t.Helper()

	store, err := storage.NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc, err := medservice.New(store, nil, nil, medservice.WithClock(mcpClock))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.SaveProfile(models.UserProfile{Name: "Alex"}, nil); err != nil {
		t.Fatal(err)
	}
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper; invoke the handler
	// functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_medications":
		result, err = srv.listMedications(ctx, req)
	case "day_schedule":
		result, err = srv.daySchedule(ctx, req)
	case "record_dose":
		result, err = srv.recordDose(ctx, req)
	case "adherence_summary":
		result, err = srv.adherenceSummary(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListMedicationsEmpty(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_medications", map[string]interface{}{})
	if text := resultText(r); text != "no medications tracked for this scope" {
		t.Errorf("result = %q", text)
	}
}

func TestListMedicationsScoped(t *testing.T) {
	srv, svc := testServer(t)
	if _, err := svc.SaveMedication(medservice.MedicationInput{Name: "Mine"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveMedication(medservice.MedicationInput{Name: "Theirs", DependentID: "dep-1"}); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "list_medications", map[string]interface{}{"scope": "dep-1"})
	text := resultText(r)
	if !strings.Contains(text, "Theirs") || strings.Contains(text, "Mine") {
		t.Errorf("dep-1 scope leaked: %s", text)
	}
}

func TestRecordDoseAndDaySchedule(t *testing.T) {
	srv, svc := testServer(t)
	med, err := svc.SaveMedication(medservice.MedicationInput{Name: "Aspirin", Frequency: 3})
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "record_dose", map[string]interface{}{"medication_id": med.ID})
	if r.IsError {
		t.Fatalf("record_dose errored: %s", resultText(r))
	}
	if text := resultText(r); !strings.Contains(text, "09:05 AM") {
		t.Errorf("log text = %s", text)
	}

	r = callTool(t, srv, "day_schedule", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"dosesRemaining": 2`) {
		t.Errorf("schedule = %s", text)
	}
	if !strings.Contains(text, `"calculatedNextDose": "02:00 PM"`) {
		t.Errorf("next dose missing: %s", text)
	}
}

func TestRecordDoseUnknownID(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "record_dose", map[string]interface{}{"medication_id": "missing"})
	if !r.IsError {
		t.Error("expected error for unknown medication id")
	}
}

func TestRecordDoseMissingArgument(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "record_dose", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing medication_id")
	}
}

func TestAdherenceSummary(t *testing.T) {
	srv, svc := testServer(t)
	med, err := svc.SaveMedication(medservice.MedicationInput{Name: "Aspirin", Frequency: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordDose(med.ID, ""); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "adherence_summary", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"totalTaken": 1`) {
		t.Errorf("summary = %s", text)
	}
	if !strings.Contains(text, `"2026-08-30"`) {
		t.Errorf("today missing from window: %s", text)
	}
}
