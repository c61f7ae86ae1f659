// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes MedLog tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/medlog/internal/medservice"
	"github.com/starford/medlog/internal/models"
	"github.com/starford/medlog/internal/schedule"
)

// Server wraps the MCP server with MedLog tools.
type Server struct {
	mcp *server.MCPServer
	svc *medservice.Service
}

// New creates a new MCP server with all MedLog tools registered.
func New(svc *medservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"MedLog",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_medications",
		mcp.WithDescription("List tracked medications for the primary user or a dependent."),
		mcp.WithString("scope", mcp.Description("Owner scope: 'self' (default) or a dependent id")),
	), s.listMedications)

	s.mcp.AddTool(mcp.NewTool("day_schedule",
		mcp.WithDescription("Computed dose schedule for one day: per-medication next dose, "+
			"doses remaining, and overall progress. Read the medlog://data-contract resource "+
			"for field semantics."),
		mcp.WithString("scope", mcp.Description("Owner scope: 'self' (default) or a dependent id")),
		mcp.WithString("date", mcp.Description("Day to compute, YYYY-MM-DD (defaults to today)")),
	), s.daySchedule)

	s.mcp.AddTool(mcp.NewTool("record_dose",
		mcp.WithDescription("Record a taken dose for a medication. The dose is logged with the "+
			"current wall-clock time; an optional date backfills a past day."),
		mcp.WithString("medication_id", mcp.Required(), mcp.Description("Id of the medication")),
		mcp.WithString("date", mcp.Description("Day to log against, YYYY-MM-DD (defaults to today)")),
	), s.recordDose)

	s.mcp.AddTool(mcp.NewTool("adherence_summary",
		mcp.WithDescription("Trailing seven-day adherence statistics: expected vs taken doses "+
			"per day and an overall success percentage."),
		mcp.WithString("scope", mcp.Description("Owner scope: 'self' (default) or a dependent id")),
	), s.adherenceSummary)

	// Resource: data contract.
	s.mcp.AddResource(
		mcp.NewResource("medlog://data-contract", "MedLog Data Contract",
			mcp.WithResourceDescription("Shapes and semantics of the medication, intake log, and adherence data."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDataContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func scopeArg(req mcp.CallToolRequest) string {
	if scope, err := req.RequireString("scope"); err == nil && scope != "" {
		return scope
	}
	return schedule.ScopeSelf
}

func (s *Server) listMedications(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	meds, logs, _, _ := s.svc.Snapshot()
	meds, _ = schedule.ForScope(meds, logs, scopeArg(req))
	if len(meds) == 0 {
		return mcp.NewToolResultText("no medications tracked for this scope"), nil
	}
	out, _ := json.MarshalIndent(meds, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) daySchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date := ""
	if d, err := req.RequireString("date"); err == nil {
		date = d
	}
	if date == "" {
		date = s.svc.Now().Format(models.DateLayout)
	}

	meds, logs, _, _ := s.svc.Snapshot()
	meds, logs = schedule.ForScope(meds, logs, scopeArg(req))
	statuses := schedule.DayStatuses(meds, logs, date)

	out, _ := json.MarshalIndent(map[string]any{
		"date":        date,
		"medications": statuses,
		"progress":    schedule.DayProgress(statuses),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) recordDose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("medication_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date := ""
	if d, dateErr := req.RequireString("date"); dateErr == nil {
		date = d
	}

	log, err := s.svc.RecordDose(id, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if log == nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown medication id: %s", id)), nil
	}
	out, _ := json.MarshalIndent(log, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) adherenceSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	meds, logs, _, _ := s.svc.Snapshot()
	meds, logs = schedule.ForScope(meds, logs, scopeArg(req))
	stats := schedule.WeeklyAdherence(meds, logs, s.svc.Now())

	out, _ := json.MarshalIndent(stats, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDataContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "medlog://data-contract",
			MIMEType: "text/markdown",
			Text:     DataContract,
		},
	}, nil
}
