// Package output defines the JSON response envelopes and terminal
// rendering helpers shared by the CLI commands.
package output

import "time"

// ErrorResponse is the standard JSON error format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// NewError creates a new error response.
func NewError(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// NewErrorWithDetails creates a new error response with details.
func NewErrorWithDetails(msg, details string) ErrorResponse {
	return ErrorResponse{Error: msg, Details: details}
}

// SuccessResponse is a simple success indicator.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// NewSuccess creates a success response.
func NewSuccess(msg string) SuccessResponse {
	return SuccessResponse{Success: true, Message: msg}
}

// TimestampedResponse adds a timestamp to any response.
type TimestampedResponse struct {
	GeneratedAt time.Time `json:"generated_at"`
}

// NewTimestamped creates a timestamped response base.
func NewTimestamped() TimestampedResponse {
	return TimestampedResponse{GeneratedAt: time.Now().UTC()}
}

// PursueResponse is the output format for the pursue command.
type PursueResponse struct {
	TimestampedResponse
	Problem         string  `json:"problem"`
	Achieved        bool    `json:"achieved"`
	CyclesCompleted int     `json:"cycles_completed"`
	FinalPotential  float64 `json:"final_potential"`
	DurationSeconds float64 `json:"duration_seconds"`
	ArchiveID       int64   `json:"archive_id,omitempty"`
}

// ImproveResponse is the output format for the improve command.
type ImproveResponse struct {
	TimestampedResponse
	TriggerCount      int      `json:"trigger_count"`
	StrategiesApplied []string `json:"strategies_applied"`
	Degraded          bool     `json:"degraded"`
}

// ExportResponse is the output format for archive export.
type ExportResponse struct {
	TimestampedResponse
	Path     string `json:"path"`
	Sessions int    `json:"sessions"`
}
