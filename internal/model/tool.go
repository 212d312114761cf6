package model

import (
	"encoding/json"
	"time"
)

// ToolResult records one tool execution inside an orchestration call. Kept
// in an in-memory trace for the duration of the call only.
type ToolResult struct {
	Tool     string          `json:"tool"`
	Input    json.RawMessage `json:"input"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`
	Success  bool            `json:"success"`
	Duration time.Duration   `json:"duration"`
}

// StopReason explains why the tool orchestration loop ended.
type StopReason string

const (
	StopReasonEndTurn       StopReason = "end_turn"
	StopReasonMaxIterations StopReason = "max_iterations"
	StopReasonError         StopReason = "error"
)

// OrchestrationResult is the outcome of one tool-augmented generation.
type OrchestrationResult struct {
	FinalResponse string       `json:"final_response"`
	ToolsUsed     []ToolResult `json:"tools_used,omitempty"`
	StopReason    StopReason   `json:"stop_reason"`
}
