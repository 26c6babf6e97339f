// internal/models/request.go
package models

import "time"

// User roles recognized by the pipeline. The role decides the output shape
// produced by synthesis.
const (
	RoleCarrier       = "carrier"
	RoleOperator      = "operator"
	RoleTerminalAdmin = "terminal_admin"
	RoleAdmin         = "admin"
)

// OrchestrationRequest is the inbound message the pipeline processes.
type OrchestrationRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"userId"`
	UserRole  string `json:"userRole"`
	SessionID string `json:"sessionId,omitempty"`
}

// SanitizedInput is the sanitizer stage output. Immutable once produced.
type SanitizedInput struct {
	RawText                   string          `json:"rawText"`
	SanitizedText             string          `json:"sanitizedText"`
	ContainedInjectionAttempt bool            `json:"containedInjectionAttempt"`
	RemovedPatterns           []string        `json:"removedPatterns,omitempty"`
	Metadata                  RequestMetadata `json:"metadata"`
}

// RequestMetadata travels with the request through every stage.
type RequestMetadata struct {
	RequestID  string    `json:"requestId"`
	UserID     string    `json:"userId"`
	UserRole   string    `json:"userRole"`
	SessionID  string    `json:"sessionId,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// OrchestrationResponse is what the pipeline returns to the HTTP layer.
type OrchestrationResponse struct {
	Success  bool              `json:"success"`
	Output   *ValidatedOutput  `json:"output,omitempty"`
	Error    string            `json:"error,omitempty"`
	Code     string            `json:"code,omitempty"`
	Metadata *ResponseMetadata `json:"metadata,omitempty"`
	Debug    *DebugInfo        `json:"debug,omitempty"`
}

// DebugInfo exposes intermediate stage results for troubleshooting.
type DebugInfo struct {
	Sanitized      *SanitizedInput       `json:"sanitized,omitempty"`
	Classification *IntentClassification `json:"classification,omitempty"`
	Plan           *TaskPlan             `json:"plan,omitempty"`
	Aggregated     *AggregatedResponse   `json:"aggregated,omitempty"`
}

// ResponseMetadata records how the request was processed.
type ResponseMetadata struct {
	RequestID      string        `json:"requestId"`
	ProcessingTime time.Duration `json:"processingTime"`
	PipelineSteps  []string      `json:"pipelineSteps"`
	Timestamp      time.Time     `json:"timestamp"`
}

// IsDashboardRole reports whether the role receives the dashboard output shape.
func IsDashboardRole(role string) bool {
	switch role {
	case RoleOperator, RoleTerminalAdmin, RoleAdmin:
		return true
	default:
		return false
	}
}
