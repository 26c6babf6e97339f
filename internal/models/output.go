// internal/models/output.go
package models

import "time"

// Output kinds produced by synthesis. The kind is decided by the user role,
// never by the request content.
const (
	OutputKindCarrier   = "carrier"
	OutputKindDashboard = "dashboard"
)

// SynthesizedOutput is a tagged union: exactly one of Carrier or Dashboard is
// set, matching Kind.
type SynthesizedOutput struct {
	Kind      string           `json:"kind"`
	Carrier   *CarrierOutput   `json:"carrier,omitempty"`
	Dashboard *DashboardOutput `json:"dashboard,omitempty"`
	Fallback  bool             `json:"fallback,omitempty"`
}

// CarrierOutput is the conversational shape for truck drivers and carriers.
type CarrierOutput struct {
	Message        string                 `json:"message"`
	Summary        string                 `json:"summary,omitempty"`
	NextSteps      []string               `json:"nextSteps,omitempty"`
	Warnings       []string               `json:"warnings,omitempty"`
	BookingDetails map[string]interface{} `json:"bookingDetails,omitempty"`
}

// DashboardOutput is the structured shape for terminal staff.
type DashboardOutput struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary,omitempty"`
	KPIs     []KPI    `json:"kpis,omitempty"`
	Widgets  []Widget `json:"widgets,omitempty"`
	Actions  []string `json:"actions,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// KPI is a single headline figure on the dashboard.
type KPI struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Trend string `json:"trend,omitempty"` // "up", "down", "flat"
}

// Widget is a named data block the dashboard renders.
type Widget struct {
	Type  string                 `json:"type"` // "table", "chart", "list"
	Title string                 `json:"title"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// Confidentiality actions applied by the output validator.
const (
	ViolationActionRemoved  = "removed"
	ViolationActionRedacted = "redacted"
	ViolationActionMasked   = "masked"
)

// ConfidentialityViolation records one field the validator acted on.
type ConfidentialityViolation struct {
	Field  string `json:"field"` // dotted path into the output
	Reason string `json:"reason"`
	Action string `json:"action"`
}

// ConfidentialityCheck is the validator stage report.
type ConfidentialityCheck struct {
	Passed         bool                       `json:"passed"`
	Violations     []ConfidentialityViolation `json:"violations,omitempty"`
	RedactedFields []string                   `json:"redactedFields,omitempty"`
	CheckedAt      time.Time                  `json:"checkedAt"`
}

// ValidatedOutput is the final response body after confidentiality validation.
type ValidatedOutput struct {
	Kind      string                `json:"kind"`
	Carrier   *CarrierOutput        `json:"carrier,omitempty"`
	Dashboard *DashboardOutput      `json:"dashboard,omitempty"`
	Check     *ConfidentialityCheck `json:"check,omitempty"`
}
