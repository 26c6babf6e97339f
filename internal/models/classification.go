// internal/models/classification.go
package models

// Intent identifies the request domain the classifier resolved.
type Intent string

const (
	IntentBookings          Intent = "bookings"
	IntentSlotsAvailability Intent = "slots_availability"
	IntentUnknown           Intent = "unknown"
)

// ExtractedEntities holds the structured values pulled from the message text.
// Empty fields mean the entity was not present.
type ExtractedEntities struct {
	TerminalID   string `json:"terminalId,omitempty"`
	TerminalName string `json:"terminalName,omitempty"`
	BookingID    string `json:"bookingId,omitempty"`
	Date         string `json:"date,omitempty"` // YYYY-MM-DD
	TimeSlot     string `json:"timeSlot,omitempty"`
	DriverID     string `json:"driverId,omitempty"`
	Status       string `json:"status,omitempty"`
}

// IsEmpty reports whether no entity was extracted at all.
func (e ExtractedEntities) IsEmpty() bool {
	return e == ExtractedEntities{}
}

// IntentClassification is the classifier stage output.
type IntentClassification struct {
	Intent                Intent            `json:"intent"`
	Confidence            float64           `json:"confidence"`
	SecondaryIntent       Intent            `json:"secondaryIntent,omitempty"`
	Entities              ExtractedEntities `json:"entities"`
	RequiresClarification bool              `json:"requiresClarification"`
	ClarificationQuestion string            `json:"clarificationQuestion,omitempty"`
	Reasoning             string            `json:"reasoning,omitempty"`
	Source                string            `json:"source"` // "heuristic" or "provider"
}
