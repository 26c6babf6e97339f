// internal/pipeline/decompose/catalog.go
package decompose

import (
	"time"

	"portlink-orchestrator/internal/agents"
	"portlink-orchestrator/internal/models"
)

// CatalogEntry describes one tool the decomposer can plan.
type CatalogEntry struct {
	Name              string
	Agent             string
	Description       string
	RequiredEntities  []string
	OptionalEntities  []string
	EstimatedDuration time.Duration
	InputSchema       string
}

// entityArgNames maps extracted entity names to the argument names the
// capability providers expect.
var entityArgNames = map[string]string{
	"terminalId":   "terminalId",
	"terminalName": "terminalName",
	"bookingId":    "bookingId",
	"date":         "date",
	"timeSlot":     "timeSlot",
	"driverId":     "driverUserId",
	"status":       "status",
}

const objectArgsSchema = `{
	"type": "object",
	"properties": {
		"terminalId":   {"type": "string"},
		"terminalName": {"type": "string"},
		"bookingId":    {"type": "string"},
		"date":         {"type": "string"},
		"timeSlot":     {"type": "string"},
		"driverUserId": {"type": "string"},
		"status":       {"type": "string"}
	},
	"additionalProperties": false
}`

var catalog = []CatalogEntry{
	{
		Name:              "createBooking",
		Agent:             agents.AgentBookingOps,
		Description:       "Create a new slot booking",
		RequiredEntities:  []string{"date"},
		OptionalEntities:  []string{"terminalId", "terminalName", "timeSlot", "driverId"},
		EstimatedDuration: 3 * time.Second,
		InputSchema:       objectArgsSchema,
	},
	{
		Name:              "getBookingStatus",
		Agent:             agents.AgentBookingOps,
		Description:       "Look up the current status of a booking",
		RequiredEntities:  []string{"bookingId"},
		EstimatedDuration: time.Second,
		InputSchema:       objectArgsSchema,
	},
	{
		Name:              "cancelBooking",
		Agent:             agents.AgentBookingOps,
		Description:       "Cancel an existing booking",
		RequiredEntities:  []string{"bookingId"},
		EstimatedDuration: 2 * time.Second,
		InputSchema:       objectArgsSchema,
	},
	{
		Name:              "updateBooking",
		Agent:             agents.AgentBookingOps,
		Description:       "Change the date or slot of an existing booking",
		RequiredEntities:  []string{"bookingId"},
		OptionalEntities:  []string{"date", "timeSlot"},
		EstimatedDuration: 2 * time.Second,
		InputSchema:       objectArgsSchema,
	},
	{
		Name:              "approveBooking",
		Agent:             agents.AgentBookingOps,
		Description:       "Approve a pending booking",
		RequiredEntities:  []string{"bookingId"},
		EstimatedDuration: time.Second,
		InputSchema:       objectArgsSchema,
	},
	{
		Name:              "rejectBooking",
		Agent:             agents.AgentBookingOps,
		Description:       "Reject a pending booking",
		RequiredEntities:  []string{"bookingId"},
		EstimatedDuration: time.Second,
		InputSchema:       objectArgsSchema,
	},
	{
		Name:              "listBookings",
		Agent:             agents.AgentBookingOps,
		Description:       "List bookings, optionally filtered by status or date",
		OptionalEntities:  []string{"status", "date", "driverId", "terminalId"},
		EstimatedDuration: time.Second,
		InputSchema:       objectArgsSchema,
	},
	{
		Name:              "getSlotAvailability",
		Agent:             agents.AgentCapacityAnalytics,
		Description:       "Get open slots, optionally for a terminal and date",
		OptionalEntities:  []string{"terminalId", "terminalName", "date", "timeSlot"},
		EstimatedDuration: time.Second,
		InputSchema:       objectArgsSchema,
	},
	{
		Name:              "getTerminalById",
		Agent:             agents.AgentCapacityAnalytics,
		Description:       "Get details for one terminal",
		RequiredEntities:  []string{"terminalId"},
		EstimatedDuration: time.Second,
		InputSchema:       objectArgsSchema,
	},
	{
		Name:              "getAllTerminals",
		Agent:             agents.AgentCapacityAnalytics,
		Description:       "List all terminals",
		EstimatedDuration: time.Second,
		InputSchema:       objectArgsSchema,
	},
	{
		Name:              "getCapacityAnalysis",
		Agent:             agents.AgentCapacityAnalytics,
		Description:       "Analyze capacity utilization for a terminal or the network",
		OptionalEntities:  []string{"terminalId", "terminalName", "date"},
		EstimatedDuration: 2 * time.Second,
		InputSchema:       objectArgsSchema,
	},
	{
		Name:              "getPeakHourAnalysis",
		Agent:             agents.AgentCapacityAnalytics,
		Description:       "Report peak hours for a terminal or the network",
		OptionalEntities:  []string{"terminalId", "terminalName", "date"},
		EstimatedDuration: 2 * time.Second,
		InputSchema:       objectArgsSchema,
	},
}

// CatalogEntryByName returns the catalog entry for a tool name, or nil.
func CatalogEntryByName(name string) *CatalogEntry {
	for i := range catalog {
		if catalog[i].Name == name {
			return &catalog[i]
		}
	}
	return nil
}

// entityValue reads one named entity off the extraction result.
func entityValue(e models.ExtractedEntities, name string) string {
	switch name {
	case "terminalId":
		return e.TerminalID
	case "terminalName":
		return e.TerminalName
	case "bookingId":
		return e.BookingID
	case "date":
		return e.Date
	case "timeSlot":
		return e.TimeSlot
	case "driverId":
		return e.DriverID
	case "status":
		return e.Status
	default:
		return ""
	}
}
