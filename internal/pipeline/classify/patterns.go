// internal/pipeline/classify/patterns.go
package classify

import (
	"regexp"

	"portlink-orchestrator/internal/models"
)

// domainPattern holds the scoring signals for one intent domain. A regex
// pattern hit scores 2, a bare keyword hit scores 1.
type domainPattern struct {
	intent   models.Intent
	keywords []string
	patterns []namedPattern
}

type namedPattern struct {
	name    string
	pattern *regexp.Regexp
}

const (
	keywordWeight = 1
	patternWeight = 2
)

var domainPatterns = []domainPattern{
	{
		intent: models.IntentBookings,
		keywords: []string{
			"book", "booking", "bookings", "reserve", "reservation",
			"cancel", "reschedule", "update", "approve", "reject",
			"appointment", "confirm", "status",
		},
		patterns: []namedPattern{
			{"book_slot", regexp.MustCompile(`(?i)book\s+(a\s+)?slot`)},
			{"create_booking", regexp.MustCompile(`(?i)(make|create|new)\s+(a\s+)?booking`)},
			{"cancel_booking", regexp.MustCompile(`(?i)cancel\s+(my\s+|the\s+)?booking`)},
			{"update_booking", regexp.MustCompile(`(?i)(update|change|modify)\s+(my\s+|the\s+)?booking`)},
			{"approve_booking", regexp.MustCompile(`(?i)approve\s+(the\s+)?booking`)},
			{"reject_booking", regexp.MustCompile(`(?i)reject\s+(the\s+)?booking`)},
			{"booking_status", regexp.MustCompile(`(?i)booking\s+(status|confirmation)`)},
			{"list_bookings", regexp.MustCompile(`(?i)(my|all|list)\s+bookings`)},
			{"booking_reference", regexp.MustCompile(`(?i)\bBK-\d+\b`)},
		},
	},
	{
		intent: models.IntentSlotsAvailability,
		keywords: []string{
			"slot", "slots", "availability", "available", "capacity",
			"terminal", "terminals", "free", "open", "peak", "busy",
			"utilization", "congestion",
		},
		patterns: []namedPattern{
			{"what_slots", regexp.MustCompile(`(?i)what\s+slots`)},
			{"slots_available", regexp.MustCompile(`(?i)slots?\s+(are\s+)?(available|free|open)`)},
			{"available_slots", regexp.MustCompile(`(?i)(available|free)\s+slots?`)},
			{"check_capacity", regexp.MustCompile(`(?i)(check|show|get)\s+(the\s+)?(availability|capacity)`)},
			{"peak_hours", regexp.MustCompile(`(?i)(peak|busiest)\s+(hours?|times?)`)},
			{"terminal_capacity", regexp.MustCompile(`(?i)(terminal|yard)\s+(capacity|utilization)`)},
			{"how_busy", regexp.MustCompile(`(?i)how\s+(busy|full)`)},
		},
	},
}
