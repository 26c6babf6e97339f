// internal/pipeline/classify/entities.go
package classify

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"portlink-orchestrator/internal/models"
)

var (
	terminalNameRe = regexp.MustCompile(`(?i)\bterminal\s+([A-Z0-9][\w-]*)`)
	terminalIDRe   = regexp.MustCompile(`(?i)\b(term-[\w-]+)\b`)
	bookingIDRe    = regexp.MustCompile(`(?i)\b(BK-\d+)\b`)
	driverIDRe     = regexp.MustCompile(`(?i)\bdriver\s+(DRV-[\w-]+|\d{3,})\b`)
	isoDateRe      = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	timeRangeRe    = regexp.MustCompile(`\b(\d{1,2}(?::\d{2})?\s*(?:am|pm)?\s*(?:-|to)\s*\d{1,2}(?::\d{2})?\s*(?:am|pm)?)\b`)
	statusRe       = regexp.MustCompile(`(?i)\b(pending|confirmed|cancelled|canceled|approved|rejected|completed)\b`)
)

// named day-part slots mapped to fixed hour ranges, checked in order so a
// message naming several parts resolves deterministically
var dayPartSlots = []struct {
	name string
	slot string
}{
	{"morning", "06:00-12:00"},
	{"afternoon", "12:00-18:00"},
	{"evening", "18:00-22:00"},
	{"night", "22:00-06:00"},
}

// ExtractEntities pulls structured values out of the message with
// deterministic regex rules. The clock is injected so relative dates
// ("today", "tomorrow") resolve the same way in tests.
func ExtractEntities(text string, now time.Time) models.ExtractedEntities {
	var e models.ExtractedEntities

	if m := terminalIDRe.FindStringSubmatch(text); m != nil {
		e.TerminalID = m[1]
	}
	if m := terminalNameRe.FindStringSubmatch(text); m != nil {
		e.TerminalName = "Terminal " + strings.ToUpper(m[1][:1]) + m[1][1:]
	}
	if m := bookingIDRe.FindStringSubmatch(text); m != nil {
		e.BookingID = strings.ToUpper(m[1])
	}
	if m := driverIDRe.FindStringSubmatch(text); m != nil {
		e.DriverID = m[1]
	}

	lower := strings.ToLower(text)
	switch {
	case isoDateRe.MatchString(text):
		e.Date = isoDateRe.FindStringSubmatch(text)[1]
	case strings.Contains(lower, "tomorrow"):
		e.Date = now.AddDate(0, 0, 1).Format("2006-01-02")
	case strings.Contains(lower, "today"):
		e.Date = now.Format("2006-01-02")
	}

	// ISO dates are stripped first so "2026-09-15" is never read as a
	// "09-15" time range.
	timeText := isoDateRe.ReplaceAllString(lower, "")
	if m := timeRangeRe.FindStringSubmatch(timeText); m != nil {
		e.TimeSlot = normalizeTimeRange(m[1])
	} else {
		for _, part := range dayPartSlots {
			if containsWord(lower, part.name) {
				e.TimeSlot = part.slot
				break
			}
		}
	}

	if m := statusRe.FindStringSubmatch(lower); m != nil {
		status := m[1]
		if status == "canceled" {
			status = "cancelled"
		}
		e.Status = status
	}

	return e
}

func normalizeTimeRange(raw string) string {
	s := strings.ReplaceAll(raw, " to ", "-")
	s = strings.ReplaceAll(s, " - ", "-")
	return strings.TrimSpace(s)
}

func containsWord(text, word string) bool {
	re := regexp.MustCompile(fmt.Sprintf(`\b%s\b`, regexp.QuoteMeta(word)))
	return re.MatchString(text)
}
