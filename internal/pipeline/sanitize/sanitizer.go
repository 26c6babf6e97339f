// internal/pipeline/sanitize/sanitizer.go
package sanitize

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/models"
)

// injectionPattern couples a stable name, recorded in the audit trail, with
// the expression that detects it.
type injectionPattern struct {
	name    string
	pattern *regexp.Regexp
}

var injectionPatterns = []injectionPattern{
	{"ignore_previous_instructions", regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`)},
	{"reveal_system_prompt", regexp.MustCompile(`(?i)(reveal|show|print|display|repeat)\s+(your\s+|the\s+)?(system\s+)?prompt`)},
	{"disregard_rules", regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(instructions|rules|guidelines)`)},
	{"act_as_override", regexp.MustCompile(`(?i)(you\s+are\s+now|act\s+as|pretend\s+(to\s+be|you\s+are))\s+(a\s+)?(different|new|unrestricted)`)},
	{"developer_mode", regexp.MustCompile(`(?i)(enable|enter|activate)\s+(developer|debug|god|jailbreak)\s+mode`)},
	{"forget_instructions", regexp.MustCompile(`(?i)forget\s+(everything|all|your)\s+(instructions|training|rules)?`)},
	{"override_safety", regexp.MustCompile(`(?i)(override|bypass|disable)\s+(your\s+)?(safety|security|content)\s+(filters?|checks?|rules)`)},
}

// control chars except tab and newline
var controlChars = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")

var repeatedWhitespace = regexp.MustCompile(`[ \t]{2,}`)

// Sanitizer normalizes raw user text and strips prompt-injection phrasings.
// It is a pure text transform with no network dependency.
type Sanitizer struct {
	strict bool
	logger logger.Logger
	now    func() time.Time
}

func New(strict bool, log logger.Logger) *Sanitizer {
	return &Sanitizer{
		strict: strict,
		logger: log,
		now:    time.Now,
	}
}

// Sanitize validates and cleans one inbound message. In strict mode a
// detected injection attempt rejects the request instead of stripping it.
func (s *Sanitizer) Sanitize(req *models.OrchestrationRequest) (*models.SanitizedInput, error) {
	raw := req.Message
	if strings.TrimSpace(raw) == "" {
		return nil, stderrors.NewInvalidInputError("message is empty")
	}

	text := controlChars.ReplaceAllString(raw, "")
	text = repeatedWhitespace.ReplaceAllString(text, " ")

	var removed []string
	for _, p := range injectionPatterns {
		if p.pattern.MatchString(text) {
			removed = append(removed, p.name)
			text = p.pattern.ReplaceAllString(text, "")
		}
	}
	text = strings.TrimSpace(repeatedWhitespace.ReplaceAllString(text, " "))

	if len(removed) > 0 {
		s.logger.Warn("Injection patterns detected", map[string]interface{}{
			"userId":   req.UserID,
			"patterns": removed,
		})
		if s.strict {
			return nil, stderrors.NewInjectionRejectedError(removed)
		}
	}

	if text == "" {
		// Everything was injection payload; nothing left to classify.
		return nil, stderrors.NewInvalidInputError("message contains no processable content after sanitization")
	}

	return &models.SanitizedInput{
		RawText:                   raw,
		SanitizedText:             text,
		ContainedInjectionAttempt: len(removed) > 0,
		RemovedPatterns:           removed,
		Metadata: models.RequestMetadata{
			RequestID:  uuid.New().String(),
			UserID:     req.UserID,
			UserRole:   req.UserRole,
			SessionID:  req.SessionID,
			ReceivedAt: s.now().UTC(),
		},
	}, nil
}
