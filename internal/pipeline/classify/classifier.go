// internal/pipeline/classify/classifier.go
package classify

import (
	"context"
	"time"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/genai"
	"portlink-orchestrator/internal/models"
)

// clarification kicks in when even the provider tier stays below this.
const clarificationThreshold = 0.5

// IntentProvider is the LLM tier used for ambiguous messages.
type IntentProvider interface {
	ParseIntent(ctx context.Context, message string, sessionContext map[string]interface{}) (*genai.IntentResult, error)
}

// Classifier composes the heuristic and provider tiers. The provider is only
// consulted when heuristic confidence falls below the threshold, and a
// provider error fails the stage rather than silently degrading.
type Classifier struct {
	provider  IntentProvider
	threshold float64
	logger    logger.Logger
	now       func() time.Time
}

func New(provider IntentProvider, threshold float64, log logger.Logger) *Classifier {
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Classifier{
		provider:  provider,
		threshold: threshold,
		logger:    log,
		now:       time.Now,
	}
}

// Classify resolves the intent for one sanitized message.
func (c *Classifier) Classify(ctx context.Context, input *models.SanitizedInput) (*models.IntentClassification, error) {
	heuristic := ClassifyHeuristic(input.SanitizedText, c.now())

	c.logger.Debug("heuristic classification", map[string]interface{}{
		"intent":     string(heuristic.Intent),
		"confidence": heuristic.Confidence,
	})

	if heuristic.Confidence >= c.threshold {
		return heuristic, nil
	}

	if c.provider == nil {
		// No provider configured; the heuristic answer stands, flagged for
		// clarification when it is too weak to act on.
		if heuristic.Confidence < clarificationThreshold {
			heuristic.RequiresClarification = true
			heuristic.ClarificationQuestion = defaultClarificationQuestion
		}
		return heuristic, nil
	}

	providerResult, err := c.classifyWithProvider(ctx, input)
	if err != nil {
		return nil, err
	}

	merged := Merge(heuristic, providerResult)

	c.logger.Info("classification escalated to provider", map[string]interface{}{
		"heuristicIntent":       string(heuristic.Intent),
		"heuristicConfidence":   heuristic.Confidence,
		"providerIntent":        string(merged.Intent),
		"providerConfidence":    merged.Confidence,
		"requiresClarification": merged.RequiresClarification,
	})

	return merged, nil
}

const defaultClarificationQuestion = "Could you tell me whether you want to manage a booking or check slot availability?"

func (c *Classifier) classifyWithProvider(ctx context.Context, input *models.SanitizedInput) (*models.IntentClassification, error) {
	result, err := c.provider.ParseIntent(ctx, input.SanitizedText, map[string]interface{}{
		"userRole": input.Metadata.UserRole,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, stderrors.NewClassificationTimeoutError()
		}
		return nil, stderrors.NewClassificationFailedError(err)
	}

	classification := &models.IntentClassification{
		Intent:                normalizeIntent(result.Intent),
		Confidence:            result.Confidence,
		SecondaryIntent:       normalizeOptionalIntent(result.SecondaryIntent),
		Entities:              entitiesFromProvider(result.Entities),
		RequiresClarification: result.RequiresClarification,
		ClarificationQuestion: result.ClarificationQuestion,
		Reasoning:             result.Reasoning,
		Source:                "provider",
	}

	if classification.Confidence < clarificationThreshold && !classification.RequiresClarification {
		classification.RequiresClarification = true
		classification.ClarificationQuestion = defaultClarificationQuestion
	}

	return classification, nil
}

// Merge combines the two tiers. The provider decides intent, confidence, and
// clarification; heuristic regex extraction wins for the structured fields it
// fired on because it is deterministic and auditable. Provider entities fill
// the remaining gaps.
func Merge(heuristic, provider *models.IntentClassification) *models.IntentClassification {
	merged := *provider

	if heuristic.Entities.BookingID != "" {
		merged.Entities.BookingID = heuristic.Entities.BookingID
	}
	if heuristic.Entities.TerminalName != "" {
		merged.Entities.TerminalName = heuristic.Entities.TerminalName
	}
	if heuristic.Entities.TerminalID != "" {
		merged.Entities.TerminalID = heuristic.Entities.TerminalID
	}
	if merged.Entities.Date == "" {
		merged.Entities.Date = heuristic.Entities.Date
	}
	if merged.Entities.TimeSlot == "" {
		merged.Entities.TimeSlot = heuristic.Entities.TimeSlot
	}
	if merged.Entities.DriverID == "" {
		merged.Entities.DriverID = heuristic.Entities.DriverID
	}
	if merged.Entities.Status == "" {
		merged.Entities.Status = heuristic.Entities.Status
	}

	return &merged
}

func normalizeIntent(raw string) models.Intent {
	switch models.Intent(raw) {
	case models.IntentBookings, models.IntentSlotsAvailability:
		return models.Intent(raw)
	default:
		return models.IntentUnknown
	}
}

func normalizeOptionalIntent(raw string) models.Intent {
	if raw == "" {
		return ""
	}
	return normalizeIntent(raw)
}

func entitiesFromProvider(raw map[string]string) models.ExtractedEntities {
	return models.ExtractedEntities{
		TerminalID:   raw["terminalId"],
		TerminalName: raw["terminalName"],
		BookingID:    raw["bookingId"],
		Date:         raw["date"],
		TimeSlot:     raw["timeSlot"],
		DriverID:     raw["driverId"],
		Status:       raw["status"],
	}
}
