package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/genai"
	"portlink-orchestrator/internal/models"
)

var testNow = time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

type fakeProvider struct {
	result *genai.IntentResult
	err    error
	calls  int
}

func (f *fakeProvider) ParseIntent(ctx context.Context, message string, sessionContext map[string]interface{}) (*genai.IntentResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func sanitized(text string) *models.SanitizedInput {
	return &models.SanitizedInput{
		RawText:       text,
		SanitizedText: text,
		Metadata: models.RequestMetadata{
			RequestID: "req-1",
			UserID:    "user-1",
			UserRole:  models.RoleCarrier,
		},
	}
}

func TestClassifyHeuristic_BookingScenario(t *testing.T) {
	result := ClassifyHeuristic("book a slot at Terminal A tomorrow morning", testNow)

	assert.Equal(t, models.IntentBookings, result.Intent)
	assert.GreaterOrEqual(t, result.Confidence, 0.7)
	assert.Equal(t, models.IntentSlotsAvailability, result.SecondaryIntent)
	assert.Equal(t, "Terminal A", result.Entities.TerminalName)
	assert.Equal(t, "2026-09-01", result.Entities.Date)
	assert.Equal(t, "06:00-12:00", result.Entities.TimeSlot)
}

func TestClassifyHeuristic_AvailabilityScenario(t *testing.T) {
	result := ClassifyHeuristic("What slots are available at the terminals?", testNow)

	assert.Equal(t, models.IntentSlotsAvailability, result.Intent)
	assert.GreaterOrEqual(t, result.Confidence, 0.7)
	assert.Empty(t, result.Entities.TerminalID)
}

func TestClassifyHeuristic_ZeroScoreTie(t *testing.T) {
	result := ClassifyHeuristic("hello there, how is your day going", testNow)

	assert.Equal(t, models.IntentUnknown, result.Intent)
	assert.Equal(t, 0.3, result.Confidence)
}

func TestClassifyHeuristic_ConfidenceCapped(t *testing.T) {
	result := ClassifyHeuristic("cancel my booking BK-1001, the booking status says confirmed", testNow)

	assert.Equal(t, models.IntentBookings, result.Intent)
	assert.LessOrEqual(t, result.Confidence, 0.9)
	assert.Equal(t, "BK-1001", result.Entities.BookingID)
	assert.Equal(t, "confirmed", result.Entities.Status)
}

func TestClassify_HighConfidenceSkipsProvider(t *testing.T) {
	provider := &fakeProvider{}
	c := New(provider, 0.7, logger.NewTestLogger(t))

	result, err := c.Classify(context.Background(), sanitized("book a slot at Terminal A tomorrow morning"))
	require.NoError(t, err)

	assert.Equal(t, models.IntentBookings, result.Intent)
	assert.Equal(t, "heuristic", result.Source)
	assert.Zero(t, provider.calls)
}

func TestClassify_LowConfidenceEscalates(t *testing.T) {
	provider := &fakeProvider{
		result: &genai.IntentResult{
			Intent:     "slots_availability",
			Confidence: 0.85,
			Entities:   map[string]string{"terminalName": "Terminal B"},
			Reasoning:  "user asks about free capacity",
		},
	}
	c := New(provider, 0.7, logger.NewTestLogger(t))

	result, err := c.Classify(context.Background(), sanitized("is there anything happening over at the north side?"))
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, models.IntentSlotsAvailability, result.Intent)
	assert.Equal(t, "provider", result.Source)
	assert.Equal(t, "Terminal B", result.Entities.TerminalName)
}

func TestClassify_ProviderErrorFailsClosed(t *testing.T) {
	provider := &fakeProvider{err: errors.New("provider down")}
	c := New(provider, 0.7, logger.NewTestLogger(t))

	_, err := c.Classify(context.Background(), sanitized("do the thing from before"))
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeClassificationFailed, stdErr.Code)
}

func TestClassify_ProviderLowConfidenceAsksClarification(t *testing.T) {
	provider := &fakeProvider{
		result: &genai.IntentResult{
			Intent:     "unknown",
			Confidence: 0.35,
		},
	}
	c := New(provider, 0.7, logger.NewTestLogger(t))

	result, err := c.Classify(context.Background(), sanitized("do the thing from before"))
	require.NoError(t, err)

	assert.True(t, result.RequiresClarification)
	assert.NotEmpty(t, result.ClarificationQuestion)
}

func TestMerge_RegexEntitiesWin(t *testing.T) {
	heuristic := &models.IntentClassification{
		Intent: models.IntentBookings,
		Entities: models.ExtractedEntities{
			BookingID:    "BK-1001",
			TerminalName: "Terminal A",
		},
		Source: "heuristic",
	}
	provider := &models.IntentClassification{
		Intent:     models.IntentBookings,
		Confidence: 0.8,
		Entities: models.ExtractedEntities{
			BookingID:    "BK-9999",
			TerminalName: "Terminal Z",
			Date:         "2026-09-02",
		},
		Source: "provider",
	}

	merged := Merge(heuristic, provider)

	assert.Equal(t, "BK-1001", merged.Entities.BookingID)
	assert.Equal(t, "Terminal A", merged.Entities.TerminalName)
	assert.Equal(t, "2026-09-02", merged.Entities.Date)
	assert.Equal(t, 0.8, merged.Confidence)
}

func TestMerge_ProviderFillsGaps(t *testing.T) {
	heuristic := &models.IntentClassification{
		Entities: models.ExtractedEntities{Date: "2026-09-01"},
	}
	provider := &models.IntentClassification{
		Intent:   models.IntentBookings,
		Entities: models.ExtractedEntities{DriverID: "DRV-7"},
	}

	merged := Merge(heuristic, provider)

	assert.Equal(t, "2026-09-01", merged.Entities.Date)
	assert.Equal(t, "DRV-7", merged.Entities.DriverID)
}

func TestExtractEntities(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.ExtractedEntities
	}{
		{
			"booking id and status",
			"what is the status of booking BK-2042? it was confirmed",
			models.ExtractedEntities{BookingID: "BK-2042", Status: "confirmed"},
		},
		{
			"terminal id",
			"show capacity for term-north-1",
			models.ExtractedEntities{TerminalID: "term-north-1"},
		},
		{
			"iso date wins over relative",
			"book for 2026-09-15, not tomorrow",
			models.ExtractedEntities{Date: "2026-09-15"},
		},
		{
			"today",
			"any slots today?",
			models.ExtractedEntities{Date: "2026-08-31"},
		},
		{
			"explicit time range",
			"book 8am to 10am tomorrow",
			models.ExtractedEntities{Date: "2026-09-01", TimeSlot: "8am-10am"},
		},
		{
			"afternoon day part",
			"is the afternoon free?",
			models.ExtractedEntities{TimeSlot: "12:00-18:00"},
		},
		{
			"canceled normalized",
			"was BK-1 canceled?",
			models.ExtractedEntities{BookingID: "BK-1", Status: "cancelled"},
		},
		{
			"nothing",
			"hello",
			models.ExtractedEntities{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractEntities(tt.text, testNow))
		})
	}
}
