// internal/pipeline/synthesize/synthesizer.go
package synthesize

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/models"
)

// GenerationProvider fills a target schema from a prompt. Used for the
// natural-language rendering; never required for correctness.
type GenerationProvider interface {
	Generate(ctx context.Context, prompt string, schema map[string]interface{}) (map[string]interface{}, error)
}

// Synthesizer turns aggregated task results into the role-appropriate output
// shape. The requester role alone decides the shape; a generation failure
// always falls back to the deterministic template renderer.
type Synthesizer struct {
	provider GenerationProvider
	logger   logger.Logger
}

func New(provider GenerationProvider, log logger.Logger) *Synthesizer {
	return &Synthesizer{
		provider: provider,
		logger:   log,
	}
}

// Synthesize renders the stage output for one request.
func (s *Synthesizer) Synthesize(ctx context.Context, role string, classification *models.IntentClassification, aggregated *models.AggregatedResponse) *models.SynthesizedOutput {
	if models.IsDashboardRole(role) {
		return s.synthesizeDashboard(ctx, classification, aggregated)
	}
	return s.synthesizeCarrier(ctx, classification, aggregated)
}

func (s *Synthesizer) synthesizeCarrier(ctx context.Context, classification *models.IntentClassification, aggregated *models.AggregatedResponse) *models.SynthesizedOutput {
	if s.provider != nil {
		prompt := carrierPrompt(classification, aggregated)
		generated, err := s.provider.Generate(ctx, prompt, carrierSchema)
		if err == nil {
			var carrier models.CarrierOutput
			if decodeInto(generated, &carrier) == nil && carrier.Message != "" {
				return &models.SynthesizedOutput{
					Kind:    models.OutputKindCarrier,
					Carrier: &carrier,
				}
			}
		}
		if err != nil {
			s.logger.Warn("generation failed, using fallback renderer", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return &models.SynthesizedOutput{
		Kind:     models.OutputKindCarrier,
		Carrier:  fallbackCarrier(classification, aggregated),
		Fallback: true,
	}
}

func (s *Synthesizer) synthesizeDashboard(ctx context.Context, classification *models.IntentClassification, aggregated *models.AggregatedResponse) *models.SynthesizedOutput {
	if s.provider != nil {
		prompt := dashboardPrompt(classification, aggregated)
		generated, err := s.provider.Generate(ctx, prompt, dashboardSchema)
		if err == nil {
			var dashboard models.DashboardOutput
			if decodeInto(generated, &dashboard) == nil && dashboard.Title != "" {
				return &models.SynthesizedOutput{
					Kind:      models.OutputKindDashboard,
					Dashboard: &dashboard,
				}
			}
		}
		if err != nil {
			s.logger.Warn("generation failed, using fallback renderer", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return &models.SynthesizedOutput{
		Kind:      models.OutputKindDashboard,
		Dashboard: fallbackDashboard(classification, aggregated),
		Fallback:  true,
	}
}

// contextBlock summarizes execution results for the generation prompt.
func contextBlock(aggregated *models.AggregatedResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Completed tasks: %d\n", len(aggregated.CompletedTasks))
	fmt.Fprintf(&b, "Failed tasks: %d\n", len(aggregated.FailedTasks))

	ids := make([]string, 0, len(aggregated.Results))
	for id := range aggregated.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		result := aggregated.Results[id]
		if result.Success {
			payload, _ := json.Marshal(result.Data)
			fmt.Fprintf(&b, "- %s: ok %s\n", result.ToolName, payload)
		} else {
			fmt.Fprintf(&b, "- %s: failed (%s)\n", result.ToolName, result.Error)
		}
	}
	return b.String()
}

func carrierPrompt(classification *models.IntentClassification, aggregated *models.AggregatedResponse) string {
	return fmt.Sprintf(
		"You are a terminal booking assistant talking to a truck driver or carrier.\n"+
			"Intent: %s\nRequest results:\n%s\n"+
			"Write a short, friendly answer. Mention anything that could not be completed.",
		classification.Intent, contextBlock(aggregated))
}

func dashboardPrompt(classification *models.IntentClassification, aggregated *models.AggregatedResponse) string {
	return fmt.Sprintf(
		"You are preparing a terminal operations dashboard summary.\n"+
			"Intent: %s\nRequest results:\n%s\n"+
			"Produce a title, KPIs, widgets, suggested actions, and a summary.",
		classification.Intent, contextBlock(aggregated))
}

var carrierSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"message":   map[string]interface{}{"type": "string"},
		"summary":   map[string]interface{}{"type": "string"},
		"nextSteps": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"warnings":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
	},
	"required": []string{"message"},
}

var dashboardSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"title":    map[string]interface{}{"type": "string"},
		"summary":  map[string]interface{}{"type": "string"},
		"kpis":     map[string]interface{}{"type": "array"},
		"widgets":  map[string]interface{}{"type": "array"},
		"actions":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"warnings": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
	},
	"required": []string{"title"},
}

func decodeInto(generated map[string]interface{}, target interface{}) error {
	raw, err := json.Marshal(generated)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
