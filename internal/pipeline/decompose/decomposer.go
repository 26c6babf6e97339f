// internal/pipeline/decompose/decomposer.go
package decompose

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/models"
)

// Decomposer expands a classified intent into a TaskPlan drawn from the
// fixed tool catalog. It never returns an empty plan.
type Decomposer struct {
	maxRetries int
	logger     logger.Logger
	now        func() time.Time
}

func New(maxRetries int, log logger.Logger) *Decomposer {
	return &Decomposer{
		maxRetries: maxRetries,
		logger:     log,
		now:        time.Now,
	}
}

// toolCue maps textual cues to the tool they select. Cues are matched
// against the sanitized message and the classifier reasoning.
type toolCue struct {
	tool string
	cues []string
}

var bookingCues = []toolCue{
	{"createBooking", []string{"book", "create", "new booking", "reserve", "make a booking"}},
	{"cancelBooking", []string{"cancel"}},
	{"updateBooking", []string{"update", "change", "modify", "reschedule"}},
	{"approveBooking", []string{"approve"}},
	{"rejectBooking", []string{"reject"}},
	{"getBookingStatus", []string{"status", "confirmation", "check my booking"}},
	{"listBookings", []string{"list", "all bookings", "my bookings", "show bookings"}},
}

var availabilityCues = []toolCue{
	{"getSlotAvailability", []string{"slot", "slots", "available", "availability", "free", "open"}},
	{"getCapacityAnalysis", []string{"capacity", "utilization", "how busy", "how full"}},
	{"getPeakHourAnalysis", []string{"peak", "busiest", "rush"}},
	{"getTerminalById", []string{"terminal details", "about terminal"}},
	{"getAllTerminals", []string{"all terminals", "list terminals", "which terminals"}},
}

// Decompose builds the execution plan for a classification. The sanitized
// message text supplies the tool-selection cues alongside the classifier
// reasoning.
func (d *Decomposer) Decompose(classification *models.IntentClassification, messageText string) (*models.TaskPlan, error) {
	cueText := strings.ToLower(messageText + " " + classification.Reasoning)

	toolNames := d.selectTools(classification, cueText)
	if len(toolNames) == 0 {
		toolNames = fallbackTools(classification.Intent)
	}

	tasks := make([]*models.Task, 0, len(toolNames))
	var estimated time.Duration
	for i, name := range toolNames {
		entry := CatalogEntryByName(name)
		if entry == nil {
			return nil, stderrors.NewDecompositionFailedError(fmt.Sprintf("tool %q is not in the catalog", name))
		}

		args := buildToolArgs(entry, classification.Entities)
		if err := validateToolArgs(entry, args); err != nil {
			return nil, err
		}

		tasks = append(tasks, &models.Task{
			ID:          fmt.Sprintf("task-%d", i+1),
			Name:        entry.Name,
			Description: entry.Description,
			Agent:       entry.Agent,
			ToolName:    entry.Name,
			ToolArgs:    args,
			Status:      models.TaskPending,
			MaxRetries:  d.maxRetries,
		})
		estimated += entry.EstimatedDuration
	}

	wireDependencies(tasks)

	order, err := TopologicalOrder(tasks)
	if err != nil {
		return nil, err
	}

	plan := &models.TaskPlan{
		PlanID:            uuid.New().String(),
		Intent:            classification.Intent,
		Tasks:             tasks,
		ExecutionOrder:    order,
		EstimatedDuration: estimated,
		CreatedAt:         d.now().UTC(),
	}

	d.logger.Info("plan created", map[string]interface{}{
		"planId":    plan.PlanID,
		"intent":    string(plan.Intent),
		"taskCount": len(tasks),
		"tools":     toolNames,
	})

	return plan, nil
}

// selectTools picks catalog tools by intent, cue matches, and entity gating.
// A tool whose required entities are missing is skipped.
func (d *Decomposer) selectTools(classification *models.IntentClassification, cueText string) []string {
	var cues []toolCue
	switch classification.Intent {
	case models.IntentBookings:
		cues = bookingCues
	case models.IntentSlotsAvailability:
		cues = availabilityCues
	default:
		return nil
	}

	var selected []string
	for _, tc := range cues {
		if !matchesAnyCue(cueText, tc.cues) {
			continue
		}
		entry := CatalogEntryByName(tc.tool)
		if !hasRequiredEntities(entry, classification.Entities) {
			d.logger.Debug("tool skipped, required entity missing", map[string]interface{}{
				"tool":     tc.tool,
				"required": entry.RequiredEntities,
			})
			continue
		}
		selected = append(selected, tc.tool)
	}

	selected = applyCoSelections(selected, classification.Entities)
	return selected
}

// applyCoSelections adds the companion lookups the dependency rules expect:
// a createBooking plan also checks slot availability, and cancel/update plans
// first fetch the booking status when a booking id is known.
func applyCoSelections(selected []string, entities models.ExtractedEntities) []string {
	has := func(name string) bool {
		for _, s := range selected {
			if s == name {
				return true
			}
		}
		return false
	}

	if has("createBooking") && !has("getSlotAvailability") {
		selected = append([]string{"getSlotAvailability"}, selected...)
	}
	if (has("cancelBooking") || has("updateBooking")) && !has("getBookingStatus") && entities.BookingID != "" {
		selected = append([]string{"getBookingStatus"}, selected...)
	}
	return selected
}

// wireDependencies applies the fixed dependency rules between co-selected
// tasks.
func wireDependencies(tasks []*models.Task) {
	byTool := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		byTool[t.ToolName] = t
	}

	if create, ok := byTool["createBooking"]; ok {
		if avail, ok := byTool["getSlotAvailability"]; ok {
			create.Dependencies = append(create.Dependencies, avail.ID)
		}
	}
	if status, ok := byTool["getBookingStatus"]; ok {
		if cancel, ok := byTool["cancelBooking"]; ok {
			cancel.Dependencies = append(cancel.Dependencies, status.ID)
		}
		if update, ok := byTool["updateBooking"]; ok {
			update.Dependencies = append(update.Dependencies, status.ID)
		}
	}
}

func fallbackTools(intent models.Intent) []string {
	switch intent {
	case models.IntentBookings:
		return []string{"listBookings"}
	case models.IntentSlotsAvailability:
		return []string{"getSlotAvailability"}
	default:
		// Discovery pair for unclassifiable requests.
		return []string{"getAllTerminals", "getSlotAvailability"}
	}
}

// matchesAnyCue does whole-word matching so "booking" never triggers the
// bare "book" cue.
func matchesAnyCue(cueText string, cues []string) bool {
	for _, cue := range cues {
		if cueRegexp(cue).MatchString(cueText) {
			return true
		}
	}
	return false
}

var cueRegexps sync.Map // cue string -> *regexp.Regexp

func cueRegexp(cue string) *regexp.Regexp {
	if cached, ok := cueRegexps.Load(cue); ok {
		return cached.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(cue) + `\b`)
	cueRegexps.Store(cue, re)
	return re
}

func hasRequiredEntities(entry *CatalogEntry, entities models.ExtractedEntities) bool {
	for _, name := range entry.RequiredEntities {
		if entityValue(entities, name) == "" {
			return false
		}
	}
	return true
}

// buildToolArgs copies the entities a tool declares through the fixed
// entity-to-argument name mapping.
func buildToolArgs(entry *CatalogEntry, entities models.ExtractedEntities) map[string]interface{} {
	args := make(map[string]interface{})
	for _, name := range append(append([]string{}, entry.RequiredEntities...), entry.OptionalEntities...) {
		if value := entityValue(entities, name); value != "" {
			args[entityArgNames[name]] = value
		}
	}
	return args
}

func validateToolArgs(entry *CatalogEntry, args map[string]interface{}) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return stderrors.NewDecompositionFailedError(fmt.Sprintf("tool %s: args not serializable: %v", entry.Name, err))
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(entry.InputSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return stderrors.NewDecompositionFailedError(fmt.Sprintf("tool %s: schema validation error: %v", entry.Name, err))
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return stderrors.NewDecompositionFailedError(fmt.Sprintf("tool %s: invalid args: %s", entry.Name, strings.Join(details, "; ")))
	}
	return nil
}
