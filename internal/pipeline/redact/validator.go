// internal/pipeline/redact/validator.go
package redact

import (
	"encoding/json"
	"fmt"
	"time"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/common/metrics"
	"portlink-orchestrator/internal/models"
)

// Validator scrubs synthesized output before it leaves the system. It is a
// pure transform over the tagged value tree, with two independent checks per
// field: the field path and the string value.
type Validator struct {
	strict bool
	logger logger.Logger
	now    func() time.Time
}

func New(strict bool, log logger.Logger) *Validator {
	return &Validator{
		strict: strict,
		logger: log,
		now:    time.Now,
	}
}

// Validate scrubs the output and reports every change. In strict mode any
// violation fails the request instead of returning the scrubbed output.
func (v *Validator) Validate(output *models.SynthesizedOutput) (*models.ValidatedOutput, error) {
	tree, err := toTree(output)
	if err != nil {
		return nil, fmt.Errorf("output not walkable: %w", err)
	}

	var violations []models.ConfidentialityViolation
	walk(tree, "", &violations)

	check := &models.ConfidentialityCheck{
		Passed:    len(violations) == 0,
		CheckedAt: v.now().UTC(),
	}
	for _, violation := range violations {
		check.Violations = append(check.Violations, violation)
		check.RedactedFields = append(check.RedactedFields, violation.Field)
		metrics.ConfidentialityViolations.WithLabelValues(violation.Action).Inc()
	}

	if len(violations) > 0 {
		v.logger.Warn("confidential data scrubbed from output", map[string]interface{}{
			"violationCount": len(violations),
			"strict":         v.strict,
		})
		if v.strict {
			return nil, stderrors.NewConfidentialityViolationError(len(violations))
		}
	}

	validated, err := fromTree(output.Kind, tree)
	if err != nil {
		return nil, fmt.Errorf("scrubbed output not decodable: %w", err)
	}
	validated.Check = check
	return validated, nil
}

// walk applies the rule table depth-first. Objects are visited in sorted key
// order so violation reports are deterministic.
func walk(value *Value, path string, violations *[]models.ConfidentialityViolation) {
	switch value.Kind {
	case KindObject:
		for _, key := range sortedKeys(value.Object) {
			child := value.Object[key]
			childPath := joinPath(path, key)

			if rule, action := fieldRule(key); rule != nil {
				if applyFieldAction(value, key, child, childPath, rule, action, violations) {
					continue
				}
			}
			walk(child, childPath, violations)
		}
	case KindArray:
		for i, child := range value.Array {
			walk(child, fmt.Sprintf("%s[%d]", path, i), violations)
		}
	case KindString:
		scrubStringValue(value, path, violations)
	}
}

// fieldRule finds the first rule whose field-name list covers the key.
func fieldRule(key string) (*Rule, string) {
	for i := range rules {
		if rules[i].fieldMatches(key) {
			return &rules[i], rules[i].FieldAction
		}
	}
	return nil, ""
}

// applyFieldAction handles a field-name match. Returns true when the child
// needs no further descent (it was removed or rewritten).
func applyFieldAction(parent *Value, key string, child *Value, path string, rule *Rule, action string, violations *[]models.ConfidentialityViolation) bool {
	if child.Kind == KindString && isSanitized(child.Str) {
		return true
	}

	switch action {
	case models.ViolationActionRemoved:
		delete(parent.Object, key)
	case models.ViolationActionRedacted:
		*child = Value{Kind: KindString, Str: redactedPlaceholder}
	case models.ViolationActionMasked:
		if child.Kind != KindString {
			*child = Value{Kind: KindString, Str: redactedPlaceholder}
		} else if rule.Mask != nil {
			child.Str = rule.Mask(child.Str)
		} else {
			child.Str = maskGeneric(child.Str)
		}
	default:
		return false
	}

	*violations = append(*violations, models.ConfidentialityViolation{
		Field:  path,
		Reason: rule.Reason,
		Action: action,
	})
	return true
}

// scrubStringValue applies the value-pattern checks to one string leaf,
// masking or redacting matched substrings in place.
func scrubStringValue(value *Value, path string, violations *[]models.ConfidentialityViolation) {
	if isSanitized(value.Str) {
		return
	}

	for i := range rules {
		rule := &rules[i]
		if rule.ValueRegex == nil {
			continue
		}

		matched := false
		scrubbed := rule.ValueRegex.ReplaceAllStringFunc(value.Str, func(match string) string {
			if rule.MinDigits > 0 && digitCount(match) < rule.MinDigits {
				return match
			}
			matched = true
			if rule.ValueAction == models.ViolationActionMasked && rule.Mask != nil {
				return rule.Mask(match)
			}
			return redactedPlaceholder
		})
		if !matched {
			continue
		}

		value.Str = scrubbed
		*violations = append(*violations, models.ConfidentialityViolation{
			Field:  path,
			Reason: rule.Reason,
			Action: rule.ValueAction,
		})
	}
}

func digitCount(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func toTree(output *models.SynthesizedOutput) (*Value, error) {
	var payload interface{}
	switch output.Kind {
	case models.OutputKindDashboard:
		payload = output.Dashboard
	default:
		payload = output.Carrier
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return FromAny(decoded), nil
}

func fromTree(kind string, tree *Value) (*models.ValidatedOutput, error) {
	raw, err := json.Marshal(tree.ToAny())
	if err != nil {
		return nil, err
	}

	validated := &models.ValidatedOutput{Kind: kind}
	switch kind {
	case models.OutputKindDashboard:
		var dashboard models.DashboardOutput
		if err := json.Unmarshal(raw, &dashboard); err != nil {
			return nil, err
		}
		validated.Dashboard = &dashboard
	default:
		var carrier models.CarrierOutput
		if err := json.Unmarshal(raw, &carrier); err != nil {
			return nil, err
		}
		validated.Carrier = &carrier
	}
	return validated, nil
}
