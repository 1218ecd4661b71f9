package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"brandpulse/internal/model"
)

// ErrMixedConditionDialects is returned when a workflow combines
// field-based and natural-language conditions. A workflow uses exactly
// one dialect.
var ErrMixedConditionDialects = errors.New("workflow mixes field and prompt conditions")

// Classifier answers a yes/no natural-language question about an
// interaction's content.
type Classifier interface {
	Classify(ctx context.Context, prompt string, in *model.Interaction) (bool, error)
}

// ValidateConditions checks a workflow's condition list at save time:
// exactly one dialect, known fields, operators matching the field type,
// parseable values, non-empty prompts.
func ValidateConditions(conds []model.Condition) error {
	var fields, prompts int
	for i, c := range conds {
		switch c.Kind {
		case model.ConditionField:
			fields++
			ft, ok := ConditionFields[c.Field]
			if !ok {
				return fmt.Errorf("condition %d: unknown field %q", i, c.Field)
			}
			if !operatorAllowed(ft, c.Operator) {
				return fmt.Errorf("condition %d: operator %q not valid for %s field %q", i, c.Operator, ft, c.Field)
			}
			switch ft {
			case FieldNumeric:
				if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
					return fmt.Errorf("condition %d: numeric value %q: %w", i, c.Value, err)
				}
			case FieldBoolean:
				if _, err := strconv.ParseBool(c.Value); err != nil {
					return fmt.Errorf("condition %d: boolean value %q: %w", i, c.Value, err)
				}
			}
		case model.ConditionPrompt:
			prompts++
			if c.Prompt == "" {
				return fmt.Errorf("condition %d: empty prompt", i)
			}
		default:
			return fmt.Errorf("condition %d: unknown kind %q", i, c.Kind)
		}
	}
	if fields > 0 && prompts > 0 {
		return ErrMixedConditionDialects
	}
	return nil
}

// evalConditions decides whether a workflow's conditions hold for an
// interaction. Field conditions AND together; prompt conditions OR
// together (first true prompt suffices). An empty list always matches.
// The returned count is the number of classifier calls made. A
// classifier failure is reported through err; the caller decides the
// fallback (treated as non-match, recorded on the dispatch).
func (e *Engine) evalConditions(ctx context.Context, w *model.Workflow, in *model.Interaction) (matched bool, aiCalls int, err error) {
	if len(w.Conditions) == 0 {
		return true, 0, nil
	}

	// Dialect exclusivity is enforced at save time, so the first entry
	// decides how the list combines.
	if w.Conditions[0].Kind == model.ConditionField {
		for _, c := range w.Conditions {
			ok, err := evalFieldCondition(c, in)
			if err != nil {
				return false, 0, err
			}
			if !ok {
				return false, 0, nil
			}
		}
		return true, 0, nil
	}

	var lastErr error
	for _, c := range w.Conditions {
		if e.classifier == nil {
			return false, aiCalls, errors.New("no classifier configured for prompt conditions")
		}
		aiCalls++
		ok, err := e.classifier.Classify(ctx, c.Prompt, in)
		if err != nil {
			// Timeout or upstream failure counts as non-match for this
			// prompt; keep trying the remaining prompts.
			lastErr = err
			continue
		}
		if ok {
			return true, aiCalls, nil
		}
	}
	return false, aiCalls, lastErr
}
