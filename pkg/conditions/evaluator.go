// Package conditions evaluates workflow condition trees against event
// context data. Evaluation is a pure function of (group, data): no side
// effects, deterministic, safe to re-run for dry-run tooling.
package conditions

import (
	"fmt"
	"strings"

	"github.com/dealerdesk/automation/pkg/models"
)

// LeafTrace records the outcome of one evaluated leaf for the automation
// history panel. Leaves skipped by short-circuiting do not appear.
type LeafTrace struct {
	Field    string          `json:"field"`
	Operator models.Operator `json:"operator"`
	Value    any             `json:"value,omitempty"`
	Resolved any             `json:"resolved,omitempty"`
	Matched  bool            `json:"matched"`
}

// Result is the outcome of evaluating one condition group.
type Result struct {
	Matched bool        `json:"matched"`
	Trace   []LeafTrace `json:"trace,omitempty"`
}

// Evaluate checks a condition group against flattened context data.
//
// A nil or zero-leaf root group is a vacuous match: no conditions means the
// workflow runs unconditionally. Within a group, "and" short-circuits on the
// first false child and an empty "and" is true; "or" short-circuits on the
// first true child and an empty "or" is false.
//
// Malformed trees (unknown operators, unknown logic) are evaluation errors,
// never a silent false.
func Evaluate(group *models.ConditionGroup, data map[string]any) (Result, error) {
	if group.Empty() {
		return Result{Matched: true}, nil
	}

	result := Result{}

	matched, err := evaluateGroup(group, data, &result.Trace)
	if err != nil {
		return Result{}, err
	}

	result.Matched = matched

	return result, nil
}

func evaluateGroup(group *models.ConditionGroup, data map[string]any, trace *[]LeafTrace) (bool, error) {
	logic := group.Logic
	if logic == "" {
		logic = models.LogicAnd
	}

	switch logic {
	case models.LogicAnd:
		for _, condition := range group.Conditions {
			matched, err := evaluateCondition(condition, data, trace)
			if err != nil {
				return false, err
			}

			if !matched {
				return false, nil
			}
		}

		for _, child := range group.Groups {
			matched, err := evaluateGroup(child, data, trace)
			if err != nil {
				return false, err
			}

			if !matched {
				return false, nil
			}
		}

		return true, nil
	case models.LogicOr:
		for _, condition := range group.Conditions {
			matched, err := evaluateCondition(condition, data, trace)
			if err != nil {
				return false, err
			}

			if matched {
				return true, nil
			}
		}

		for _, child := range group.Groups {
			matched, err := evaluateGroup(child, data, trace)
			if err != nil {
				return false, err
			}

			if matched {
				return true, nil
			}
		}

		return false, nil
	default:
		return false, fmt.Errorf("unknown logic operator %q", group.Logic)
	}
}

func evaluateCondition(condition models.Condition, data map[string]any, trace *[]LeafTrace) (bool, error) {
	resolved, _ := ResolvePath(data, condition.Field)

	matched, err := applyOperator(condition.Operator, resolved, condition.Value)
	if err != nil {
		return false, fmt.Errorf("condition on %q: %w", condition.Field, err)
	}

	*trace = append(*trace, LeafTrace{
		Field:    condition.Field,
		Operator: condition.Operator,
		Value:    condition.Value,
		Resolved: resolved,
		Matched:  matched,
	})

	return matched, nil
}

func applyOperator(operator models.Operator, resolved, literal any) (bool, error) {
	switch operator {
	case models.OperatorEquals:
		return equalValues(resolved, literal), nil
	case models.OperatorNotEquals:
		return !equalValues(resolved, literal), nil
	case models.OperatorGreaterThan:
		cmp, ok := compareValues(resolved, literal)

		return ok && cmp > 0, nil
	case models.OperatorLessThan:
		cmp, ok := compareValues(resolved, literal)

		return ok && cmp < 0, nil
	case models.OperatorGreaterOrEqual:
		cmp, ok := compareValues(resolved, literal)

		return ok && cmp >= 0, nil
	case models.OperatorLessOrEqual:
		cmp, ok := compareValues(resolved, literal)

		return ok && cmp <= 0, nil
	case models.OperatorContains:
		return containsValue(resolved, literal), nil
	case models.OperatorIn:
		return inList(resolved, literal), nil
	case models.OperatorNotIn:
		return !inList(resolved, literal), nil
	case models.OperatorIsEmpty:
		return isEmpty(resolved), nil
	case models.OperatorIsNotEmpty:
		return !isEmpty(resolved), nil
	default:
		return false, fmt.Errorf("unknown operator %q", operator)
	}
}

func containsValue(resolved, literal any) bool {
	switch v := resolved.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), strings.ToLower(stringify(literal)))
	case []any:
		for _, item := range v {
			if equalValues(item, literal) {
				return true
			}
		}

		return false
	case []string:
		for _, item := range v {
			if equalValues(item, literal) {
				return true
			}
		}

		return false
	default:
		return false
	}
}

func inList(resolved, literal any) bool {
	list, ok := asList(literal)
	if !ok {
		return false
	}

	for _, item := range list {
		if equalValues(resolved, item) {
			return true
		}
	}

	return false
}
