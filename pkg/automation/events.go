// Package automation contains the workflow execution pipeline: event
// helpers, context hydration and the executor.
package automation

import "github.com/dealerdesk/automation/pkg/models"

// MatchesTrigger reports whether a workflow trigger reacts to an event:
// entity type and event type must match, and for stage_changed events any
// configured from/to stage filters must match the event's previous and new
// stage.
func MatchesTrigger(event *models.AutomationEvent, trigger models.TriggerConfig) bool {
	if trigger.EntityType != event.EntityType {
		return false
	}

	matched := false

	for _, eventType := range trigger.EventTypes {
		if eventType == event.EventType {
			matched = true

			break
		}
	}

	if !matched {
		return false
	}

	if event.EventType == models.EventTypeStageChanged {
		if trigger.FromStageID != "" && stringField(event.PreviousValues, "stage_id") != trigger.FromStageID {
			return false
		}

		if trigger.ToStageID != "" && stringField(event.ChangedFields, "stage_id") != trigger.ToStageID {
			return false
		}
	}

	return true
}

// ShouldSkipAutomations is the loop-prevention gate: events caused by the
// engine's own writes (and bulk imports) never re-enter the evaluation
// pipeline. The executor stamps every follow-up event it emits with
// EventOriginAutomation, so the policy holds without trusting callers.
func ShouldSkipAutomations(event *models.AutomationEvent) bool {
	return event.Origin == models.EventOriginAutomation || event.Origin == models.EventOriginImport
}

func stringField(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}

	value, _ := fields[key].(string)

	return value
}
