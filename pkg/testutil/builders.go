// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/google/uuid"
)

// CreateTestWorkflow creates an enabled deal/updated workflow with default
// values that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.AutomationWorkflow)) *models.AutomationWorkflow {
	workflow := &models.AutomationWorkflow{
		ID:          uuid.New().String(),
		Name:        "Test Workflow",
		Description: "workflow used in tests",
		Enabled:     true,
		Trigger: models.TriggerConfig{
			EntityType: models.EntityTypeDeal,
			EventTypes: []models.EventType{models.EventTypeUpdated},
		},
		Actions:   []models.AutomationAction{},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithTrigger sets the workflow trigger.
func WithTrigger(entityType models.EntityType, eventTypes ...models.EventType) func(*models.AutomationWorkflow) {
	return func(w *models.AutomationWorkflow) {
		w.Trigger.EntityType = entityType
		w.Trigger.EventTypes = eventTypes
	}
}

// WithStageFilter narrows a stage_changed trigger to specific stages.
func WithStageFilter(fromStageID, toStageID string) func(*models.AutomationWorkflow) {
	return func(w *models.AutomationWorkflow) {
		w.Trigger.FromStageID = fromStageID
		w.Trigger.ToStageID = toStageID
	}
}

// WithConditions sets the workflow condition tree.
func WithConditions(group *models.ConditionGroup) func(*models.AutomationWorkflow) {
	return func(w *models.AutomationWorkflow) {
		w.Conditions = group
	}
}

// WithActions sets the ordered action list.
func WithActions(actions ...models.AutomationAction) func(*models.AutomationWorkflow) {
	return func(w *models.AutomationWorkflow) {
		w.Actions = actions
	}
}

// WithEnabled sets the workflow enabled status.
func WithEnabled(enabled bool) func(*models.AutomationWorkflow) {
	return func(w *models.AutomationWorkflow) {
		w.Enabled = enabled
	}
}

// WithTenant sets the workflow tenant.
func WithTenant(tenantID string) func(*models.AutomationWorkflow) {
	return func(w *models.AutomationWorkflow) {
		w.TenantID = tenantID
	}
}

// CreateTestAction creates an action with default values that can be
// overridden.
func CreateTestAction(actionType models.ActionType, config map[string]any, overrides ...func(*models.AutomationAction)) models.AutomationAction {
	action := models.AutomationAction{
		ID:     uuid.New().String(),
		Type:   actionType,
		Config: config,
	}

	for _, override := range overrides {
		override(&action)
	}

	return action
}

// WithOrder sets the action order.
func WithOrder(order int) func(*models.AutomationAction) {
	return func(a *models.AutomationAction) {
		a.Order = order
	}
}

// WithRefreshContext opts the action into context re-hydration.
func WithRefreshContext() func(*models.AutomationAction) {
	return func(a *models.AutomationAction) {
		a.RefreshContext = true
	}
}

// CreateTestEvent creates a deal/updated event with default values that can
// be overridden.
func CreateTestEvent(overrides ...func(*models.AutomationEvent)) *models.AutomationEvent {
	event := &models.AutomationEvent{
		ID:         uuid.New().String(),
		EntityType: models.EntityTypeDeal,
		EntityID:   "deal-1",
		EventType:  models.EventTypeUpdated,
		Origin:     models.EventOriginUser,
		OccurredAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(event)
	}

	return event
}

// WithEntity sets the event's entity reference.
func WithEntity(entityType models.EntityType, entityID string) func(*models.AutomationEvent) {
	return func(e *models.AutomationEvent) {
		e.EntityType = entityType
		e.EntityID = entityID
	}
}

// WithEventType sets the event type.
func WithEventType(eventType models.EventType) func(*models.AutomationEvent) {
	return func(e *models.AutomationEvent) {
		e.EventType = eventType
	}
}

// WithChangedFields sets the event's changed fields.
func WithChangedFields(fields map[string]any) func(*models.AutomationEvent) {
	return func(e *models.AutomationEvent) {
		e.ChangedFields = fields
	}
}

// WithPreviousValues sets the event's previous values.
func WithPreviousValues(values map[string]any) func(*models.AutomationEvent) {
	return func(e *models.AutomationEvent) {
		e.PreviousValues = values
	}
}

// WithOrigin sets the event origin.
func WithOrigin(origin models.EventOrigin) func(*models.AutomationEvent) {
	return func(e *models.AutomationEvent) {
		e.Origin = origin
	}
}

// Leaf builds a single-condition helper for condition trees.
func Leaf(field string, operator models.Operator, value any) models.Condition {
	return models.Condition{Field: field, Operator: operator, Value: value}
}

// AllOf groups conditions under AND logic.
func AllOf(conds ...models.Condition) *models.ConditionGroup {
	return &models.ConditionGroup{Logic: models.LogicAnd, Conditions: conds}
}

// AnyOf groups conditions under OR logic.
func AnyOf(conds ...models.Condition) *models.ConditionGroup {
	return &models.ConditionGroup{Logic: models.LogicOr, Conditions: conds}
}
