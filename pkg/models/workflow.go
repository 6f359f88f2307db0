package models

import "time"

// ActionType identifies a configured action within a workflow.
type ActionType string

const (
	ActionTypeUpdateRecord ActionType = "update_record"
	ActionTypeCreateTask   ActionType = "create_task"
	ActionTypeCreateDeal   ActionType = "create_deal"
	ActionTypeCreateTicket ActionType = "create_ticket"
	ActionTypeCallWebhook  ActionType = "call_webhook"
)

// TriggerConfig declares which events a workflow reacts to. For
// stage_changed triggers the optional from/to filters narrow the match to
// specific pipeline stages.
type TriggerConfig struct {
	EntityType  EntityType  `json:"entity_type"             validate:"required"`
	EventTypes  []EventType `json:"event_types"             validate:"required,min=1"`
	FromStageID string      `json:"from_stage_id,omitempty"`
	ToStageID   string      `json:"to_stage_id,omitempty"`
}

// AutomationAction is one ordered step within a workflow. Config is
// action-type-specific; string values support field-path templating against
// the event context.
//
// Actions in one run execute against the same static context by default.
// RefreshContext opts a step into re-hydrating the context after it
// succeeds, for workflows that need causal chaining between steps.
type AutomationAction struct {
	ID             string         `json:"id"`
	Type           ActionType     `json:"type"  validate:"required"`
	Order          int            `json:"order"`
	Config         map[string]any `json:"config"`
	RefreshContext bool           `json:"refresh_context,omitempty"`
}

// AutomationWorkflow is a configured rule: trigger, condition tree and an
// ordered action list. Workflows are authored by CRM admins and read-only to
// the executor.
type AutomationWorkflow struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"        validate:"required,min=3"`
	Description string             `json:"description"`
	Enabled     bool               `json:"enabled"`
	Trigger     TriggerConfig      `json:"trigger"     validate:"required"`
	Conditions  *ConditionGroup    `json:"conditions,omitempty"`
	Actions     []AutomationAction `json:"actions"     validate:"dive"`
	TenantID    string             `json:"tenant_id"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}
