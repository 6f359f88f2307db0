package models

import "time"

// ExecutionStatus applies to runs (aggregate) and step runs (individual).
type ExecutionStatus string

const (
	StatusPending ExecutionStatus = "pending"
	StatusRunning ExecutionStatus = "running"
	StatusSuccess ExecutionStatus = "success"
	StatusFailed  ExecutionStatus = "failed"
	StatusSkipped ExecutionStatus = "skipped"
	StatusPartial ExecutionStatus = "partial"
)

// AutomationRun is one execution record per (event, workflow) match. It is
// created before condition evaluation and finalized once, after which it is
// immutable. Runs are kept indefinitely for the automation history panel.
type AutomationRun struct {
	ID                string          `json:"id"`
	WorkflowID        string          `json:"workflow_id"`
	EventID           string          `json:"event_id"`
	TenantID          string          `json:"tenant_id"`
	PrimaryEntityType EntityType      `json:"primary_entity_type"`
	PrimaryEntityID   string          `json:"primary_entity_id"`
	ConditionsMatched bool            `json:"conditions_matched"`
	Status            ExecutionStatus `json:"status"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	TriggeredAt       time.Time       `json:"triggered_at"`
	FinishedAt        *time.Time      `json:"finished_at,omitempty"`
}

// AutomationStepRun records one action execution within a run. Step runs are
// append-only; their Order matches the workflow's action ordering.
type AutomationStepRun struct {
	ID           string          `json:"id"`
	RunID        string          `json:"run_id"`
	ActionID     string          `json:"action_id"`
	ActionType   ActionType      `json:"action_type"`
	Order        int             `json:"order"`
	Status       ExecutionStatus `json:"status"`
	Output       map[string]any  `json:"output,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ExecutedAt   time.Time       `json:"executed_at"`
}
