// Package web provides HTTP request and response types for the automation API.
package web

import "github.com/dealerdesk/automation/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name        string                    `json:"name"        validate:"required,min=3"`
	Description string                    `json:"description"`
	Enabled     bool                      `json:"enabled"`
	Trigger     models.TriggerConfig      `json:"trigger"     validate:"required"`
	Conditions  *models.ConditionGroup    `json:"conditions,omitempty"`
	Actions     []models.AutomationAction `json:"actions"     validate:"dive"`
	TenantID    string                    `json:"tenant_id"`
}

// UpdateWorkflowRequest represents the request body for updating a workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name        *string                   `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string                   `json:"description,omitempty"`
	Trigger     *models.TriggerConfig     `json:"trigger,omitempty"`
	Conditions  *models.ConditionGroup    `json:"conditions,omitempty"`
	Actions     []models.AutomationAction `json:"actions,omitempty"     validate:"omitempty,dive"`
}

// EmitEventRequest represents the request body for injecting an entity event.
// CRM services call this after committing a mutation; Origin defaults to
// "user" when omitted.
type EmitEventRequest struct {
	EntityType     models.EntityType  `json:"entity_type"               validate:"required"`
	EntityID       string             `json:"entity_id"                 validate:"required"`
	EventType      models.EventType   `json:"event_type"                validate:"required"`
	ChangedFields  map[string]any     `json:"changed_fields,omitempty"`
	PreviousValues map[string]any     `json:"previous_values,omitempty"`
	TenantID       string             `json:"tenant_id"`
	ActorUserID    string             `json:"actor_user_id"`
	Origin         models.EventOrigin `json:"origin,omitempty"`
}

// RunResponse bundles a run with its step records for the history panel.
type RunResponse struct {
	Run   *models.AutomationRun       `json:"run"`
	Steps []*models.AutomationStepRun `json:"steps"`
}
