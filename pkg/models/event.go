package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies the CRM mutation that produced an event.
type EventType string

const (
	EventTypeCreated       EventType = "created"
	EventTypeUpdated       EventType = "updated"
	EventTypeDeleted       EventType = "deleted"
	EventTypeStageChanged  EventType = "stage_changed"
	EventTypeLeadConverted EventType = "lead_converted"
	EventTypeAssigned      EventType = "assigned"
	EventTypeStatusChanged EventType = "status_changed"
)

// EventOrigin records who caused a mutation. Automation-caused writes are
// stamped EventOriginAutomation so they never re-enter the evaluation
// pipeline and trigger themselves indefinitely.
type EventOrigin string

const (
	EventOriginUser       EventOrigin = "user"
	EventOriginAutomation EventOrigin = "automation"
	EventOriginImport     EventOrigin = "import"
)

// AutomationEvent is an immutable record of one CRM mutation. It is produced
// once by the mutation path and consumed exactly once by the executor.
type AutomationEvent struct {
	ID             string         `json:"id"`
	EntityType     EntityType     `json:"entity_type"    validate:"required"`
	EntityID       string         `json:"entity_id"      validate:"required"`
	EventType      EventType      `json:"event_type"     validate:"required"`
	ChangedFields  map[string]any `json:"changed_fields,omitempty"`
	PreviousValues map[string]any `json:"previous_values,omitempty"`
	TenantID       string         `json:"tenant_id"`
	ActorUserID    string         `json:"actor_user_id,omitempty"`
	Origin         EventOrigin    `json:"origin"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

// NewEvent builds a normalized AutomationEvent for a user-originated CRM
// mutation.
func NewEvent(entityType EntityType, entityID string, eventType EventType, changes map[string]any, tenantID string) *AutomationEvent {
	return &AutomationEvent{
		ID:            uuid.New().String(),
		EntityType:    entityType,
		EntityID:      entityID,
		EventType:     eventType,
		ChangedFields: changes,
		TenantID:      tenantID,
		Origin:        EventOriginUser,
		OccurredAt:    time.Now().UTC(),
	}
}
