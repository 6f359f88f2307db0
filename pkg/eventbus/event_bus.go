// Package eventbus carries AutomationEvents from CRM mutation paths to the
// automation worker.
package eventbus

import (
	"context"

	"github.com/dealerdesk/automation/pkg/models"
)

// Topic for CRM entity events.
const Topic = "crm.entity.events"

const (
	EventIDMetadataKey    = "event_id"
	EntityTypeMetadataKey = "entity_type"
	EventTypeMetadataKey  = "event_type"
)

// EventHandler consumes one entity event. Returning an error nacks the
// message so the transport redelivers it.
type EventHandler func(ctx context.Context, event *models.AutomationEvent) error

type EventPublisher interface {
	Publish(ctx context.Context, event *models.AutomationEvent) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
