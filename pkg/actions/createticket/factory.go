package createticket

import (
	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/protocol"
)

// Factory creates create_ticket handlers bound to an entity store.
type Factory struct {
	store persistence.EntityStore
}

func NewFactory(store persistence.EntityStore) *Factory {
	return &Factory{store: store}
}

func (f *Factory) Create(config map[string]any) (protocol.ActionHandler, error) {
	return NewAction(f.store, config)
}

func (f *Factory) ID() models.ActionType {
	return models.ActionTypeCreateTicket
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{
				"type":        "string",
				"description": "Ticket subject. Supports templating.",
				"minLength":   1,
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Ticket description. Supports templating.",
			},
			"assignee_id": map[string]any{
				"type":        "string",
				"description": "User to assign the ticket to. Supports templating.",
			},
			"priority": map[string]any{
				"type":        "string",
				"description": "Ticket priority.",
				"enum":        []string{"low", "normal", "high", "urgent"},
			},
		},
		"required": []string{"subject"},
	}
}
