package updaterecord

import (
	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/protocol"
)

// Factory creates update_record handlers bound to an entity store.
type Factory struct {
	store persistence.EntityStore
}

// NewFactory creates a new update_record factory.
func NewFactory(store persistence.EntityStore) *Factory {
	return &Factory{store: store}
}

// Create creates a configured handler instance.
func (f *Factory) Create(config map[string]any) (protocol.ActionHandler, error) {
	return NewAction(f.store, config)
}

// ID returns the action type this factory serves.
func (f *Factory) ID() models.ActionType {
	return models.ActionTypeUpdateRecord
}

// Schema returns the JSON schema for the action configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target_type": map[string]any{
				"type":        "string",
				"description": "Entity type to update. Defaults to the event's primary entity.",
				"enum": []string{
					"deal", "contact", "organisation", "lead",
					"task", "ticket", "call",
				},
			},
			"fields": map[string]any{
				"type":        "object",
				"description": "Field map to apply. Values may be literals or field-path templates like {{.ticket.assignee_id}}.",
				"minProperties": 1,
			},
		},
		"required": []string{"fields"},
	}
}
