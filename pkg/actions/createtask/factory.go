package createtask

import (
	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/protocol"
)

// Factory creates create_task handlers bound to an entity store.
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
	return models.ActionTypeCreateTask
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Task title. Supports templating, e.g. \"Call {{.contact.name}}\".",
				"minLength":   1,
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Task description. Supports templating.",
			},
			"assignee_id": map[string]any{
				"type":        "string",
				"description": "User to assign the task to. Supports templating, e.g. {{.deal.owner_id}}.",
			},
			"due_in_days": map[string]any{
				"type":        "number",
				"description": "Due date offset in days from the moment the task is created.",
				"minimum":     0,
			},
		},
		"required": []string{"title"},
	}
}
