package createdeal

import (
	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/protocol"
)

// Factory creates create_deal handlers bound to an entity store.
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
	return models.ActionTypeCreateDeal
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pipeline_id": map[string]any{
				"type":        "string",
				"description": "Pipeline the new deal is created in.",
				"minLength":   1,
			},
			"stage_id": map[string]any{
				"type":        "string",
				"description": "Initial stage of the new deal.",
				"minLength":   1,
			},
			"name": map[string]any{
				"type":        "string",
				"description": "Deal name. Supports templating, e.g. \"{{.lead.company}} handoff\".",
			},
			"copy_fields": map[string]any{
				"type":        "array",
				"description": "Fields copied verbatim from the source record onto the new deal.",
				"items": map[string]any{
					"type": "string",
				},
			},
		},
		"required": []string{"pipeline_id", "stage_id"},
	}
}
