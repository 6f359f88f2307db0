// Package createdeal creates a deal in a configured pipeline/stage, copying
// a subset of fields from the source record. Used for lead conversion and
// cross-pipeline handoffs.
package createdeal

import (
	"context"
	"fmt"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/protocol"
	"github.com/dealerdesk/automation/pkg/template"
)

type Action struct {
	store      persistence.EntityStore
	pipelineID string
	stageID    string
	name       string
	copyFields []string
}

// NewAction builds the action. Pipeline and stage are mandatory: a deal
// must never land in an arbitrary default pipeline.
func NewAction(store persistence.EntityStore, config map[string]any) (*Action, error) {
	pipelineID, _ := config["pipeline_id"].(string)
	if pipelineID == "" {
		return nil, protocol.NewConfigError("pipeline_id", "a target pipeline is required")
	}

	stageID, _ := config["stage_id"].(string)
	if stageID == "" {
		return nil, protocol.NewConfigError("stage_id", "an initial stage is required")
	}

	action := &Action{
		store:      store,
		pipelineID: pipelineID,
		stageID:    stageID,
	}

	action.name, _ = config["name"].(string)

	if copyFields, ok := config["copy_fields"].([]any); ok {
		for _, field := range copyFields {
			fieldName, ok := field.(string)
			if !ok {
				return nil, protocol.NewConfigError("copy_fields", "field names must be strings")
			}

			action.copyFields = append(action.copyFields, fieldName)
		}
	}

	return action, nil
}

func (a *Action) Execute(ctx context.Context, ectx *models.EventContext) (map[string]any, error) {
	source := ectx.Primary()
	if source == nil {
		return nil, fmt.Errorf("no %s record loaded in the event context", ectx.Event.EntityType)
	}

	deal := models.Record{
		"pipeline_id": a.pipelineID,
		"stage_id":    a.stageID,
		"tenant_id":   ectx.Event.TenantID,
		"source_type": string(ectx.Event.EntityType),
		"source_id":   ectx.Event.EntityID,
	}

	for _, field := range a.copyFields {
		if value, ok := source[field]; ok {
			deal[field] = value
		}
	}

	if a.name != "" {
		name, err := template.RenderString(a.name, ectx.Data())
		if err != nil {
			return nil, fmt.Errorf("failed to resolve deal name: %w", err)
		}

		deal["name"] = name
	}

	created, err := a.store.Create(ctx, models.EntityTypeDeal, deal)
	if err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}

	return map[string]any{
		"entity_type": string(models.EntityTypeDeal),
		"entity_id":   created.ID(),
		"pipeline_id": a.pipelineID,
		"stage_id":    a.stageID,
	}, nil
}
