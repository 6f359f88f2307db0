// Package updaterecord applies a configured field map to a CRM record
// reachable from the event context.
package updaterecord

import (
	"context"
	"fmt"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/protocol"
	"github.com/dealerdesk/automation/pkg/template"
)

// Action updates one record. The target defaults to the event's primary
// entity; target_type selects another entity loaded into the context
// instead (e.g. update the deal's organisation).
type Action struct {
	store      persistence.EntityStore
	targetType models.EntityType
	fields     map[string]any
}

// NewAction builds the action from its raw configuration.
func NewAction(store persistence.EntityStore, config map[string]any) (*Action, error) {
	fieldsConfig, ok := config["fields"].(map[string]any)
	if !ok || len(fieldsConfig) == 0 {
		return nil, protocol.NewConfigError("fields", "a non-empty field map is required")
	}

	action := &Action{
		store:  store,
		fields: fieldsConfig,
	}

	if targetType, ok := config["target_type"].(string); ok && targetType != "" {
		action.targetType = models.EntityType(targetType)
		if !action.targetType.Valid() {
			return nil, protocol.NewConfigError("target_type", fmt.Sprintf("unknown entity type %q", targetType))
		}
	}

	return action, nil
}

func (a *Action) Execute(ctx context.Context, ectx *models.EventContext) (map[string]any, error) {
	targetType := a.targetType
	if targetType == "" {
		targetType = ectx.Event.EntityType
	}

	target := ectx.Entity(targetType)
	if target == nil {
		return nil, protocol.NewConfigError("target_type", fmt.Sprintf("no %s loaded in the event context", targetType))
	}

	targetID := target.ID()
	if targetID == "" {
		return nil, protocol.NewConfigError("target_type", fmt.Sprintf("%s record in context has no id", targetType))
	}

	rendered, err := template.RenderWithContext(a.fields, ectx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve field map: %w", err)
	}

	patch, ok := rendered.(map[string]any)
	if !ok {
		return nil, protocol.NewConfigError("fields", "field map did not render to an object")
	}

	updated, err := a.store.Update(ctx, targetType, targetID, models.Record(patch))
	if err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", targetType, targetID, err)
	}

	return map[string]any{
		"entity_type":    string(targetType),
		"entity_id":      updated.ID(),
		"updated_fields": patch,
	}, nil
}
