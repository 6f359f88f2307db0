// Package protocol defines the contracts between the workflow executor and
// pluggable action handlers.
package protocol

import (
	"context"

	"github.com/dealerdesk/automation/pkg/models"
)

// ActionHandler executes one configured action against an event context.
// The context is read-only; entity writes go through the repository path.
// Handlers return a descriptive error for any failure; the executor records
// it as a failed step and continues with the remaining actions.
type ActionHandler interface {
	Execute(ctx context.Context, ectx *models.EventContext) (map[string]any, error)
}

// ActionHandlerFactory builds configured handler instances. Factories own
// config coercion and validation; a config the factory rejects becomes a
// failed step before the handler ever runs.
type ActionHandlerFactory interface {
	Create(config map[string]any) (ActionHandler, error)
	ID() models.ActionType
	Schema() map[string]any
}
