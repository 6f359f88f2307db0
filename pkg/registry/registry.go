// Package registry maps action types to their handler factories.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

type Registry struct {
	logger    *slog.Logger
	factories map[models.ActionType]protocol.ActionHandlerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.ActionType]protocol.ActionHandlerFactory),
	}
}

func (r *Registry) Register(factory protocol.ActionHandlerFactory) {
	r.factories[factory.ID()] = factory
}

// CreateHandler builds a configured handler for an action type. A missing
// registration is a configuration error the executor records as a failed
// step.
func (r *Registry) CreateHandler(actionType models.ActionType, config map[string]any) (protocol.ActionHandler, error) {
	factory, ok := r.factories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	return factory.Create(config)
}

// ValidateConfig checks an action config against the factory's JSON schema.
// Called when workflows are saved so admins learn about malformed configs
// before the first event arrives.
func (r *Registry) ValidateConfig(actionType models.ActionType, config map[string]any) error {
	factory, ok := r.factories[actionType]
	if !ok {
		return fmt.Errorf("action type '%s' not registered", actionType)
	}

	schemaJSON, err := json.Marshal(factory.Schema())
	if err != nil {
		return fmt.Errorf("failed to marshal schema for action type '%s': %w", actionType, err)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config for action type '%s': %w", actionType, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			details = append(details, resultErr.String())
		}

		return fmt.Errorf("invalid config for action type '%s': %s", actionType, strings.Join(details, "; "))
	}

	return nil
}

// ActionTypes returns the registered action types.
func (r *Registry) ActionTypes() []models.ActionType {
	types := make([]models.ActionType, 0, len(r.factories))
	for actionType := range r.factories {
		types = append(types, actionType)
	}

	return types
}

// HealthCheck reports whether every built-in action type has a handler.
func (r *Registry) HealthCheck() (string, bool) {
	required := []models.ActionType{
		models.ActionTypeUpdateRecord,
		models.ActionTypeCreateTask,
		models.ActionTypeCreateDeal,
		models.ActionTypeCreateTicket,
		models.ActionTypeCallWebhook,
	}

	missing := make([]string, 0)

	for _, actionType := range required {
		if _, ok := r.factories[actionType]; !ok {
			missing = append(missing, string(actionType))
		}
	}

	if len(missing) > 0 {
		return "Missing action handlers: " + strings.Join(missing, ", "), false
	}

	return "All action handlers registered", true
}
