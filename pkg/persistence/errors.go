// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"

	"github.com/dealerdesk/automation/pkg/models"
)

var (
	// ErrEntityNotFound indicates a CRM entity no longer exists. When the
	// missing entity is an event's primary entity, the executor aborts the
	// whole automation pass without creating runs.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrWorkflowNotFound indicates a workflow was not found by the given
	// identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrRunNotFound indicates a run was not found by the given identifier.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunFinalized indicates an attempt to finalize a run twice.
	ErrRunFinalized = errors.New("run already finalized")

	// ErrUnsupportedEntityType indicates an entity type outside the closed
	// enum was passed to the entity store.
	ErrUnsupportedEntityType = errors.New("unsupported entity type")
)

// EntityError wraps entity store failures with operation context.
type EntityError struct {
	Op         string
	EntityType models.EntityType
	EntityID   string
	Err        error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s failed for %s %s: %v", e.Op, e.EntityType, e.EntityID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// NewEntityError creates an entity store error with context.
func NewEntityError(op string, entityType models.EntityType, entityID string, err error) *EntityError {
	return &EntityError{Op: op, EntityType: entityType, EntityID: entityID, Err: err}
}

// IsEntityNotFound checks if an error indicates a missing entity.
func IsEntityNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsRunNotFound checks if an error indicates a missing run.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
