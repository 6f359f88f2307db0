// Package persistence provides the storage abstraction layer for workflows,
// runs, step runs and CRM entity records.
package persistence

import (
	"context"

	"github.com/dealerdesk/automation/pkg/models"
)

// WorkflowRepository stores workflow configurations.
type WorkflowRepository interface {
	List(ctx context.Context, tenantID string) ([]*models.AutomationWorkflow, error)
	GetByID(ctx context.Context, id string) (*models.AutomationWorkflow, error)
	Save(ctx context.Context, workflow *models.AutomationWorkflow) error
	Delete(ctx context.Context, id string) error

	// FindEnabledByTrigger returns the enabled workflows whose trigger
	// references the given entity type and event type. Stage filters are
	// matched later, per event, by the executor.
	FindEnabledByTrigger(ctx context.Context, entityType models.EntityType, eventType models.EventType, tenantID string) ([]*models.AutomationWorkflow, error)
}

// RunRepository stores execution records. Runs are created pending and
// finalized exactly once.
type RunRepository interface {
	Create(ctx context.Context, run *models.AutomationRun) error
	Finalize(ctx context.Context, runID string, status models.ExecutionStatus, errorMessage string) error
	GetByID(ctx context.Context, id string) (*models.AutomationRun, error)
	ListByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]*models.AutomationRun, error)
}

// StepRunRepository stores the append-only per-action records under a run.
type StepRunRepository interface {
	Create(ctx context.Context, stepRun *models.AutomationStepRun) error
	ListByRun(ctx context.Context, runID string) ([]*models.AutomationStepRun, error)
}

// EntityStore is the engine's window onto CRM entity data: reads for context
// hydration, writes for update_record and the create_* actions. The backing
// store provides whatever atomicity it needs; the engine does not wrap
// actions in a cross-entity transaction.
type EntityStore interface {
	Get(ctx context.Context, entityType models.EntityType, id string) (models.Record, error)
	Create(ctx context.Context, entityType models.EntityType, data models.Record) (models.Record, error)
	Update(ctx context.Context, entityType models.EntityType, id string, patch models.Record) (models.Record, error)
}

// Persistence bundles the repositories behind one injectable backend.
type Persistence interface {
	Workflows() WorkflowRepository
	Runs() RunRepository
	StepRuns() StepRunRepository
	Entities() EntityStore

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
