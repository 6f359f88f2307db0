// Package memory provides an in-memory persistence implementation used by
// tests and local development. State lives in the injected instance, never
// in package-level variables, so each test gets an isolated store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/google/uuid"
)

// Persistence implements persistence.Persistence backed by maps.
type Persistence struct {
	workflows *WorkflowRepository
	runs      *RunRepository
	stepRuns  *StepRunRepository
	entities  *EntityStore
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		workflows: &WorkflowRepository{items: make(map[string]*models.AutomationWorkflow)},
		runs:      &RunRepository{items: make(map[string]*models.AutomationRun)},
		stepRuns:  &StepRunRepository{items: make(map[string][]*models.AutomationStepRun)},
		entities:  NewEntityStore(),
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository { return p.workflows }
func (p *Persistence) Runs() persistence.RunRepository           { return p.runs }
func (p *Persistence) StepRuns() persistence.StepRunRepository   { return p.stepRuns }
func (p *Persistence) Entities() persistence.EntityStore         { return p.entities }

func (p *Persistence) HealthCheck(_ context.Context) error { return nil }
func (p *Persistence) Close(_ context.Context) error       { return nil }

// WorkflowRepository stores workflows in a map guarded by a mutex.
type WorkflowRepository struct {
	mu    sync.RWMutex
	items map[string]*models.AutomationWorkflow
}

func (r *WorkflowRepository) List(_ context.Context, tenantID string) ([]*models.AutomationWorkflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflows := make([]*models.AutomationWorkflow, 0, len(r.items))

	for _, workflow := range r.items {
		if tenantID != "" && workflow.TenantID != tenantID {
			continue
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.AutomationWorkflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflow, ok := r.items[id]
	if !ok {
		return nil, persistence.ErrWorkflowNotFound
	}

	return workflow, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.AutomationWorkflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if existing, ok := r.items[workflow.ID]; ok {
		workflow.CreatedAt = existing.CreatedAt
	} else {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now
	r.items[workflow.ID] = workflow

	return nil
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return persistence.ErrWorkflowNotFound
	}

	delete(r.items, id)

	return nil
}

func (r *WorkflowRepository) FindEnabledByTrigger(_ context.Context, entityType models.EntityType, eventType models.EventType, tenantID string) ([]*models.AutomationWorkflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]*models.AutomationWorkflow, 0)

	for _, workflow := range r.items {
		if !workflow.Enabled || workflow.Trigger.EntityType != entityType {
			continue
		}

		if tenantID != "" && workflow.TenantID != "" && workflow.TenantID != tenantID {
			continue
		}

		for _, et := range workflow.Trigger.EventTypes {
			if et == eventType {
				matches = append(matches, workflow)

				break
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})

	return matches, nil
}

// RunRepository stores runs in a map guarded by a mutex.
type RunRepository struct {
	mu    sync.RWMutex
	items map[string]*models.AutomationRun
}

func (r *RunRepository) Create(_ context.Context, run *models.AutomationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	if run.TriggeredAt.IsZero() {
		run.TriggeredAt = time.Now().UTC()
	}

	stored := *run
	r.items[run.ID] = &stored

	return nil
}

func (r *RunRepository) Finalize(_ context.Context, runID string, status models.ExecutionStatus, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.items[runID]
	if !ok {
		return persistence.ErrRunNotFound
	}

	if run.FinishedAt != nil {
		return persistence.ErrRunFinalized
	}

	now := time.Now().UTC()
	run.Status = status
	run.ErrorMessage = errorMessage
	run.FinishedAt = &now

	return nil
}

func (r *RunRepository) GetByID(_ context.Context, id string) (*models.AutomationRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.items[id]
	if !ok {
		return nil, persistence.ErrRunNotFound
	}

	copied := *run

	return &copied, nil
}

func (r *RunRepository) ListByEntity(_ context.Context, entityType models.EntityType, entityID string) ([]*models.AutomationRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]*models.AutomationRun, 0)

	for _, run := range r.items {
		if run.PrimaryEntityType == entityType && run.PrimaryEntityID == entityID {
			copied := *run
			runs = append(runs, &copied)
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].TriggeredAt.After(runs[j].TriggeredAt)
	})

	return runs, nil
}

// StepRunRepository stores step runs grouped by run ID.
type StepRunRepository struct {
	mu    sync.RWMutex
	items map[string][]*models.AutomationStepRun
}

func (r *StepRunRepository) Create(_ context.Context, stepRun *models.AutomationStepRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stepRun.ID == "" {
		stepRun.ID = uuid.New().String()
	}

	if stepRun.ExecutedAt.IsZero() {
		stepRun.ExecutedAt = time.Now().UTC()
	}

	stored := *stepRun
	r.items[stepRun.RunID] = append(r.items[stepRun.RunID], &stored)

	return nil
}

func (r *StepRunRepository) ListByRun(_ context.Context, runID string) ([]*models.AutomationStepRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stepRuns := make([]*models.AutomationStepRun, 0, len(r.items[runID]))

	for _, stepRun := range r.items[runID] {
		copied := *stepRun
		stepRuns = append(stepRuns, &copied)
	}

	sort.Slice(stepRuns, func(i, j int) bool {
		return stepRuns[i].Order < stepRuns[j].Order
	})

	return stepRuns, nil
}
