package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , name
  , description
  , enabled
  , trigger_entity_type
  , trigger_event_types
  , trigger_from_stage_id
  , trigger_to_stage_id
  , conditions
  , actions
  , tenant_id
  , created_at
  , updated_at
`

func (r *WorkflowRepository) List(ctx context.Context, tenantID string) ([]*models.AutomationWorkflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM automation_workflows
		WHERE ($1 = '' OR tenant_id = $1)
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer r.closeRows(ctx, rows)

	return r.collectWorkflows(rows)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.AutomationWorkflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM automation_workflows
		WHERE id = $1`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.AutomationWorkflow) error {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
		workflow.CreatedAt = time.Now().UTC()
	}

	workflow.UpdatedAt = time.Now().UTC()

	conditionsJSON, err := json.Marshal(workflow.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	actionsJSON, err := json.Marshal(workflow.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	eventTypes := make([]string, len(workflow.Trigger.EventTypes))
	for i, eventType := range workflow.Trigger.EventTypes {
		eventTypes[i] = string(eventType)
	}

	query := `
		INSERT INTO automation_workflows (
			id, name, description, enabled,
			trigger_entity_type, trigger_event_types,
			trigger_from_stage_id, trigger_to_stage_id,
			conditions, actions, tenant_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			enabled = EXCLUDED.enabled,
			trigger_entity_type = EXCLUDED.trigger_entity_type,
			trigger_event_types = EXCLUDED.trigger_event_types,
			trigger_from_stage_id = EXCLUDED.trigger_from_stage_id,
			trigger_to_stage_id = EXCLUDED.trigger_to_stage_id,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			tenant_id = EXCLUDED.tenant_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.Enabled,
		string(workflow.Trigger.EntityType),
		pq.Array(eventTypes),
		workflow.Trigger.FromStageID,
		workflow.Trigger.ToStageID,
		conditionsJSON,
		actionsJSON,
		workflow.TenantID,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM automation_workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

func (r *WorkflowRepository) FindEnabledByTrigger(ctx context.Context, entityType models.EntityType, eventType models.EventType, tenantID string) ([]*models.AutomationWorkflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM automation_workflows
		WHERE enabled = TRUE
		  AND trigger_entity_type = $1
		  AND $2 = ANY(trigger_event_types)
		  AND ($3 = '' OR tenant_id = '' OR tenant_id = $3)
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, string(entityType), string(eventType), tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows by trigger: %w", err)
	}
	defer r.closeRows(ctx, rows)

	return r.collectWorkflows(rows)
}

func (r *WorkflowRepository) collectWorkflows(rows *sql.Rows) ([]*models.AutomationWorkflow, error) {
	workflows := make([]*models.AutomationWorkflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.AutomationWorkflow, error) {
	var (
		workflow       models.AutomationWorkflow
		entityType     string
		eventTypes     pq.StringArray
		conditionsJSON []byte
		actionsJSON    []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Enabled,
		&entityType,
		&eventTypes,
		&workflow.Trigger.FromStageID,
		&workflow.Trigger.ToStageID,
		&conditionsJSON,
		&actionsJSON,
		&workflow.TenantID,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.Trigger.EntityType = models.EntityType(entityType)

	workflow.Trigger.EventTypes = make([]models.EventType, len(eventTypes))
	for i, et := range eventTypes {
		workflow.Trigger.EventTypes[i] = models.EventType(et)
	}

	if len(conditionsJSON) > 0 {
		if err := json.Unmarshal(conditionsJSON, &workflow.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}

	if len(actionsJSON) > 0 {
		if err := json.Unmarshal(actionsJSON, &workflow.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
		}
	}

	return &workflow, nil
}
