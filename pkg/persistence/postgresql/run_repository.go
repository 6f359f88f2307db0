package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/google/uuid"
)

// RunRepository handles automation run records.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

const runColumns = `
	id
  , workflow_id
  , event_id
  , tenant_id
  , primary_entity_type
  , primary_entity_id
  , conditions_matched
  , status
  , error_message
  , triggered_at
  , finished_at
`

func (r *RunRepository) Create(ctx context.Context, run *models.AutomationRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	if run.TriggeredAt.IsZero() {
		run.TriggeredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO automation_runs (
			id, workflow_id, event_id, tenant_id,
			primary_entity_type, primary_entity_id,
			conditions_matched, status, error_message, triggered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.WorkflowID,
		run.EventID,
		run.TenantID,
		string(run.PrimaryEntityType),
		run.PrimaryEntityID,
		run.ConditionsMatched,
		string(run.Status),
		run.ErrorMessage,
		run.TriggeredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// Finalize sets the terminal status exactly once. A run that already has a
// finished_at timestamp stays untouched.
func (r *RunRepository) Finalize(ctx context.Context, runID string, status models.ExecutionStatus, errorMessage string) error {
	query := `
		UPDATE automation_runs
		SET status = $2, error_message = $3, finished_at = NOW()
		WHERE id = $1 AND finished_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, runID, string(status), errorMessage)
	if err != nil {
		return fmt.Errorf("failed to finalize run %s: %w", runID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finalize result: %w", err)
	}

	if affected == 0 {
		exists, existsErr := r.runExists(ctx, runID)
		if existsErr != nil {
			return existsErr
		}

		if !exists {
			return persistence.ErrRunNotFound
		}

		return persistence.ErrRunFinalized
	}

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.AutomationRun, error) {
	query := `SELECT ` + runColumns + ` FROM automation_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return run, nil
}

func (r *RunRepository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]*models.AutomationRun, error) {
	query := `SELECT ` + runColumns + `
		FROM automation_runs
		WHERE primary_entity_type = $1 AND primary_entity_id = $2
		ORDER BY triggered_at DESC`

	rows, err := r.db.QueryContext(ctx, query, string(entityType), entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	runs := make([]*models.AutomationRun, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) runExists(ctx context.Context, runID string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM automation_runs WHERE id = $1)", runID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check run %s: %w", runID, err)
	}

	return exists, nil
}

func scanRun(row rowScanner) (*models.AutomationRun, error) {
	var (
		run        models.AutomationRun
		entityType string
		status     string
		finishedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.WorkflowID,
		&run.EventID,
		&run.TenantID,
		&entityType,
		&run.PrimaryEntityID,
		&run.ConditionsMatched,
		&status,
		&run.ErrorMessage,
		&run.TriggeredAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.PrimaryEntityType = models.EntityType(entityType)
	run.Status = models.ExecutionStatus(status)

	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}

	return &run, nil
}
