package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/google/uuid"
)

// StepRunRepository handles the append-only per-action records.
type StepRunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStepRunRepository creates a new step run repository.
func NewStepRunRepository(db *sql.DB, logger *slog.Logger) *StepRunRepository {
	return &StepRunRepository{db: db, logger: logger}
}

func (r *StepRunRepository) Create(ctx context.Context, stepRun *models.AutomationStepRun) error {
	if stepRun.ID == "" {
		stepRun.ID = uuid.New().String()
	}

	if stepRun.ExecutedAt.IsZero() {
		stepRun.ExecutedAt = time.Now().UTC()
	}

	var outputJSON []byte

	if stepRun.Output != nil {
		var err error

		outputJSON, err = json.Marshal(stepRun.Output)
		if err != nil {
			return fmt.Errorf("failed to marshal step output: %w", err)
		}
	}

	query := `
		INSERT INTO automation_step_runs (
			id, run_id, action_id, action_type, step_order,
			status, output, error_message, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		stepRun.ID,
		stepRun.RunID,
		stepRun.ActionID,
		string(stepRun.ActionType),
		stepRun.Order,
		string(stepRun.Status),
		outputJSON,
		stepRun.ErrorMessage,
		stepRun.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create step run: %w", err)
	}

	return nil
}

func (r *StepRunRepository) ListByRun(ctx context.Context, runID string) ([]*models.AutomationStepRun, error) {
	query := `
		SELECT id, run_id, action_id, action_type, step_order,
		       status, output, error_message, executed_at
		FROM automation_step_runs
		WHERE run_id = $1
		ORDER BY step_order, executed_at
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step runs: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	stepRuns := make([]*models.AutomationStepRun, 0)

	for rows.Next() {
		var (
			stepRun    models.AutomationStepRun
			actionType string
			status     string
			outputJSON []byte
		)

		err := rows.Scan(
			&stepRun.ID,
			&stepRun.RunID,
			&stepRun.ActionID,
			&actionType,
			&stepRun.Order,
			&status,
			&outputJSON,
			&stepRun.ErrorMessage,
			&stepRun.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step run: %w", err)
		}

		stepRun.ActionType = models.ActionType(actionType)
		stepRun.Status = models.ExecutionStatus(status)

		if len(outputJSON) > 0 {
			if err := json.Unmarshal(outputJSON, &stepRun.Output); err != nil {
				return nil, fmt.Errorf("failed to unmarshal step output: %w", err)
			}
		}

		stepRuns = append(stepRuns, &stepRun)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step runs: %w", err)
	}

	return stepRuns, nil
}
