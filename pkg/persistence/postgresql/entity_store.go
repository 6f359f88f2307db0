package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/google/uuid"
)

// EntityStore persists CRM entity records as JSONB documents keyed by
// (entity_type, id).
type EntityStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEntityStore creates a new entity store.
func NewEntityStore(db *sql.DB, logger *slog.Logger) *EntityStore {
	return &EntityStore{db: db, logger: logger}
}

func (s *EntityStore) Get(ctx context.Context, entityType models.EntityType, id string) (models.Record, error) {
	var dataJSON []byte

	query := `SELECT data FROM crm_entities WHERE entity_type = $1 AND id = $2`

	err := s.db.QueryRowContext(ctx, query, string(entityType), id).Scan(&dataJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("Get", entityType, id, persistence.ErrEntityNotFound)
		}

		return nil, persistence.NewEntityError("Get", entityType, id, err)
	}

	var record models.Record

	if err := json.Unmarshal(dataJSON, &record); err != nil {
		return nil, persistence.NewEntityError("Get", entityType, id, err)
	}

	return record, nil
}

func (s *EntityStore) Create(ctx context.Context, entityType models.EntityType, data models.Record) (models.Record, error) {
	record := data.Clone()

	id := record.ID()
	if id == "" {
		id = uuid.New().String()
		record["id"] = id
	}

	tenantID, _ := record["tenant_id"].(string)

	dataJSON, err := json.Marshal(record)
	if err != nil {
		return nil, persistence.NewEntityError("Create", entityType, id, err)
	}

	query := `
		INSERT INTO crm_entities (entity_type, id, tenant_id, data)
		VALUES ($1, $2, $3, $4)
	`

	_, err = s.db.ExecContext(ctx, query, string(entityType), id, tenantID, dataJSON)
	if err != nil {
		return nil, persistence.NewEntityError("Create", entityType, id, err)
	}

	return record, nil
}

// Update merges the patch into the stored document inside a transaction so
// concurrent patches to the same record do not lose fields.
func (s *EntityStore) Update(ctx context.Context, entityType models.EntityType, id string, patch models.Record) (models.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence.NewEntityError("Update", entityType, id, err)
	}

	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
		}
	}()

	var dataJSON []byte

	query := `SELECT data FROM crm_entities WHERE entity_type = $1 AND id = $2 FOR UPDATE`

	err = tx.QueryRowContext(ctx, query, string(entityType), id).Scan(&dataJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("Update", entityType, id, persistence.ErrEntityNotFound)
		}

		return nil, persistence.NewEntityError("Update", entityType, id, err)
	}

	var record models.Record

	if err := json.Unmarshal(dataJSON, &record); err != nil {
		return nil, persistence.NewEntityError("Update", entityType, id, err)
	}

	for key, value := range patch {
		if key == "id" {
			continue
		}

		record[key] = value
	}

	updatedJSON, err := json.Marshal(record)
	if err != nil {
		return nil, persistence.NewEntityError("Update", entityType, id, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE crm_entities SET data = $3, updated_at = NOW() WHERE entity_type = $1 AND id = $2`,
		string(entityType), id, updatedJSON)
	if err != nil {
		return nil, persistence.NewEntityError("Update", entityType, id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence.NewEntityError("Update", entityType, id, err)
	}

	return record, nil
}

var _ persistence.EntityStore = (*EntityStore)(nil)
