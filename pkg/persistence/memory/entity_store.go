package memory

import (
	"context"
	"sync"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/google/uuid"
)

// EntityStore keeps CRM entity records in nested maps keyed by entity type
// and id.
type EntityStore struct {
	mu      sync.RWMutex
	records map[models.EntityType]map[string]models.Record
}

// NewEntityStore creates an empty entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{records: make(map[models.EntityType]map[string]models.Record)}
}

// Seed inserts a record with a fixed id, for tests and local fixtures.
func (s *EntityStore) Seed(entityType models.EntityType, id string, data models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := data.Clone()
	record["id"] = id

	if s.records[entityType] == nil {
		s.records[entityType] = make(map[string]models.Record)
	}

	s.records[entityType][id] = record
}

func (s *EntityStore) Get(_ context.Context, entityType models.EntityType, id string) (models.Record, error) {
	if !entityType.Valid() {
		return nil, persistence.NewEntityError("Get", entityType, id, persistence.ErrUnsupportedEntityType)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[entityType][id]
	if !ok {
		return nil, persistence.NewEntityError("Get", entityType, id, persistence.ErrEntityNotFound)
	}

	return record.Clone(), nil
}

func (s *EntityStore) Create(_ context.Context, entityType models.EntityType, data models.Record) (models.Record, error) {
	if !entityType.Valid() {
		return nil, persistence.NewEntityError("Create", entityType, "", persistence.ErrUnsupportedEntityType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := data.Clone()
	if record == nil {
		record = models.Record{}
	}

	if record.ID() == "" {
		record["id"] = uuid.New().String()
	}

	if s.records[entityType] == nil {
		s.records[entityType] = make(map[string]models.Record)
	}

	s.records[entityType][record.ID()] = record

	return record.Clone(), nil
}

func (s *EntityStore) Update(_ context.Context, entityType models.EntityType, id string, patch models.Record) (models.Record, error) {
	if !entityType.Valid() {
		return nil, persistence.NewEntityError("Update", entityType, id, persistence.ErrUnsupportedEntityType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[entityType][id]
	if !ok {
		return nil, persistence.NewEntityError("Update", entityType, id, persistence.ErrEntityNotFound)
	}

	updated := record.Clone()
	for key, value := range patch {
		if key == "id" {
			continue
		}

		updated[key] = value
	}

	s.records[entityType][id] = updated

	return updated.Clone(), nil
}
