package automation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
)

// relation names a foreign-key field on the primary record and the entity
// type it points at.
type relation struct {
	field      string
	entityType models.EntityType
}

// contextRelations fixes, per entity type, which related records are
// eagerly hydrated into the context. This is the set common condition paths
// and action templates reach for; full activity history is deliberately not
// loaded.
var contextRelations = map[models.EntityType][]relation{
	models.EntityTypeDeal: {
		{field: "organisation_id", entityType: models.EntityTypeOrganisation},
		{field: "contact_id", entityType: models.EntityTypeContact},
		{field: "pipeline_id", entityType: models.EntityTypePipeline},
		{field: "stage_id", entityType: models.EntityTypeStage},
	},
	models.EntityTypeContact: {
		{field: "organisation_id", entityType: models.EntityTypeOrganisation},
	},
	models.EntityTypeLead: {
		{field: "organisation_id", entityType: models.EntityTypeOrganisation},
		{field: "contact_id", entityType: models.EntityTypeContact},
	},
	models.EntityTypeTicket: {
		{field: "organisation_id", entityType: models.EntityTypeOrganisation},
		{field: "contact_id", entityType: models.EntityTypeContact},
		{field: "deal_id", entityType: models.EntityTypeDeal},
	},
	models.EntityTypeCall: {
		{field: "contact_id", entityType: models.EntityTypeContact},
		{field: "organisation_id", entityType: models.EntityTypeOrganisation},
		{field: "deal_id", entityType: models.EntityTypeDeal},
	},
}

// ContextBuilder hydrates the read-only EventContext an event's evaluation
// and actions operate against.
type ContextBuilder struct {
	store  persistence.EntityStore
	logger *slog.Logger
}

func NewContextBuilder(store persistence.EntityStore, logger *slog.Logger) *ContextBuilder {
	return &ContextBuilder{
		store:  store,
		logger: logger.With("module", "context_builder"),
	}
}

// Build loads the primary entity and its fixed set of related records.
//
// A missing primary entity is fatal for the whole event (the caller creates
// no runs); a failed related-record load degrades to an absent entry, and
// conditions referencing it evaluate as empty.
func (b *ContextBuilder) Build(ctx context.Context, event *models.AutomationEvent) (*models.EventContext, error) {
	primary, err := b.store.Get(ctx, event.EntityType, event.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", event.EntityType, event.EntityID, err)
	}

	entities := map[models.EntityType]models.Record{
		event.EntityType: primary,
	}

	for _, rel := range contextRelations[event.EntityType] {
		relatedID, _ := primary[rel.field].(string)
		if relatedID == "" {
			continue
		}

		related, err := b.store.Get(ctx, rel.entityType, relatedID)
		if err != nil {
			// Stale link: resolve to absent, never abort the build.
			b.logger.WarnContext(ctx, "Failed to load related entity",
				"entity_type", rel.entityType,
				"entity_id", relatedID,
				"via_field", rel.field,
				"error", err)

			continue
		}

		entities[rel.entityType] = related
	}

	return &models.EventContext{Event: *event, Entities: entities}, nil
}
