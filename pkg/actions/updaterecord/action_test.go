package updaterecord_test

import (
	"context"
	"testing"

	"github.com/dealerdesk/automation/pkg/actions/updaterecord"
	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence/memory"
	"github.com/dealerdesk/automation/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dealContext() *models.EventContext {
	return &models.EventContext{
		Event: models.AutomationEvent{
			ID:         "evt-1",
			EntityType: models.EntityTypeDeal,
			EntityID:   "deal-1",
			EventType:  models.EventTypeUpdated,
		},
		Entities: map[models.EntityType]models.Record{
			models.EntityTypeDeal:         {"id": "deal-1", "name": "Acme renewal", "status": "open", "owner_id": "user-7"},
			models.EntityTypeOrganisation: {"id": "org-1", "name": "Acme GmbH", "segment": ""},
		},
	}
}

func TestNewAction_Validation(t *testing.T) {
	t.Parallel()

	store := memory.NewEntityStore()

	tests := []struct {
		name   string
		config map[string]any
	}{
		{"missing fields", map[string]any{}},
		{"empty fields", map[string]any{"fields": map[string]any{}}},
		{"unknown target type", map[string]any{
			"target_type": "invoice",
			"fields":      map[string]any{"status": "open"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := updaterecord.NewAction(store, tt.config)
			require.Error(t, err)
			assert.ErrorIs(t, err, protocol.ErrInvalidConfig)
		})
	}
}

func TestAction_UpdatesPrimaryEntity(t *testing.T) {
	t.Parallel()

	store := memory.NewEntityStore()
	store.Seed(models.EntityTypeDeal, "deal-1", models.Record{"name": "Acme renewal", "status": "open"})

	action, err := updaterecord.NewAction(store, map[string]any{
		"fields": map[string]any{"status": "qualified", "probability": 0.8},
	})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), dealContext())
	require.NoError(t, err)

	assert.Equal(t, "deal", output["entity_type"])
	assert.Equal(t, "deal-1", output["entity_id"])

	deal, err := store.Get(context.Background(), models.EntityTypeDeal, "deal-1")
	require.NoError(t, err)
	assert.Equal(t, "qualified", deal["status"])
	assert.Equal(t, 0.8, deal["probability"])
	assert.Equal(t, "Acme renewal", deal["name"], "untouched fields survive the patch")
}

func TestAction_UpdatesRelatedEntity(t *testing.T) {
	t.Parallel()

	store := memory.NewEntityStore()
	store.Seed(models.EntityTypeOrganisation, "org-1", models.Record{"name": "Acme GmbH", "segment": ""})

	action, err := updaterecord.NewAction(store, map[string]any{
		"target_type": "organisation",
		"fields":      map[string]any{"segment": "enterprise"},
	})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), dealContext())
	require.NoError(t, err)
	assert.Equal(t, "org-1", output["entity_id"])

	org, err := store.Get(context.Background(), models.EntityTypeOrganisation, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "enterprise", org["segment"])
}

func TestAction_TemplatedFieldValues(t *testing.T) {
	t.Parallel()

	store := memory.NewEntityStore()
	store.Seed(models.EntityTypeDeal, "deal-1", models.Record{"name": "Acme renewal"})

	action, err := updaterecord.NewAction(store, map[string]any{
		"fields": map[string]any{"summary": "{{.deal.name}} owned by {{.deal.owner_id}}"},
	})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), dealContext())
	require.NoError(t, err)

	updatedFields, ok := output["updated_fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Acme renewal owned by user-7", updatedFields["summary"])
}

func TestAction_UnresolvableTemplateFails(t *testing.T) {
	t.Parallel()

	store := memory.NewEntityStore()
	store.Seed(models.EntityTypeDeal, "deal-1", models.Record{"name": "Acme renewal"})

	action, err := updaterecord.NewAction(store, map[string]any{
		"fields": map[string]any{"summary": "{{.contact.name.oops}}"},
	})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), dealContext())
	require.Error(t, err)
}

func TestAction_TargetNotInContext(t *testing.T) {
	t.Parallel()

	action, err := updaterecord.NewAction(memory.NewEntityStore(), map[string]any{
		"target_type": "contact",
		"fields":      map[string]any{"status": "active"},
	})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), dealContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrInvalidConfig)
}
