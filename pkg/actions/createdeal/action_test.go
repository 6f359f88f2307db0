package createdeal_test

import (
	"context"
	"testing"

	"github.com/dealerdesk/automation/pkg/actions/createdeal"
	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence/memory"
	"github.com/dealerdesk/automation/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leadContext() *models.EventContext {
	return &models.EventContext{
		Event: models.AutomationEvent{
			ID:         "evt-1",
			EntityType: models.EntityTypeLead,
			EntityID:   "lead-1",
			EventType:  models.EventTypeLeadConverted,
			TenantID:   "tenant-1",
		},
		Entities: map[models.EntityType]models.Record{
			models.EntityTypeLead: {
				"id":              "lead-1",
				"name":            "Acme expansion",
				"amount":          25000.0,
				"organisation_id": "org-1",
				"secret_notes":    "do not copy",
			},
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
		{"missing pipeline", map[string]any{"stage_id": "stage-1"}},
		{"missing stage", map[string]any{"pipeline_id": "pipe-1"}},
		{"non-string copy field", map[string]any{
			"pipeline_id": "pipe-1",
			"stage_id":    "stage-1",
			"copy_fields": []any{"amount", 42},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := createdeal.NewAction(store, tt.config)
			require.Error(t, err)
			assert.ErrorIs(t, err, protocol.ErrInvalidConfig)
		})
	}
}

func TestAction_CreatesDealInConfiguredStage(t *testing.T) {
	t.Parallel()

	store := memory.NewEntityStore()

	action, err := createdeal.NewAction(store, map[string]any{
		"pipeline_id": "pipe-sales",
		"stage_id":    "stage-new",
		"name":        "{{.lead.name}} (converted)",
		"copy_fields": []any{"amount", "organisation_id", "nonexistent"},
	})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), leadContext())
	require.NoError(t, err)

	assert.Equal(t, "deal", output["entity_type"])
	assert.Equal(t, "pipe-sales", output["pipeline_id"])
	assert.Equal(t, "stage-new", output["stage_id"])

	deal, err := store.Get(context.Background(), models.EntityTypeDeal, output["entity_id"].(string))
	require.NoError(t, err)

	assert.Equal(t, "Acme expansion (converted)", deal["name"])
	assert.Equal(t, 25000.0, deal["amount"])
	assert.Equal(t, "org-1", deal["organisation_id"])
	assert.Equal(t, "lead", deal["source_type"])
	assert.Equal(t, "lead-1", deal["source_id"])
	assert.Equal(t, "tenant-1", deal["tenant_id"])

	_, copied := deal["secret_notes"]
	assert.False(t, copied, "only listed fields are copied")

	_, missing := deal["nonexistent"]
	assert.False(t, missing, "absent source fields are skipped")
}
