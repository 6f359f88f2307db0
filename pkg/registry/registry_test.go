package registry_test

import (
	"log/slog"
	"testing"

	"github.com/dealerdesk/automation/pkg/actions/callwebhook"
	"github.com/dealerdesk/automation/pkg/actions/createdeal"
	"github.com/dealerdesk/automation/pkg/actions/createtask"
	"github.com/dealerdesk/automation/pkg/actions/createticket"
	"github.com/dealerdesk/automation/pkg/actions/updaterecord"
	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence/memory"
	"github.com/dealerdesk/automation/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	store := memory.NewEntityStore()
	reg := registry.NewRegistry(slog.Default())
	reg.Register(updaterecord.NewFactory(store))
	reg.Register(createtask.NewFactory(store))
	reg.Register(createdeal.NewFactory(store))
	reg.Register(createticket.NewFactory(store))
	reg.Register(callwebhook.NewFactory(nil))

	return reg
}

func TestRegistry_CreateHandler(t *testing.T) {
	t.Parallel()

	reg := setupRegistry(t)

	handler, err := reg.CreateHandler(models.ActionTypeCreateTask, map[string]any{"title": "Call back"})
	require.NoError(t, err)
	assert.NotNil(t, handler)

	_, err = reg.CreateHandler("send_email", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_ValidateConfig(t *testing.T) {
	t.Parallel()

	reg := setupRegistry(t)

	tests := []struct {
		name       string
		actionType models.ActionType
		config     map[string]any
		valid      bool
	}{
		{
			name:       "valid update_record",
			actionType: models.ActionTypeUpdateRecord,
			config:     map[string]any{"fields": map[string]any{"status": "won"}},
			valid:      true,
		},
		{
			name:       "update_record without fields",
			actionType: models.ActionTypeUpdateRecord,
			config:     map[string]any{},
			valid:      false,
		},
		{
			name:       "create_task without title",
			actionType: models.ActionTypeCreateTask,
			config:     map[string]any{"description": "orphan"},
			valid:      false,
		},
		{
			name:       "valid call_webhook",
			actionType: models.ActionTypeCallWebhook,
			config:     map[string]any{"url": "https://example.com/hook"},
			valid:      true,
		},
		{
			name:       "create_deal missing stage",
			actionType: models.ActionTypeCreateDeal,
			config:     map[string]any{"pipeline_id": "pipe-1"},
			valid:      false,
		},
		{
			name:       "nil config checked against schema",
			actionType: models.ActionTypeCreateTicket,
			config:     nil,
			valid:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := setupRegistry(t).ValidateConfig(tt.actionType, tt.config)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	err := reg.ValidateConfig("send_email", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_HealthCheck(t *testing.T) {
	t.Parallel()

	message, ok := setupRegistry(t).HealthCheck()
	assert.True(t, ok)
	assert.Contains(t, message, "registered")

	empty := registry.NewRegistry(slog.Default())
	message, ok = empty.HealthCheck()
	assert.False(t, ok)
	assert.Contains(t, message, "Missing action handlers")
}

func TestRegistry_ActionTypes(t *testing.T) {
	t.Parallel()

	types := setupRegistry(t).ActionTypes()
	assert.Len(t, types, 5)
	assert.Contains(t, types, models.ActionTypeCallWebhook)
}
