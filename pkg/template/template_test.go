package template_test

import (
	"testing"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextData() map[string]any {
	return map[string]any{
		"deal": map[string]any{
			"id":     "deal-1",
			"name":   "Acme renewal",
			"amount": 50000.0,
		},
		"contact": map[string]any{
			"name":  "Jari Nieminen",
			"email": "jari@example.com",
		},
	}
}

func TestRenderString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain string passes through", "no templates here", "no templates here"},
		{"single reference", "{{.deal.name}}", "Acme renewal"},
		{"embedded reference", "Follow up with {{.contact.name}}", "Follow up with Jari Nieminen"},
		{"multiple references", "{{.deal.name}} <{{.contact.email}}>", "Acme renewal <jari@example.com>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := template.RenderString(tt.input, contextData())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRenderString_UnresolvableReference(t *testing.T) {
	t.Parallel()

	_, err := template.RenderString("{{.deal.nonexistent.field}}", contextData())
	require.Error(t, err)
}

func TestRenderString_MalformedTemplate(t *testing.T) {
	t.Parallel()

	_, err := template.RenderString("{{.deal.name", contextData())
	require.Error(t, err)
}

func TestRenderValue_Recursive(t *testing.T) {
	t.Parallel()

	config := map[string]any{
		"title": "Call about {{.deal.name}}",
		"meta": map[string]any{
			"contact": "{{.contact.email}}",
		},
		"tags":     []any{"{{.deal.id}}", "static"},
		"priority": 2,
	}

	rendered, err := template.RenderValue(config, contextData())
	require.NoError(t, err)

	result, ok := rendered.(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "Call about Acme renewal", result["title"])
	assert.Equal(t, map[string]any{"contact": "jari@example.com"}, result["meta"])
	assert.Equal(t, []any{"deal-1", "static"}, result["tags"])
	assert.Equal(t, 2, result["priority"])
}

func TestRenderValue_JSONPayloadKeepsTypes(t *testing.T) {
	t.Parallel()

	rendered, err := template.RenderValue(`{"amount": {{.deal.amount}}}`, contextData())
	require.NoError(t, err)

	result, ok := rendered.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 50000.0, result["amount"])
}

func TestRenderWithContext(t *testing.T) {
	t.Parallel()

	ectx := &models.EventContext{
		Event: models.AutomationEvent{
			ID:         "evt-1",
			EntityType: models.EntityTypeDeal,
			EntityID:   "deal-1",
			EventType:  models.EventTypeUpdated,
		},
		Entities: map[models.EntityType]models.Record{
			models.EntityTypeDeal: {"id": "deal-1", "name": "Acme renewal"},
		},
	}

	rendered, err := template.RenderWithContext("{{.deal.name}} ({{.event.event_type}})", ectx)
	require.NoError(t, err)
	assert.Equal(t, "Acme renewal (updated)", rendered)
}
