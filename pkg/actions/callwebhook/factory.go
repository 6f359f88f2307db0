package callwebhook

import (
	"net/http"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/protocol"
)

// Factory creates call_webhook handlers sharing one HTTP client.
type Factory struct {
	client *http.Client
}

// NewFactory creates a webhook factory. A nil client falls back to
// http.DefaultClient; per-request timeouts come from the action config.
func NewFactory(client *http.Client) *Factory {
	return &Factory{client: client}
}

func (f *Factory) Create(config map[string]any) (protocol.ActionHandler, error) {
	return NewAction(f.client, config)
}

func (f *Factory) ID() models.ActionType {
	return models.ActionTypeCallWebhook
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to call. Supports templating.",
				"minLength":   1,
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method.",
				"default":     "POST",
				"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Extra request headers.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"body": map[string]any{
				"type":        "string",
				"description": "JSON body template. Defaults to a serialization of the event and its primary entity.",
			},
			"timeout_seconds": map[string]any{
				"type":        "number",
				"description": "Per-attempt request timeout.",
				"minimum":     1,
			},
			"retry": map[string]any{
				"type":        "object",
				"description": "Retry policy for transport errors and 5xx responses.",
				"properties": map[string]any{
					"attempts": map[string]any{
						"type":    "number",
						"minimum": 1,
						"maximum": 10,
					},
					"delay_seconds": map[string]any{
						"type":    "number",
						"minimum": 0,
					},
				},
			},
		},
		"required": []string{"url"},
	}
}
