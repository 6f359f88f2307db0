// Package template renders field-path references in action configurations
// against the event context, e.g. "{{.deal.amount}}" or
// "Follow up with {{.contact.name}}".
package template

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dealerdesk/automation/pkg/models"
)

// RenderString executes one template string against flattened context data.
// Unresolvable references are errors ("missingkey=error"): action handlers
// surface them as failed steps, never as silent empty strings.
func RenderString(input string, data map[string]any) (string, error) {
	if !NeedsTemplating(input) {
		return input, nil
	}

	tmpl, err := template.
		New("config").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).
		Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %w", input, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to resolve template %q: %w", input, err)
	}

	return buf.String(), nil
}

// RenderValue renders string leaves of a config value recursively. Maps and
// slices are rebuilt, other values pass through untouched.
func RenderValue(value any, data map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		rendered, err := RenderString(v, data)
		if err != nil {
			return nil, err
		}

		return parseRendered(rendered), nil
	case map[string]any:
		out := make(map[string]any, len(v))

		for key, item := range v {
			rendered, err := RenderValue(item, data)
			if err != nil {
				return nil, err
			}

			out[key] = rendered
		}

		return out, nil
	case []any:
		out := make([]any, len(v))

		for i, item := range v {
			rendered, err := RenderValue(item, data)
			if err != nil {
				return nil, err
			}

			out[i] = rendered
		}

		return out, nil
	default:
		return value, nil
	}
}

// RenderWithContext renders a config value against an event context.
func RenderWithContext(value any, ectx *models.EventContext) (any, error) {
	return RenderValue(value, ectx.Data())
}

// NeedsTemplating checks whether a string carries template markers.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// parseRendered turns rendered JSON payloads back into structured values so
// templated bodies like `{"amount": {{.deal.amount}}}` keep their types.
func parseRendered(rendered string) any {
	trimmed := strings.TrimSpace(rendered)

	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return parsed
		}
	}

	return rendered
}
