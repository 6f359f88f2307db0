package conditions

import (
	"strings"

	"github.com/dealerdesk/automation/pkg/models"
)

// ResolvePath walks a dot-path ("deal.amount", "organisation.address.city")
// through nested maps. Missing intermediate segments resolve to (nil, false)
// rather than failing; conditions over absent data evaluate against nil.
func ResolvePath(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")

	var current any = data

	for _, segment := range segments {
		node, ok := asMap(current)
		if !ok {
			return nil, false
		}

		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case models.Record:
		return v, true
	default:
		return nil, false
	}
}
