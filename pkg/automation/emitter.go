package automation

import (
	"context"

	"github.com/dealerdesk/automation/pkg/models"
)

// Emitter publishes follow-up events for entities the engine itself wrote.
// The executor stamps them EventOriginAutomation before emitting so outside
// consumers still see them while the engine's own skip gate filters them.
type Emitter interface {
	Emit(ctx context.Context, event *models.AutomationEvent) error
}
