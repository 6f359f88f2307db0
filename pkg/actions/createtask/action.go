// Package createtask creates a follow-up task linked back to the entity
// that triggered the workflow.
package createtask

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/protocol"
	"github.com/dealerdesk/automation/pkg/template"
)

type Action struct {
	store       persistence.EntityStore
	title       string
	description string
	assigneeID  string
	dueInDays   int
}

func NewAction(store persistence.EntityStore, config map[string]any) (*Action, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, protocol.NewConfigError("title", "a task title is required")
	}

	action := &Action{
		store: store,
		title: title,
	}

	action.description, _ = config["description"].(string)
	action.assigneeID, _ = config["assignee_id"].(string)

	if dueInDays, ok := config["due_in_days"].(float64); ok {
		action.dueInDays = int(dueInDays)
	}

	return action, nil
}

func (a *Action) Execute(ctx context.Context, ectx *models.EventContext) (map[string]any, error) {
	data := ectx.Data()

	title, err := template.RenderString(a.title, data)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve task title: %w", err)
	}

	description, err := template.RenderString(a.description, data)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve task description: %w", err)
	}

	assigneeID, err := template.RenderString(a.assigneeID, data)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve task assignee: %w", err)
	}

	task := models.Record{
		"title":               title,
		"description":         description,
		"status":              "open",
		"tenant_id":           ectx.Event.TenantID,
		"related_entity_type": string(ectx.Event.EntityType),
		"related_entity_id":   ectx.Event.EntityID,
	}

	if assigneeID != "" {
		task["assignee_id"] = assigneeID
	}

	if a.dueInDays > 0 {
		task["due_date"] = time.Now().UTC().AddDate(0, 0, a.dueInDays).Format(time.RFC3339)
	}

	created, err := a.store.Create(ctx, models.EntityTypeTask, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return map[string]any{
		"entity_type": string(models.EntityTypeTask),
		"entity_id":   created.ID(),
		"title":       title,
	}, nil
}
