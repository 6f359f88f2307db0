// Package createticket creates a support ticket linked to the organisation,
// contact and deal reachable from the event context.
package createticket

import (
	"context"
	"fmt"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/protocol"
	"github.com/dealerdesk/automation/pkg/template"
)

type Action struct {
	store       persistence.EntityStore
	subject     string
	description string
	assigneeID  string
	priority    string
}

func NewAction(store persistence.EntityStore, config map[string]any) (*Action, error) {
	subject, _ := config["subject"].(string)
	if subject == "" {
		return nil, protocol.NewConfigError("subject", "a ticket subject is required")
	}

	action := &Action{
		store:   store,
		subject: subject,
	}

	action.description, _ = config["description"].(string)
	action.assigneeID, _ = config["assignee_id"].(string)
	action.priority, _ = config["priority"].(string)

	return action, nil
}

func (a *Action) Execute(ctx context.Context, ectx *models.EventContext) (map[string]any, error) {
	data := ectx.Data()

	subject, err := template.RenderString(a.subject, data)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ticket subject: %w", err)
	}

	description, err := template.RenderString(a.description, data)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ticket description: %w", err)
	}

	assigneeID, err := template.RenderString(a.assigneeID, data)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ticket assignee: %w", err)
	}

	ticket := models.Record{
		"subject":             subject,
		"description":         description,
		"status":              "open",
		"tenant_id":           ectx.Event.TenantID,
		"related_entity_type": string(ectx.Event.EntityType),
		"related_entity_id":   ectx.Event.EntityID,
	}

	if a.priority != "" {
		ticket["priority"] = a.priority
	}

	if assigneeID != "" {
		ticket["assignee_id"] = assigneeID
	}

	// Link whatever related records the context resolved.
	if organisation := ectx.Entity(models.EntityTypeOrganisation); organisation != nil {
		ticket["organisation_id"] = organisation.ID()
	}

	if contact := ectx.Entity(models.EntityTypeContact); contact != nil {
		ticket["contact_id"] = contact.ID()
	}

	if deal := ectx.Entity(models.EntityTypeDeal); deal != nil {
		ticket["deal_id"] = deal.ID()
	}

	created, err := a.store.Create(ctx, models.EntityTypeTicket, ticket)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	return map[string]any{
		"entity_type": string(models.EntityTypeTicket),
		"entity_id":   created.ID(),
		"subject":     subject,
	}, nil
}
