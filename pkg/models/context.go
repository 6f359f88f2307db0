package models

// EventContext is the hydrated, read-only view built once per event: the
// primary entity's current data plus the fixed set of related entities common
// condition paths and action templates reach for.
//
// The context is shared by reference across every workflow evaluation and
// action execution for the event. Nothing may mutate it in place; entity
// updates go through the repository write path.
type EventContext struct {
	Event    AutomationEvent
	Entities map[EntityType]Record
}

// Primary returns the record of the entity the event refers to.
func (c *EventContext) Primary() Record {
	return c.Entities[c.Event.EntityType]
}

// Entity returns a loaded record by entity type, or nil when the relation
// was absent or failed to resolve.
func (c *EventContext) Entity(entityType EntityType) Record {
	return c.Entities[entityType]
}

// Data flattens the context into the map condition paths and templates
// resolve against: one key per loaded entity type plus an "event" key
// carrying the raw event fields.
func (c *EventContext) Data() map[string]any {
	data := make(map[string]any, len(c.Entities)+1)

	for entityType, record := range c.Entities {
		if record == nil {
			continue
		}

		data[string(entityType)] = map[string]any(record)
	}

	data["event"] = map[string]any{
		"id":              c.Event.ID,
		"entity_type":     string(c.Event.EntityType),
		"entity_id":       c.Event.EntityID,
		"event_type":      string(c.Event.EventType),
		"changed_fields":  c.Event.ChangedFields,
		"previous_values": c.Event.PreviousValues,
		"tenant_id":       c.Event.TenantID,
		"actor_user_id":   c.Event.ActorUserID,
		"origin":          string(c.Event.Origin),
	}

	return data
}
