// Package models defines the core domain models for CRM automation workflows.
package models

// EntityType identifies a CRM entity kind the engine can read or write.
type EntityType string

const (
	EntityTypeDeal         EntityType = "deal"
	EntityTypeContact      EntityType = "contact"
	EntityTypeOrganisation EntityType = "organisation"
	EntityTypeLead         EntityType = "lead"
	EntityTypeTask         EntityType = "task"
	EntityTypeTicket       EntityType = "ticket"
	EntityTypeCall         EntityType = "call"
	EntityTypePipeline     EntityType = "pipeline"
	EntityTypeStage        EntityType = "stage"
)

var entityTypes = map[EntityType]struct{}{
	EntityTypeDeal:         {},
	EntityTypeContact:      {},
	EntityTypeOrganisation: {},
	EntityTypeLead:         {},
	EntityTypeTask:         {},
	EntityTypeTicket:       {},
	EntityTypeCall:         {},
	EntityTypePipeline:     {},
	EntityTypeStage:        {},
}

// Valid reports whether the entity type is part of the closed enum.
func (e EntityType) Valid() bool {
	_, ok := entityTypes[e]

	return ok
}

// Record is a generic key-value view of a CRM entity. The engine never
// depends on concrete entity structs; condition paths and action templates
// resolve against this representation.
type Record map[string]any

// ID returns the record's identifier, or an empty string when absent.
func (r Record) ID() string {
	id, _ := r["id"].(string)

	return id
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}

	clone := make(Record, len(r))
	for k, v := range r {
		clone[k] = v
	}

	return clone
}
