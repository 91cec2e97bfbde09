package domain

import (
	"time"

	"github.com/google/uuid"
)

// TrackingConfiguration declares which fields of one entity kind are audited
// for a tenant, and how the resulting notes are rendered.
type TrackingConfiguration struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	SchemaID       uuid.UUID `json:"schema_id"`
	EntityType     string    `json:"entity_type"`
	// FieldNames is kept in declaration order; audit lines follow it.
	FieldNames            []string  `json:"field_names"`
	ShowOldValues         bool      `json:"show_old_values"`
	ShowNewValues         bool      `json:"show_new_values"`
	GroupChangesPerRecord bool      `json:"group_changes_per_record"`
	ExcludeNoOpChanges    bool      `json:"exclude_no_op_changes"`
	TrackOnCreate         bool      `json:"track_on_create"`
	Active                bool      `json:"active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// NewTrackingConfiguration creates an active configuration with default flags.
func NewTrackingConfiguration(organizationID uuid.UUID, schema EntitySchema, fieldNames []string) TrackingConfiguration {
	now := time.Now()
	return TrackingConfiguration{
		ID:                    uuid.New(),
		OrganizationID:        organizationID,
		SchemaID:              schema.ID,
		EntityType:            schema.Name,
		FieldNames:            copyNames(fieldNames),
		ShowOldValues:         true,
		ShowNewValues:         true,
		GroupChangesPerRecord: true,
		ExcludeNoOpChanges:    true,
		TrackOnCreate:         false,
		Active:                true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// WithEntityType returns a copy pointing at another kind. Watched fields are
// cleared because they belong to the previous kind.
func (c TrackingConfiguration) WithEntityType(schema EntitySchema) TrackingConfiguration {
	updated := c
	if schema.ID != c.SchemaID {
		updated.FieldNames = nil
	} else {
		updated.FieldNames = copyNames(c.FieldNames)
	}
	updated.SchemaID = schema.ID
	updated.EntityType = schema.Name
	updated.UpdatedAt = time.Now()
	return updated
}

// WithFieldNames returns a copy watching the given fields.
func (c TrackingConfiguration) WithFieldNames(names []string) TrackingConfiguration {
	updated := c
	updated.FieldNames = copyNames(names)
	updated.UpdatedAt = time.Now()
	return updated
}

// RendersValues reports whether at least one side of a change is shown.
func (c TrackingConfiguration) RendersValues() bool {
	return c.ShowOldValues || c.ShowNewValues
}

func copyNames(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}
