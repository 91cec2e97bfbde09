package domain

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// FieldType represents the stored type of a field in an entity schema
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeText      FieldType = "text"
	FieldTypeInteger   FieldType = "integer"
	FieldTypeFloat     FieldType = "float"
	FieldTypeBoolean   FieldType = "boolean"
	FieldTypeDate      FieldType = "date"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeMonetary  FieldType = "monetary"
	FieldTypeSelection FieldType = "selection"
	FieldTypeJSON      FieldType = "json"
	FieldTypeBinary    FieldType = "binary"
	FieldTypeFileRef   FieldType = "file_reference"
	FieldTypeGeometry  FieldType = "geometry"
	// FieldTypeTimeseries payloads are bulky sample arrays and are treated as binary.
	FieldTypeTimeseries FieldType = "timeseries"
	// FieldTypeReference is a free-form reference code, not a link to another entity.
	FieldTypeReference            FieldType = "REFERENCE"
	FieldTypeEntityReference      FieldType = "ENTITY_REFERENCE"
	FieldTypeEntityReferenceArray FieldType = "ENTITY_REFERENCE_ARRAY"
)

// DefaultCurrencyField is the property consulted for the currency of monetary
// fields when a definition does not name one.
const DefaultCurrencyField = "currency"

// SelectionOption is one allowed value of a selection field.
type SelectionOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldDefinition represents a field definition in a schema
type FieldDefinition struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label,omitempty"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
	// Computed fields are derived on read and never persisted.
	Computed bool              `json:"computed,omitempty"`
	Options  []SelectionOption `json:"options,omitempty"`
	// CurrencyField names the entity property holding the ISO currency code
	// for monetary fields.
	CurrencyField       string `json:"currencyField,omitempty"`
	ReferenceEntityType string `json:"referenceEntityType,omitempty"`
}

// DisplayLabel returns the human label, deriving one from the name when unset.
func (f FieldDefinition) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return humanize(f.Name)
}

// Stored reports whether the field is persisted with the entity.
func (f FieldDefinition) Stored() bool {
	return !f.Computed
}

// IsBinary reports whether the field carries an opaque payload.
func (f FieldDefinition) IsBinary() bool {
	switch f.Type {
	case FieldTypeBinary, FieldTypeFileRef, FieldTypeTimeseries:
		return true
	default:
		return false
	}
}

// CurrencyProperty returns the property holding this field's currency code.
func (f FieldDefinition) CurrencyProperty() string {
	if f.CurrencyField != "" {
		return f.CurrencyField
	}
	return DefaultCurrencyField
}

// OptionLabel returns the label for a stored selection code.
func (f FieldDefinition) OptionLabel(value string) (string, bool) {
	for _, option := range f.Options {
		if option.Value == value {
			if option.Label == "" {
				return option.Value, true
			}
			return option.Label, true
		}
	}
	return "", false
}

// EntitySchema describes one entity kind of an organization.
type EntitySchema struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Fields         []FieldDefinition `json:"fields"`
	// ActivityFeed marks kinds whose records accept audit notes.
	ActivityFeed bool      `json:"activity_feed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewEntitySchema creates a new entity schema with immutable pattern
func NewEntitySchema(organizationID uuid.UUID, name, description string, fields []FieldDefinition) EntitySchema {
	now := time.Now()
	return EntitySchema{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Name:           name,
		Description:    description,
		Fields:         copyFields(fields),
		ActivityFeed:   true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Field looks up a field definition by name.
func (es EntitySchema) Field(name string) (FieldDefinition, bool) {
	for _, field := range es.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// WithField returns a new schema with an added/updated field
func (es EntitySchema) WithField(field FieldDefinition) EntitySchema {
	newFields := copyFields(es.Fields)

	found := false
	for i, existingField := range newFields {
		if existingField.Name == field.Name {
			newFields[i] = field
			found = true
			break
		}
	}
	if !found {
		newFields = append(newFields, field)
	}

	updated := es
	updated.Fields = newFields
	updated.UpdatedAt = time.Now()
	return updated
}

// WithoutField returns a new schema without the specified field
func (es EntitySchema) WithoutField(name string) EntitySchema {
	newFields := make([]FieldDefinition, 0, len(es.Fields))
	for _, field := range es.Fields {
		if field.Name != name {
			newFields = append(newFields, field)
		}
	}

	updated := es
	updated.Fields = newFields
	updated.UpdatedAt = time.Now()
	return updated
}

// WithActivityFeed returns a new schema with the notes capability toggled.
func (es EntitySchema) WithActivityFeed(enabled bool) EntitySchema {
	updated := es
	updated.Fields = copyFields(es.Fields)
	updated.ActivityFeed = enabled
	updated.UpdatedAt = time.Now()
	return updated
}

// GetFieldsAsJSONB returns the fields as JSONB for database storage
func (es EntitySchema) GetFieldsAsJSONB() (json.RawMessage, error) {
	return json.Marshal(es.Fields)
}

// FromJSONBFields decodes stored field definitions.
func FromJSONBFields(fieldsJSON json.RawMessage) ([]FieldDefinition, error) {
	var fields []FieldDefinition
	err := json.Unmarshal(fieldsJSON, &fields)
	return fields, err
}

// copyFields creates a deep copy of the fields slice to ensure immutability
func copyFields(fields []FieldDefinition) []FieldDefinition {
	if fields == nil {
		return nil
	}
	newFields := make([]FieldDefinition, len(fields))
	copy(newFields, fields)
	return newFields
}

// humanize turns "order_total" or "orderTotal" into "Order total".
func humanize(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || r == '-' || r == '.':
			b.WriteRune(' ')
		case i > 0 && unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if out == "" {
		return name
	}
	runes := []rune(out)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
