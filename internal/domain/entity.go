package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entity represents a dynamic entity instance of some entity kind.
type Entity struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	EntityType     string         `json:"entity_type"`
	Properties     map[string]any `json:"properties"`
	Version        int64          `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// displayNameCandidates are probed in order when rendering an entity for humans.
var displayNameCandidates = []string{"display_name", "displayName", "name", "title"}

// NewEntity creates a new entity with immutable pattern
func NewEntity(organizationID uuid.UUID, entityType string, properties map[string]any) Entity {
	now := time.Now()
	return Entity{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		EntityType:     entityType,
		Properties:     copyProperties(properties),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// WithProperty returns a new entity with an added/updated property
func (e Entity) WithProperty(key string, value any) Entity {
	newProperties := copyProperties(e.Properties)
	newProperties[key] = value
	return e.withProperties(newProperties)
}

// WithoutProperty returns a new entity without the specified property
func (e Entity) WithoutProperty(key string) Entity {
	newProperties := copyProperties(e.Properties)
	delete(newProperties, key)
	return e.withProperties(newProperties)
}

// WithProperties returns a new entity whose properties are replaced wholesale.
func (e Entity) WithProperties(properties map[string]any) Entity {
	return e.withProperties(copyProperties(properties))
}

// MergeProperties returns a new entity where values overwrite the matching
// properties and every other property is kept as-is.
func (e Entity) MergeProperties(values map[string]any) Entity {
	merged := copyProperties(e.Properties)
	for key, value := range values {
		merged[key] = value
	}
	return e.withProperties(merged)
}

func (e Entity) withProperties(properties map[string]any) Entity {
	return Entity{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		EntityType:     e.EntityType,
		Properties:     properties,
		Version:        e.Version,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      time.Now(),
	}
}

// Property returns a property value and whether the key is present.
func (e Entity) Property(key string) (any, bool) {
	if e.Properties == nil {
		return nil, false
	}
	value, ok := e.Properties[key]
	return value, ok
}

// DisplayName renders the entity for audit notes and reference labels.
func (e Entity) DisplayName() string {
	for _, key := range displayNameCandidates {
		value, ok := e.Property(key)
		if !ok || value == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(value)); s != "" {
			return s
		}
	}
	return e.ID.String()
}

func (e *Entity) GetPropertiesAsJSONB() (json.RawMessage, error) {
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	return json.Marshal(e.Properties)
}

// FromJSONBProperties creates properties map from JSONB data
func FromJSONBProperties(propertiesJSON json.RawMessage) (map[string]any, error) {
	properties := map[string]any{}
	if len(propertiesJSON) == 0 {
		return properties, nil
	}
	err := json.Unmarshal(propertiesJSON, &properties)
	return properties, err
}

// copyProperties creates a shallow copy of the properties map
func copyProperties(properties map[string]any) map[string]any {
	newProperties := make(map[string]any, len(properties))
	for k, v := range properties {
		newProperties[k] = v
	}
	return newProperties
}
