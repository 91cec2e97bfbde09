// Package catalog describes entity kinds to the tracking pipeline: which
// fields exist, their semantic kind and human label.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/fieldkind"
)

const (
	DefaultCacheSize = 512
	DefaultCacheTTL  = 5 * time.Minute
)

// SchemaSource loads the schema of one entity kind.
type SchemaSource interface {
	GetByName(ctx context.Context, organizationID uuid.UUID, name string) (domain.EntitySchema, error)
}

// FieldDescriptor is the catalog view of one schema field.
type FieldDescriptor struct {
	Name       string
	Label      string
	Kind       fieldkind.Kind
	Definition domain.FieldDefinition
}

// Trackable reports whether the field is persisted and its kind can be audited.
func (f FieldDescriptor) Trackable() bool {
	return f.Definition.Stored() && f.Kind.Trackable()
}

func describeField(def domain.FieldDefinition) FieldDescriptor {
	return FieldDescriptor{
		Name:       def.Name,
		Label:      def.DisplayLabel(),
		Kind:       fieldkind.For(def.Type),
		Definition: def,
	}
}

// Descriptor is the catalog view of one entity kind.
type Descriptor struct {
	OrganizationID uuid.UUID
	EntityType     string
	SchemaID       uuid.UUID
	activityFeed   bool
	fields         []FieldDescriptor
}

// Describe builds a descriptor straight from a schema.
func Describe(schema domain.EntitySchema) Descriptor {
	fields := make([]FieldDescriptor, 0, len(schema.Fields))
	for _, def := range schema.Fields {
		fields = append(fields, describeField(def))
	}
	return Descriptor{
		OrganizationID: schema.OrganizationID,
		EntityType:     schema.Name,
		SchemaID:       schema.ID,
		activityFeed:   schema.ActivityFeed,
		fields:         fields,
	}
}

// HasActivityFeed reports whether records of this kind accept notes.
func (d Descriptor) HasActivityFeed() bool {
	return d.activityFeed
}

func (d Descriptor) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(d.fields))
	copy(out, d.fields)
	return out
}

func (d Descriptor) Field(name string) (FieldDescriptor, bool) {
	for _, field := range d.fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDescriptor{}, false
}

// Watched resolves configured field names against the kind, in the order
// given. Unknown, computed and binary fields are dropped, as are repeats.
func (d Descriptor) Watched(names []string) []FieldDescriptor {
	seen := make(map[string]struct{}, len(names))
	out := make([]FieldDescriptor, 0, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		field, ok := d.Field(name)
		if !ok || !field.Trackable() {
			continue
		}
		out = append(out, field)
	}
	return out
}

type cacheKey struct {
	organizationID uuid.UUID
	entityType     string
}

// Catalog serves descriptors from a bounded, expiring cache in front of the
// schema store.
type Catalog struct {
	source SchemaSource
	cache  *expirable.LRU[cacheKey, Descriptor]
}

func New(source SchemaSource, size int, ttl time.Duration) *Catalog {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Catalog{
		source: source,
		cache:  expirable.NewLRU[cacheKey, Descriptor](size, nil, ttl),
	}
}

// Describe returns the descriptor of an entity kind.
func (c *Catalog) Describe(ctx context.Context, organizationID uuid.UUID, entityType string) (Descriptor, error) {
	key := cacheKey{organizationID: organizationID, entityType: entityType}
	if descriptor, ok := c.cache.Get(key); ok {
		return descriptor, nil
	}

	schema, err := c.source.GetByName(ctx, organizationID, entityType)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to describe entity type %s: %w", entityType, err)
	}

	descriptor := Describe(schema)
	c.cache.Add(key, descriptor)
	return descriptor, nil
}

// Invalidate forgets the cached descriptor of a kind after its schema changed.
func (c *Catalog) Invalidate(organizationID uuid.UUID, entityType string) {
	c.cache.Remove(cacheKey{organizationID: organizationID, entityType: entityType})
}
