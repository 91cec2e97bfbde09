package tracking

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/fieldtrack/internal/catalog"
	"github.com/rpattn/fieldtrack/internal/domain"
)

// Instant marks when a snapshot was taken relative to the write.
type Instant int

const (
	Before Instant = iota
	After
)

func (i Instant) String() string {
	if i == Before {
		return "before"
	}
	return "after"
}

// Snapshot holds the normalized watched values of one entity at one instant.
type Snapshot struct {
	EntityID uuid.UUID
	Instant  Instant

	values     map[string]any
	currencies map[string]string
}

// Value returns the normalized value of a field and whether it was captured.
func (s Snapshot) Value(field string) (any, bool) {
	value, ok := s.values[field]
	return value, ok
}

// Currency returns the ISO code in effect for a currency field, if any.
func (s Snapshot) Currency(field string) string {
	return s.currencies[field]
}

// Len is the number of captured fields.
func (s Snapshot) Len() int {
	return len(s.values)
}

// Capture snapshots every entity independently. Watched fields the entity has
// no value for are captured as unset.
func Capture(entities []domain.Entity, fields []catalog.FieldDescriptor, instant Instant) map[uuid.UUID]Snapshot {
	out := make(map[uuid.UUID]Snapshot, len(entities))
	for _, entity := range entities {
		out[entity.ID] = capture(entity.ID, entity.Properties, entity.Properties, fields, instant, false)
	}
	return out
}

// CaptureSupplied snapshots only the watched fields present in supplied, as
// used for creations where nothing existed before. Currency codes are read
// from the stored entity.
func CaptureSupplied(entity domain.Entity, supplied map[string]any, fields []catalog.FieldDescriptor) Snapshot {
	return capture(entity.ID, supplied, entity.Properties, fields, After, true)
}

func capture(entityID uuid.UUID, values, stored map[string]any, fields []catalog.FieldDescriptor, instant Instant, onlyPresent bool) Snapshot {
	snapshot := Snapshot{
		EntityID:   entityID,
		Instant:    instant,
		values:     make(map[string]any, len(fields)),
		currencies: make(map[string]string),
	}

	for _, field := range fields {
		if !field.Trackable() {
			continue
		}
		raw, present := values[field.Name]
		if !present && onlyPresent {
			continue
		}
		snapshot.values[field.Name] = field.Kind.Normalize(raw)

		if field.Definition.Type == domain.FieldTypeMonetary {
			if code, ok := stored[field.Definition.CurrencyProperty()]; ok && code != nil {
				snapshot.currencies[field.Name] = strings.ToUpper(strings.TrimSpace(fmt.Sprint(code)))
			}
		}
	}
	return snapshot
}
