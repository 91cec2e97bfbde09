package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/fieldtrack/internal/domain"
)

// PropertyError describes one rejected property.
type PropertyError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PropertyErrors collects every problem found in one record.
type PropertyErrors []PropertyError

func (e PropertyErrors) Error() string {
	parts := make([]string, len(e))
	for i, pe := range e {
		parts[i] = pe.Message
	}
	return strings.Join(parts, "; ")
}

func (e PropertyErrors) Unwrap() error {
	return domain.ErrInvalidProperties
}

// ValidateProperties checks record values against the schema's field types.
// With partial set only the supplied keys are checked, so required fields may
// be absent. Null clears a value and is rejected only for required fields.
func ValidateProperties(schema domain.EntitySchema, properties map[string]any, partial bool) error {
	var errs PropertyErrors

	if !partial {
		for _, field := range schema.Fields {
			if !field.Required || !field.Stored() {
				continue
			}
			if value, ok := properties[field.Name]; !ok || value == nil {
				errs = append(errs, PropertyError{Field: field.Name, Message: fmt.Sprintf("required field '%s' is missing", field.Name)})
			}
		}
	}

	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := properties[name]
		field, ok := schema.Field(name)
		if !ok {
			errs = append(errs, PropertyError{Field: name, Message: fmt.Sprintf("property '%s' is not defined in schema %s", name, schema.Name)})
			continue
		}
		if field.Computed {
			errs = append(errs, PropertyError{Field: name, Message: fmt.Sprintf("field '%s' is computed and cannot be written", name)})
			continue
		}
		if value == nil {
			if partial && field.Required {
				errs = append(errs, PropertyError{Field: name, Message: fmt.Sprintf("required field '%s' cannot be cleared", name)})
			}
			continue
		}
		if err := checkType(field, value); err != nil {
			errs = append(errs, PropertyError{Field: name, Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkType(field domain.FieldDefinition, value any) error {
	name := field.Name
	switch field.Type {
	case domain.FieldTypeString, domain.FieldTypeText, domain.FieldTypeFileRef, domain.FieldTypeBinary:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' must be a string, got %T", name, value)
		}
	case domain.FieldTypeInteger:
		if !isInteger(value) {
			return fmt.Errorf("field '%s' must be an integer, got %T", name, value)
		}
	case domain.FieldTypeFloat, domain.FieldTypeMonetary:
		if !isNumber(value) {
			return fmt.Errorf("field '%s' must be a number, got %T", name, value)
		}
	case domain.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' must be a boolean, got %T", name, value)
		}
	case domain.FieldTypeDate:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field '%s' must be a date string, got %T", name, value)
		}
		if _, err := time.Parse(time.DateOnly, s); err != nil {
			if _, err := time.Parse(time.RFC3339, s); err != nil {
				return fmt.Errorf("field '%s' must be a date (YYYY-MM-DD): %v", name, err)
			}
		}
	case domain.FieldTypeTimestamp:
		switch v := value.(type) {
		case string:
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				return fmt.Errorf("field '%s' must be a valid timestamp (RFC3339): %v", name, err)
			}
		case time.Time:
		default:
			return fmt.Errorf("field '%s' must be a timestamp string, got %T", name, value)
		}
	case domain.FieldTypeSelection:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field '%s' must be a selection code, got %T", name, value)
		}
		if len(field.Options) > 0 {
			if _, ok := field.OptionLabel(s); !ok {
				return fmt.Errorf("field '%s' does not allow value '%s'", name, s)
			}
		}
	case domain.FieldTypeJSON:
		if _, err := json.Marshal(value); err != nil {
			return fmt.Errorf("field '%s' contains invalid JSON: %v", name, err)
		}
	case domain.FieldTypeGeometry:
		if _, ok := value.(string); ok {
			return nil
		}
		if m, ok := value.(map[string]any); ok {
			if _, hasType := m["type"]; hasType {
				return nil
			}
		}
		return fmt.Errorf("field '%s' must be a valid geometry, got %T", name, value)
	case domain.FieldTypeTimeseries:
		points, ok := value.([]any)
		if !ok {
			return fmt.Errorf("field '%s' must be a list of points, got %T", name, value)
		}
		for _, point := range points {
			m, ok := point.(map[string]any)
			if !ok {
				return fmt.Errorf("field '%s' points must be objects", name)
			}
			if _, ok := m["timestamp"]; !ok {
				return fmt.Errorf("field '%s' points need a timestamp", name)
			}
			if _, ok := m["value"]; !ok {
				return fmt.Errorf("field '%s' points need a value", name)
			}
		}
	case domain.FieldTypeReference, domain.FieldTypeEntityReference:
		return checkReference(name, value)
	case domain.FieldTypeEntityReferenceArray:
		items, ok := value.([]any)
		if !ok {
			if strs, isStrings := value.([]string); isStrings {
				for _, s := range strs {
					items = append(items, s)
				}
			} else {
				return fmt.Errorf("field '%s' must be an array of references, got %T", name, value)
			}
		}
		for _, item := range items {
			if err := checkReference(name, item); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown field type: %s", field.Type)
	}
	return nil
}

func checkReference(name string, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("field '%s' must be an entity ID string, got %T", name, value)
	}
	if _, err := uuid.Parse(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("field '%s' must be a valid UUID string: %v", name, err)
	}
	return nil
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == math.Trunc(v)
	case json.Number:
		_, err := v.Int64()
		return err == nil
	case string:
		_, err := strconv.ParseInt(v, 10, 64)
		return err == nil
	default:
		return false
	}
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	case string:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	default:
		return false
	}
}
