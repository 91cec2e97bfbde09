package validator

import (
	"fmt"
	"strings"

	"github.com/rpattn/fieldtrack/internal/domain"
)

var referenceCapableTypes = map[domain.FieldType]struct{}{
	domain.FieldTypeReference:            {},
	domain.FieldTypeEntityReference:      {},
	domain.FieldTypeEntityReferenceArray: {},
}

// ValidateFields ensures schema field definitions are well formed: names are
// present and unique, only reference types declare a referenceEntityType, and
// selection options carry distinct codes.
func ValidateFields(fields []domain.FieldDefinition) error {
	seen := make(map[string]struct{}, len(fields))

	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return fmt.Errorf("field name must not be empty")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("field %s is declared more than once", name)
		}
		seen[name] = struct{}{}

		trimmedRefType := strings.TrimSpace(field.ReferenceEntityType)
		if _, ok := referenceCapableTypes[field.Type]; trimmedRefType != "" && !ok {
			return fmt.Errorf("field %s cannot declare referenceEntityType because type %s does not support references", field.Name, field.Type)
		}

		if field.Type == domain.FieldTypeSelection {
			codes := make(map[string]struct{}, len(field.Options))
			for _, option := range field.Options {
				if option.Value == "" {
					return fmt.Errorf("field %s has a selection option without a value", field.Name)
				}
				if _, dup := codes[option.Value]; dup {
					return fmt.Errorf("field %s repeats selection option %s", field.Name, option.Value)
				}
				codes[option.Value] = struct{}{}
			}
		}
	}

	return nil
}

// ValidateTrackedFields checks that every watched name is a stored, non-binary
// field of schema. Failures wrap domain.ErrInvalidTrackedField.
func ValidateTrackedFields(schema domain.EntitySchema, names []string) error {
	for _, name := range names {
		field, ok := schema.Field(name)
		switch {
		case !ok:
			return fmt.Errorf("%w: %s is not a field of %s", domain.ErrInvalidTrackedField, name, schema.Name)
		case !field.Stored():
			return fmt.Errorf("%w: %s is computed and never stored", domain.ErrInvalidTrackedField, name)
		case field.IsBinary():
			return fmt.Errorf("%w: %s holds binary content", domain.ErrInvalidTrackedField, name)
		}
	}
	return nil
}
