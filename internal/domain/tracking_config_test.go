package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewTrackingConfigurationDefaults(t *testing.T) {
	schema := NewEntitySchema(uuid.New(), "order", "", nil)
	cfg := NewTrackingConfiguration(schema.OrganizationID, schema, []string{"status", "amount"})

	if !cfg.Active || !cfg.ShowOldValues || !cfg.ShowNewValues || !cfg.GroupChangesPerRecord || !cfg.ExcludeNoOpChanges {
		t.Fatalf("unexpected default flags: %+v", cfg)
	}
	if cfg.TrackOnCreate {
		t.Fatalf("track on create must be opt-in")
	}
	if cfg.EntityType != "order" || cfg.SchemaID != schema.ID {
		t.Fatalf("configuration not bound to schema: %+v", cfg)
	}
}

func TestTrackingConfigurationWithEntityTypeClearsFields(t *testing.T) {
	orgID := uuid.New()
	order := NewEntitySchema(orgID, "order", "", nil)
	invoice := NewEntitySchema(orgID, "invoice", "", nil)

	cfg := NewTrackingConfiguration(orgID, order, []string{"status"})

	same := cfg.WithEntityType(order)
	if len(same.FieldNames) != 1 {
		t.Fatalf("rebinding to the same kind must keep fields, got %v", same.FieldNames)
	}

	moved := cfg.WithEntityType(invoice)
	if len(moved.FieldNames) != 0 {
		t.Fatalf("expected fields to be cleared when the kind changes, got %v", moved.FieldNames)
	}
	if moved.EntityType != "invoice" {
		t.Fatalf("expected entity type invoice, got %s", moved.EntityType)
	}
	if len(cfg.FieldNames) != 1 || cfg.FieldNames[0] != "status" {
		t.Fatalf("original configuration must be untouched")
	}
}
