package repository

import (
	"context"

	"github.com/rpattn/fieldtrack/internal/domain"

	"github.com/google/uuid"
)

// OrganizationRepository defines the interface for organization operations
type OrganizationRepository interface {
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error)
	GetByName(ctx context.Context, name string) (domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
	Update(ctx context.Context, org domain.Organization) (domain.Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EntitySchemaRepository defines the interface for entity schema operations
type EntitySchemaRepository interface {
	Create(ctx context.Context, schema domain.EntitySchema) (domain.EntitySchema, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.EntitySchema, error)
	GetByName(ctx context.Context, organizationID uuid.UUID, name string) (domain.EntitySchema, error)
	List(ctx context.Context, organizationID uuid.UUID) ([]domain.EntitySchema, error)
	// Update also renames and prunes the tracking configurations that point at the schema.
	Update(ctx context.Context, schema domain.EntitySchema) (domain.EntitySchema, error)
	// Delete removes the schema; its tracking configurations go with it.
	Delete(ctx context.Context, id uuid.UUID) error
}

// EntityRepository defines the interface for entity operations
type EntityRepository interface {
	Create(ctx context.Context, entity domain.Entity) (domain.Entity, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Entity, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Entity, error)
	ListByType(ctx context.Context, organizationID uuid.UUID, entityType string, limit int, offset int) ([]domain.Entity, error)
	Update(ctx context.Context, entity domain.Entity) (domain.Entity, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TrackingConfigurationRepository stores field tracking configurations.
type TrackingConfigurationRepository interface {
	Create(ctx context.Context, cfg domain.TrackingConfiguration) (domain.TrackingConfiguration, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.TrackingConfiguration, error)
	List(ctx context.Context, organizationID uuid.UUID) ([]domain.TrackingConfiguration, error)
	Update(ctx context.Context, cfg domain.TrackingConfiguration) (domain.TrackingConfiguration, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// FindActive returns (nil, nil) when the kind has no active configuration.
	FindActive(ctx context.Context, organizationID uuid.UUID, entityType string) (*domain.TrackingConfiguration, error)
}

// AuditNoteRepository stores posted change notes.
type AuditNoteRepository interface {
	Create(ctx context.Context, note domain.AuditNote) (domain.AuditNote, error)
	List(ctx context.Context, query domain.AuditNoteQuery) ([]domain.AuditNote, error)
}
