package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/fieldtrack/internal/domain"
)

// entityRepository implements EntityRepository interface
type entityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(pool *pgxpool.Pool) EntityRepository {
	return &entityRepository{
		pool: pool,
	}
}

const entityColumns = `id, organization_id, entity_type, properties, version, created_at, updated_at`

// Create creates a new entity
func (r *entityRepository) Create(ctx context.Context, entity domain.Entity) (domain.Entity, error) {
	propertiesJSON, err := entity.GetPropertiesAsJSONB()
	if err != nil {
		return domain.Entity{}, fmt.Errorf("failed to marshal properties: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO entities (id, organization_id, entity_type, properties, version)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+entityColumns,
		entity.ID, entity.OrganizationID, entity.EntityType, propertiesJSON, entity.Version,
	)
	created, err := scanEntity(row)
	if err != nil {
		return domain.Entity{}, translateError(err, "create entity", domain.ErrOrganizationNotFound, nil)
	}
	return created, nil
}

// GetByID retrieves an entity by ID
func (r *entityRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Entity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = $1`, id)
	entity, err := scanEntity(row)
	if err != nil {
		return domain.Entity{}, translateError(err, "get entity", domain.ErrEntityNotFound, nil)
	}
	return entity, nil
}

// GetByIDs retrieves multiple entities by their IDs. Unknown ids are skipped.
func (r *entityRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Entity, error) {
	if len(ids) == 0 {
		return []domain.Entity{}, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get entities by IDs: %w", err)
	}
	defer rows.Close()

	entities := make([]domain.Entity, 0, len(ids))
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}
	return entities, nil
}

// ListByType pages through the entities of one kind, newest first.
func (r *entityRepository) ListByType(ctx context.Context, organizationID uuid.UUID, entityType string, limit int, offset int) ([]domain.Entity, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+entityColumns+`
		 FROM entities
		 WHERE organization_id = $1 AND entity_type = $2
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		organizationID, entityType, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}
	return entities, nil
}

// Update overwrites an entity's properties and bumps its version
func (r *entityRepository) Update(ctx context.Context, entity domain.Entity) (domain.Entity, error) {
	propertiesJSON, err := entity.GetPropertiesAsJSONB()
	if err != nil {
		return domain.Entity{}, fmt.Errorf("failed to marshal properties: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE entities
		 SET properties = $2, version = version + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING `+entityColumns,
		entity.ID, propertiesJSON,
	)
	updated, err := scanEntity(row)
	if err != nil {
		return domain.Entity{}, translateError(err, "update entity", domain.ErrEntityNotFound, nil)
	}
	return updated, nil
}

// Delete deletes an entity
func (r *entityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}

func scanEntity(row rowScanner) (domain.Entity, error) {
	var (
		entity         domain.Entity
		propertiesJSON []byte
	)
	if err := row.Scan(
		&entity.ID,
		&entity.OrganizationID,
		&entity.EntityType,
		&propertiesJSON,
		&entity.Version,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	); err != nil {
		return domain.Entity{}, err
	}

	properties, err := domain.FromJSONBProperties(propertiesJSON)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("failed to unmarshal properties for entity %s: %w", entity.ID, err)
	}
	entity.Properties = properties
	return entity, nil
}
