package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rpattn/fieldtrack/internal/db"
	"github.com/rpattn/fieldtrack/internal/domain"
)

// entitySchemaRepository implements EntitySchemaRepository interface
type entitySchemaRepository struct {
	conn *db.Connection
}

// NewEntitySchemaRepository creates a new entity schema repository
func NewEntitySchemaRepository(conn *db.Connection) EntitySchemaRepository {
	return &entitySchemaRepository{
		conn: conn,
	}
}

const schemaColumns = `id, organization_id, name, description, fields, activity_feed, created_at, updated_at`

func (r *entitySchemaRepository) Create(ctx context.Context, schema domain.EntitySchema) (domain.EntitySchema, error) {
	fieldsJSON, err := schema.GetFieldsAsJSONB()
	if err != nil {
		return domain.EntitySchema{}, fmt.Errorf("failed to marshal fields: %w", err)
	}

	row := r.conn.Pool.QueryRow(ctx,
		`INSERT INTO entity_schemas (id, organization_id, name, description, fields, activity_feed)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+schemaColumns,
		schema.ID, schema.OrganizationID, schema.Name, schema.Description, fieldsJSON, schema.ActivityFeed,
	)
	created, err := scanSchema(row)
	if err != nil {
		return domain.EntitySchema{}, translateError(err, "insert entity schema", domain.ErrOrganizationNotFound, domain.ErrDuplicateSchema)
	}
	return created, nil
}

// GetByID retrieves an entity schema by ID
func (r *entitySchemaRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.EntitySchema, error) {
	row := r.conn.Pool.QueryRow(ctx, `SELECT `+schemaColumns+` FROM entity_schemas WHERE id = $1`, id)
	schema, err := scanSchema(row)
	if err != nil {
		return domain.EntitySchema{}, translateError(err, "get entity schema", domain.ErrSchemaNotFound, nil)
	}
	return schema, nil
}

// GetByName retrieves an entity schema by organization ID and name
func (r *entitySchemaRepository) GetByName(ctx context.Context, organizationID uuid.UUID, name string) (domain.EntitySchema, error) {
	row := r.conn.Pool.QueryRow(ctx,
		`SELECT `+schemaColumns+` FROM entity_schemas WHERE organization_id = $1 AND name = $2`,
		organizationID, name,
	)
	schema, err := scanSchema(row)
	if err != nil {
		return domain.EntitySchema{}, translateError(err, "get entity schema by name", domain.ErrSchemaNotFound, nil)
	}
	return schema, nil
}

// List retrieves all schemas for an organization
func (r *entitySchemaRepository) List(ctx context.Context, organizationID uuid.UUID) ([]domain.EntitySchema, error) {
	rows, err := r.conn.Pool.Query(ctx,
		`SELECT `+schemaColumns+` FROM entity_schemas WHERE organization_id = $1 ORDER BY name`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entity schemas: %w", err)
	}
	defer rows.Close()

	var result []domain.EntitySchema
	for rows.Next() {
		schema, err := scanSchema(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, schema)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entity schemas: %w", err)
	}
	return result, nil
}

// Update rewrites the schema. In the same transaction, tracking configurations
// of the schema follow a rename and stop watching fields that no longer exist.
func (r *entitySchemaRepository) Update(ctx context.Context, schema domain.EntitySchema) (domain.EntitySchema, error) {
	fieldsJSON, err := schema.GetFieldsAsJSONB()
	if err != nil {
		return domain.EntitySchema{}, fmt.Errorf("failed to marshal fields: %w", err)
	}

	var updated domain.EntitySchema
	err = r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`UPDATE entity_schemas
			 SET name = $2, description = $3, fields = $4, activity_feed = $5, updated_at = now()
			 WHERE id = $1
			 RETURNING `+schemaColumns,
			schema.ID, schema.Name, schema.Description, fieldsJSON, schema.ActivityFeed,
		)
		var scanErr error
		if updated, scanErr = scanSchema(row); scanErr != nil {
			return translateError(scanErr, "update entity schema", domain.ErrSchemaNotFound, domain.ErrDuplicateSchema)
		}

		_, execErr := tx.Exec(ctx,
			`UPDATE tracking_configurations
			 SET entity_type = $2,
			     field_names = ARRAY(SELECT f FROM unnest(field_names) WITH ORDINALITY AS t(f, pos) WHERE f = ANY($3) ORDER BY pos),
			     updated_at = now()
			 WHERE schema_id = $1`,
			schema.ID, schema.Name, trackableFieldNames(schema),
		)
		if execErr != nil {
			return fmt.Errorf("failed to align tracking configurations: %w", execErr)
		}
		return nil
	})
	if err != nil {
		return domain.EntitySchema{}, err
	}
	return updated, nil
}

// Delete removes the schema. Tracking configurations are removed by cascade.
func (r *entitySchemaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Pool.Exec(ctx, `DELETE FROM entity_schemas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity schema: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSchemaNotFound
	}
	return nil
}

// trackableFieldNames lists the fields a tracking configuration may keep watching.
func trackableFieldNames(schema domain.EntitySchema) []string {
	names := make([]string, 0, len(schema.Fields))
	for _, field := range schema.Fields {
		if field.Stored() && !field.IsBinary() {
			names = append(names, field.Name)
		}
	}
	return names
}

func scanSchema(row rowScanner) (domain.EntitySchema, error) {
	var (
		schema     domain.EntitySchema
		fieldsJSON []byte
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(
		&schema.ID,
		&schema.OrganizationID,
		&schema.Name,
		&schema.Description,
		&fieldsJSON,
		&schema.ActivityFeed,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.EntitySchema{}, err
	}

	fields, err := domain.FromJSONBFields(fieldsJSON)
	if err != nil {
		return domain.EntitySchema{}, fmt.Errorf("failed to unmarshal fields for schema %s: %w", schema.Name, err)
	}
	schema.Fields = fields
	schema.CreatedAt = createdAt
	schema.UpdatedAt = updatedAt
	return schema, nil
}
