package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/fieldtrack/internal/domain"
)

type trackingConfigurationRepository struct {
	pool *pgxpool.Pool
}

// NewTrackingConfigurationRepository wires a repository backed by pgxpool.
func NewTrackingConfigurationRepository(pool *pgxpool.Pool) TrackingConfigurationRepository {
	return &trackingConfigurationRepository{pool: pool}
}

const trackingConfigurationColumns = `id, organization_id, schema_id, entity_type, field_names,
	show_old_values, show_new_values, group_changes_per_record, exclude_no_op_changes,
	track_on_create, active, created_at, updated_at`

// Create stores a configuration. A second active configuration for the same
// kind is rejected with domain.ErrDuplicateActiveConfiguration.
func (r *trackingConfigurationRepository) Create(ctx context.Context, cfg domain.TrackingConfiguration) (domain.TrackingConfiguration, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO tracking_configurations (
			id, organization_id, schema_id, entity_type, field_names,
			show_old_values, show_new_values, group_changes_per_record, exclude_no_op_changes,
			track_on_create, active
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+trackingConfigurationColumns,
		cfg.ID, cfg.OrganizationID, cfg.SchemaID, cfg.EntityType, fieldNamesParam(cfg.FieldNames),
		cfg.ShowOldValues, cfg.ShowNewValues, cfg.GroupChangesPerRecord, cfg.ExcludeNoOpChanges,
		cfg.TrackOnCreate, cfg.Active,
	)
	created, err := scanTrackingConfiguration(row)
	if err != nil {
		return domain.TrackingConfiguration{}, translateError(err, "create tracking configuration", domain.ErrSchemaNotFound, domain.ErrDuplicateActiveConfiguration)
	}
	return created, nil
}

func (r *trackingConfigurationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.TrackingConfiguration, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+trackingConfigurationColumns+` FROM tracking_configurations WHERE id = $1`, id)
	cfg, err := scanTrackingConfiguration(row)
	if err != nil {
		return domain.TrackingConfiguration{}, translateError(err, "get tracking configuration", domain.ErrTrackingConfigurationNotFound, nil)
	}
	return cfg, nil
}

func (r *trackingConfigurationRepository) List(ctx context.Context, organizationID uuid.UUID) ([]domain.TrackingConfiguration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+trackingConfigurationColumns+`
		 FROM tracking_configurations
		 WHERE organization_id = $1
		 ORDER BY entity_type, created_at`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking configurations: %w", err)
	}
	defer rows.Close()

	var configs []domain.TrackingConfiguration
	for rows.Next() {
		cfg, err := scanTrackingConfiguration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracking configuration: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracking configurations: %w", err)
	}
	return configs, nil
}

func (r *trackingConfigurationRepository) Update(ctx context.Context, cfg domain.TrackingConfiguration) (domain.TrackingConfiguration, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE tracking_configurations
		 SET schema_id = $2, entity_type = $3, field_names = $4,
		     show_old_values = $5, show_new_values = $6, group_changes_per_record = $7,
		     exclude_no_op_changes = $8, track_on_create = $9, active = $10, updated_at = now()
		 WHERE id = $1
		 RETURNING `+trackingConfigurationColumns,
		cfg.ID, cfg.SchemaID, cfg.EntityType, fieldNamesParam(cfg.FieldNames),
		cfg.ShowOldValues, cfg.ShowNewValues, cfg.GroupChangesPerRecord,
		cfg.ExcludeNoOpChanges, cfg.TrackOnCreate, cfg.Active,
	)
	updated, err := scanTrackingConfiguration(row)
	if err != nil {
		return domain.TrackingConfiguration{}, translateError(err, "update tracking configuration", domain.ErrTrackingConfigurationNotFound, domain.ErrDuplicateActiveConfiguration)
	}
	return updated, nil
}

func (r *trackingConfigurationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tracking_configurations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tracking configuration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTrackingConfigurationNotFound
	}
	return nil
}

// FindActive returns the active configuration for a kind, or (nil, nil).
func (r *trackingConfigurationRepository) FindActive(ctx context.Context, organizationID uuid.UUID, entityType string) (*domain.TrackingConfiguration, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+trackingConfigurationColumns+`
		 FROM tracking_configurations
		 WHERE organization_id = $1 AND entity_type = $2 AND active
		 LIMIT 1`,
		organizationID, entityType,
	)
	cfg, err := scanTrackingConfiguration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active tracking configuration: %w", err)
	}
	return &cfg, nil
}

// fieldNamesParam keeps a nil slice from being sent as NULL into a NOT NULL column.
func fieldNamesParam(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

func scanTrackingConfiguration(row rowScanner) (domain.TrackingConfiguration, error) {
	var cfg domain.TrackingConfiguration
	err := row.Scan(
		&cfg.ID,
		&cfg.OrganizationID,
		&cfg.SchemaID,
		&cfg.EntityType,
		&cfg.FieldNames,
		&cfg.ShowOldValues,
		&cfg.ShowNewValues,
		&cfg.GroupChangesPerRecord,
		&cfg.ExcludeNoOpChanges,
		&cfg.TrackOnCreate,
		&cfg.Active,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	return cfg, err
}
