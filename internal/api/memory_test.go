package api

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rpattn/fieldtrack/internal/domain"
)

// memoryDB backs every repository interface the router needs.
type memoryDB struct {
	mu       sync.Mutex
	orgs     map[uuid.UUID]domain.Organization
	schemas  map[uuid.UUID]domain.EntitySchema
	entities map[uuid.UUID]domain.Entity
	configs  map[uuid.UUID]domain.TrackingConfiguration
	notes    []domain.AuditNote
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		orgs:     map[uuid.UUID]domain.Organization{},
		schemas:  map[uuid.UUID]domain.EntitySchema{},
		entities: map[uuid.UUID]domain.Entity{},
		configs:  map[uuid.UUID]domain.TrackingConfiguration{},
	}
}

type memoryOrgs struct{ *memoryDB }

func (m memoryOrgs) Create(_ context.Context, org domain.Organization) (domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orgs {
		if existing.Name == org.Name {
			return domain.Organization{}, domain.ErrDuplicateOrganization
		}
	}
	m.orgs[org.ID] = org
	return org, nil
}

func (m memoryOrgs) GetByID(_ context.Context, id uuid.UUID) (domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return domain.Organization{}, domain.ErrOrganizationNotFound
	}
	return org, nil
}

func (m memoryOrgs) GetByName(_ context.Context, name string) (domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, org := range m.orgs {
		if org.Name == name {
			return org, nil
		}
	}
	return domain.Organization{}, domain.ErrOrganizationNotFound
}

func (m memoryOrgs) List(context.Context) ([]domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Organization, 0, len(m.orgs))
	for _, org := range m.orgs {
		out = append(out, org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memoryOrgs) Update(_ context.Context, org domain.Organization) (domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[org.ID]; !ok {
		return domain.Organization{}, domain.ErrOrganizationNotFound
	}
	m.orgs[org.ID] = org
	return org, nil
}

func (m memoryOrgs) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orgs, id)
	return nil
}

type memorySchemas struct{ *memoryDB }

func (m memorySchemas) Create(_ context.Context, schema domain.EntitySchema) (domain.EntitySchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.schemas {
		if existing.OrganizationID == schema.OrganizationID && existing.Name == schema.Name {
			return domain.EntitySchema{}, domain.ErrDuplicateSchema
		}
	}
	m.schemas[schema.ID] = schema
	return schema, nil
}

func (m memorySchemas) GetByID(_ context.Context, id uuid.UUID) (domain.EntitySchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	schema, ok := m.schemas[id]
	if !ok {
		return domain.EntitySchema{}, domain.ErrSchemaNotFound
	}
	return schema, nil
}

func (m memorySchemas) GetByName(_ context.Context, organizationID uuid.UUID, name string) (domain.EntitySchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, schema := range m.schemas {
		if schema.OrganizationID == organizationID && schema.Name == name {
			return schema, nil
		}
	}
	return domain.EntitySchema{}, domain.ErrSchemaNotFound
}

func (m memorySchemas) List(_ context.Context, organizationID uuid.UUID) ([]domain.EntitySchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EntitySchema
	for _, schema := range m.schemas {
		if schema.OrganizationID == organizationID {
			out = append(out, schema)
		}
	}
	return out, nil
}

// Update mirrors the Postgres repository: configurations follow renames and
// drop vanished fields.
func (m memorySchemas) Update(_ context.Context, schema domain.EntitySchema) (domain.EntitySchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[schema.ID]; !ok {
		return domain.EntitySchema{}, domain.ErrSchemaNotFound
	}
	m.schemas[schema.ID] = schema
	for id, cfg := range m.configs {
		if cfg.SchemaID != schema.ID {
			continue
		}
		var kept []string
		for _, name := range cfg.FieldNames {
			if field, ok := schema.Field(name); ok && field.Stored() && !field.IsBinary() {
				kept = append(kept, name)
			}
		}
		cfg.EntityType = schema.Name
		cfg.FieldNames = kept
		m.configs[id] = cfg
	}
	return schema, nil
}

func (m memorySchemas) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[id]; !ok {
		return domain.ErrSchemaNotFound
	}
	delete(m.schemas, id)
	for cfgID, cfg := range m.configs {
		if cfg.SchemaID == id {
			delete(m.configs, cfgID)
		}
	}
	return nil
}

type memoryEntities struct{ *memoryDB }

func (m memoryEntities) Create(_ context.Context, entity domain.Entity) (domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[entity.ID] = entity
	return entity, nil
}

func (m memoryEntities) GetByID(_ context.Context, id uuid.UUID) (domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.entities[id]
	if !ok {
		return domain.Entity{}, domain.ErrEntityNotFound
	}
	return entity, nil
}

func (m memoryEntities) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Entity, 0, len(ids))
	for _, id := range ids {
		if entity, ok := m.entities[id]; ok {
			out = append(out, entity)
		}
	}
	return out, nil
}

func (m memoryEntities) ListByType(_ context.Context, organizationID uuid.UUID, entityType string, _ int, _ int) ([]domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Entity
	for _, entity := range m.entities {
		if entity.OrganizationID == organizationID && entity.EntityType == entityType {
			out = append(out, entity)
		}
	}
	return out, nil
}

func (m memoryEntities) Update(_ context.Context, entity domain.Entity) (domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[entity.ID]; !ok {
		return domain.Entity{}, domain.ErrEntityNotFound
	}
	entity.Version++
	m.entities[entity.ID] = entity
	return entity, nil
}

func (m memoryEntities) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entities, id)
	return nil
}

type memoryConfigs struct{ *memoryDB }

func (m memoryConfigs) conflicts(cfg domain.TrackingConfiguration) bool {
	if !cfg.Active {
		return false
	}
	for _, existing := range m.configs {
		if existing.ID != cfg.ID && existing.Active &&
			existing.OrganizationID == cfg.OrganizationID && existing.EntityType == cfg.EntityType {
			return true
		}
	}
	return false
}

func (m memoryConfigs) Create(_ context.Context, cfg domain.TrackingConfiguration) (domain.TrackingConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts(cfg) {
		return domain.TrackingConfiguration{}, domain.ErrDuplicateActiveConfiguration
	}
	m.configs[cfg.ID] = cfg
	return cfg, nil
}

func (m memoryConfigs) GetByID(_ context.Context, id uuid.UUID) (domain.TrackingConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[id]
	if !ok {
		return domain.TrackingConfiguration{}, domain.ErrTrackingConfigurationNotFound
	}
	return cfg, nil
}

func (m memoryConfigs) List(_ context.Context, organizationID uuid.UUID) ([]domain.TrackingConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TrackingConfiguration
	for _, cfg := range m.configs {
		if cfg.OrganizationID == organizationID {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (m memoryConfigs) Update(_ context.Context, cfg domain.TrackingConfiguration) (domain.TrackingConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.configs[cfg.ID]; !ok {
		return domain.TrackingConfiguration{}, domain.ErrTrackingConfigurationNotFound
	}
	if m.conflicts(cfg) {
		return domain.TrackingConfiguration{}, domain.ErrDuplicateActiveConfiguration
	}
	m.configs[cfg.ID] = cfg
	return cfg, nil
}

func (m memoryConfigs) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.configs[id]; !ok {
		return domain.ErrTrackingConfigurationNotFound
	}
	delete(m.configs, id)
	return nil
}

func (m memoryConfigs) FindActive(_ context.Context, organizationID uuid.UUID, entityType string) (*domain.TrackingConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cfg := range m.configs {
		if cfg.Active && cfg.OrganizationID == organizationID && cfg.EntityType == entityType {
			found := cfg
			return &found, nil
		}
	}
	return nil, nil
}

type memoryNotes struct{ *memoryDB }

func (m memoryNotes) Create(_ context.Context, note domain.AuditNote) (domain.AuditNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, note)
	return note, nil
}

func (m memoryNotes) List(_ context.Context, query domain.AuditNoteQuery) ([]domain.AuditNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditNote
	for _, note := range m.notes {
		if note.OrganizationID != query.OrganizationID {
			continue
		}
		if query.EntityID != nil && note.EntityID != *query.EntityID {
			continue
		}
		if query.EntityType != "" && note.EntityType != query.EntityType {
			continue
		}
		out = append(out, note)
	}
	return out, nil
}
