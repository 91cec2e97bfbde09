// Package mutation is the host write path for dynamic entities. Create and
// update calls run through an ordered chain of interceptors before reaching
// the store.
package mutation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rpattn/fieldtrack/internal/domain"
)

// CreateRequest asks for one entity per element of Values.
type CreateRequest struct {
	OrganizationID uuid.UUID
	EntityType     string
	Values         []map[string]any
}

// UpdateRequest writes the same Values onto every entity.
type UpdateRequest struct {
	Entities []domain.Entity
	Values   map[string]any
}

// IDs returns the ids of the entities being updated, in input order.
func (r UpdateRequest) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.Entities))
	for i, entity := range r.Entities {
		ids[i] = entity.ID
	}
	return ids
}

type CreateHandler func(ctx context.Context, req CreateRequest) ([]domain.Entity, error)

type UpdateHandler func(ctx context.Context, req UpdateRequest) (bool, error)

// Interceptor wraps both write entry points. Implementations must call next
// exactly once and return its result unless they deliberately reject the write.
type Interceptor interface {
	InterceptCreate(ctx context.Context, req CreateRequest, next CreateHandler) ([]domain.Entity, error)
	InterceptUpdate(ctx context.Context, req UpdateRequest, next UpdateHandler) (bool, error)
}

// Store is the persistence the pipeline writes through.
type Store interface {
	Create(ctx context.Context, entity domain.Entity) (domain.Entity, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Entity, error)
	Update(ctx context.Context, entity domain.Entity) (domain.Entity, error)
}

// Pipeline runs writes through the registered interceptors, outermost first.
type Pipeline struct {
	store        Store
	interceptors []Interceptor
}

func NewPipeline(store Store, interceptors ...Interceptor) *Pipeline {
	return &Pipeline{store: store, interceptors: interceptors}
}

// Use appends an interceptor. It is not safe to call while writes are running.
func (p *Pipeline) Use(interceptor Interceptor) {
	p.interceptors = append(p.interceptors, interceptor)
}

// Create inserts one entity per values map and returns them in input order.
func (p *Pipeline) Create(ctx context.Context, organizationID uuid.UUID, entityType string, values []map[string]any) ([]domain.Entity, error) {
	handler := CreateHandler(p.create)
	for i := len(p.interceptors) - 1; i >= 0; i-- {
		interceptor, next := p.interceptors[i], handler
		handler = func(ctx context.Context, req CreateRequest) ([]domain.Entity, error) {
			return interceptor.InterceptCreate(ctx, req, next)
		}
	}
	return handler(ctx, CreateRequest{OrganizationID: organizationID, EntityType: entityType, Values: values})
}

// Update merges values into every entity and reports whether all writes succeeded.
func (p *Pipeline) Update(ctx context.Context, entities []domain.Entity, values map[string]any) (bool, error) {
	handler := UpdateHandler(p.update)
	for i := len(p.interceptors) - 1; i >= 0; i-- {
		interceptor, next := p.interceptors[i], handler
		handler = func(ctx context.Context, req UpdateRequest) (bool, error) {
			return interceptor.InterceptUpdate(ctx, req, next)
		}
	}
	return handler(ctx, UpdateRequest{Entities: entities, Values: values})
}

func (p *Pipeline) create(ctx context.Context, req CreateRequest) ([]domain.Entity, error) {
	if req.OrganizationID == uuid.Nil {
		return nil, fmt.Errorf("organizationId is required")
	}
	if req.EntityType == "" {
		return nil, fmt.Errorf("entityType is required")
	}

	created := make([]domain.Entity, 0, len(req.Values))
	for _, values := range req.Values {
		entity, err := p.store.Create(ctx, domain.NewEntity(req.OrganizationID, req.EntityType, values))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s entity: %w", req.EntityType, err)
		}
		created = append(created, entity)
	}
	return created, nil
}

func (p *Pipeline) update(ctx context.Context, req UpdateRequest) (bool, error) {
	if len(req.Entities) == 0 {
		return true, nil
	}

	current, err := p.store.GetByIDs(ctx, req.IDs())
	if err != nil {
		return false, fmt.Errorf("failed to load entities for update: %w", err)
	}
	byID := make(map[uuid.UUID]domain.Entity, len(current))
	for _, entity := range current {
		byID[entity.ID] = entity
	}

	for _, entity := range req.Entities {
		stored, ok := byID[entity.ID]
		if !ok {
			return false, fmt.Errorf("entity %s: %w", entity.ID, domain.ErrEntityNotFound)
		}
		if _, err := p.store.Update(ctx, stored.MergeProperties(req.Values)); err != nil {
			return false, fmt.Errorf("failed to update entity %s: %w", entity.ID, err)
		}
	}
	return true, nil
}
