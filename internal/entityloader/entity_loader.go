package entityloader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/fieldtrack/internal/domain"
)

// EntitySource is the batch read the loader is built on.
type EntitySource interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Entity, error)
}

type EntityLoader struct {
	Loader *dataloader.Loader
}

func NewEntityLoader(repo EntitySource) *EntityLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		// Convert keys to []uuid.UUID
		ids := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				results := make([]*dataloader.Result, len(keys))
				for j := range results {
					results[j] = &dataloader.Result{Error: fmt.Errorf("invalid UUID: %w", err)}
				}
				return results
			}
			ids[i] = id
		}

		entities, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		entityMap := make(map[uuid.UUID]domain.Entity, len(entities))
		for _, e := range entities {
			entityMap[e.ID] = e
		}

		// Results must line up with keys
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if e, ok := entityMap[id]; ok {
				results[i] = &dataloader.Result{Data: e}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &EntityLoader{Loader: loader}
}

type ctxKey string

const entityLoaderKey ctxKey = "entityLoader"

// WithLoader returns a context carrying a request-scoped loader.
func WithLoader(ctx context.Context, loader *dataloader.Loader) context.Context {
	return context.WithValue(ctx, entityLoaderKey, loader)
}

// FromContext retrieves the request-scoped loader, if any.
func FromContext(ctx context.Context) *dataloader.Loader {
	if l, ok := ctx.Value(entityLoaderKey).(*dataloader.Loader); ok {
		return l
	}
	return nil
}

// NameResolver turns referenced entity ids into display names. It batches
// through the request's loader when one is present and otherwise through a
// loader scoped to the call.
type NameResolver struct {
	repo EntitySource
}

func NewNameResolver(repo EntitySource) *NameResolver {
	return &NameResolver{repo: repo}
}

// DisplayNames resolves every id that still exists. Missing entities are left out.
func (r *NameResolver) DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	loader := FromContext(ctx)
	if loader == nil {
		loader = NewEntityLoader(r.repo).Loader
	}

	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(id.String())
	}

	results, errs := loader.LoadMany(ctx, keys)()
	var firstErr error
	for i, result := range results {
		if i < len(errs) && errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		entity, ok := result.(domain.Entity)
		if !ok {
			continue
		}
		names[ids[i]] = entity.DisplayName()
	}
	if firstErr != nil {
		return names, fmt.Errorf("failed to load referenced entities: %w", firstErr)
	}
	return names, nil
}
