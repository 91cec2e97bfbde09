package entityloader

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/rpattn/fieldtrack/internal/domain"
)

type stubEntitySource struct {
	mu       sync.Mutex
	entities map[uuid.UUID]domain.Entity
	err      error
	calls    int
}

func (s *stubEntitySource) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Entity
	for _, id := range ids {
		if entity, ok := s.entities[id]; ok {
			out = append(out, entity)
		}
	}
	return out, nil
}

func TestDisplayNamesBatchesLookups(t *testing.T) {
	org := uuid.New()
	acme := domain.NewEntity(org, "customer", map[string]any{"name": "Acme Corp"})
	globex := domain.NewEntity(org, "customer", map[string]any{"title": "Globex"})
	bare := domain.NewEntity(org, "customer", nil)
	missing := uuid.New()

	source := &stubEntitySource{entities: map[uuid.UUID]domain.Entity{
		acme.ID: acme, globex.ID: globex, bare.ID: bare,
	}}

	names, err := NewNameResolver(source).DisplayNames(context.Background(), []uuid.UUID{acme.ID, globex.ID, bare.ID, missing})
	if err != nil {
		t.Fatalf("display names: %v", err)
	}
	if names[acme.ID] != "Acme Corp" || names[globex.ID] != "Globex" || names[bare.ID] != bare.ID.String() {
		t.Fatalf("unexpected names %v", names)
	}
	if _, ok := names[missing]; ok {
		t.Fatal("expected missing entity to be left out")
	}
	if source.calls != 1 {
		t.Fatalf("expected one batched lookup, got %d", source.calls)
	}
}

func TestDisplayNamesUsesRequestLoader(t *testing.T) {
	org := uuid.New()
	acme := domain.NewEntity(org, "customer", map[string]any{"name": "Acme Corp"})
	source := &stubEntitySource{entities: map[uuid.UUID]domain.Entity{acme.ID: acme}}

	ctx := WithLoader(context.Background(), NewEntityLoader(source).Loader)
	resolver := NewNameResolver(&stubEntitySource{err: errors.New("unused")})

	for i := 0; i < 2; i++ {
		names, err := resolver.DisplayNames(ctx, []uuid.UUID{acme.ID})
		if err != nil {
			t.Fatalf("display names: %v", err)
		}
		if names[acme.ID] != "Acme Corp" {
			t.Fatalf("unexpected names %v", names)
		}
	}
	if source.calls != 1 {
		t.Fatalf("expected the request loader to cache, got %d lookups", source.calls)
	}
}

func TestDisplayNamesReportsStoreErrors(t *testing.T) {
	source := &stubEntitySource{err: errors.New("connection reset")}
	if _, err := NewNameResolver(source).DisplayNames(context.Background(), []uuid.UUID{uuid.New()}); err == nil {
		t.Fatal("expected an error")
	}
}
