package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/fieldtrack/internal/catalog"
	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/mutation"
	"github.com/rpattn/fieldtrack/internal/opscope"
)

type stubStore struct {
	mu         sync.Mutex
	entities   map[uuid.UUID]domain.Entity
	failUpdate error
	failReads  error
}

func newStubStore() *stubStore {
	return &stubStore{entities: map[uuid.UUID]domain.Entity{}}
}

func (s *stubStore) Create(_ context.Context, entity domain.Entity) (domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[entity.ID] = entity
	return entity, nil
}

func (s *stubStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads != nil {
		return nil, s.failReads
	}
	out := make([]domain.Entity, 0, len(ids))
	for _, id := range ids {
		if entity, ok := s.entities[id]; ok {
			out = append(out, entity)
		}
	}
	return out, nil
}

func (s *stubStore) Update(_ context.Context, entity domain.Entity) (domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate != nil {
		return domain.Entity{}, s.failUpdate
	}
	s.entities[entity.ID] = entity
	return entity, nil
}

func (s *stubStore) seed(entity domain.Entity) domain.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[entity.ID] = entity
	return entity
}

type stubFinder struct {
	mu      sync.Mutex
	configs map[string]domain.TrackingConfiguration
	err     error
	calls   int
}

func (f *stubFinder) FindActive(_ context.Context, organizationID uuid.UUID, entityType string) (*domain.TrackingConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cfg, ok := f.configs[entityType]
	if !ok || cfg.OrganizationID != organizationID {
		return nil, nil
	}
	return &cfg, nil
}

type stubSchemas struct {
	schemas map[string]domain.EntitySchema
}

func (s stubSchemas) Describe(_ context.Context, _ uuid.UUID, entityType string) (catalog.Descriptor, error) {
	schema, ok := s.schemas[entityType]
	if !ok {
		return catalog.Descriptor{}, domain.ErrSchemaNotFound
	}
	return catalog.Describe(schema), nil
}

type stubPoster struct {
	mu    sync.Mutex
	notes []domain.AuditNote
	err   error
	panic bool
}

func (p *stubPoster) PostNote(_ context.Context, note domain.AuditNote) error {
	if p.panic {
		panic("feed exploded")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.notes = append(p.notes, note)
	return nil
}

func (p *stubPoster) bodies() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.notes))
	for i, note := range p.notes {
		out[i] = note.Body
	}
	return out
}

type stubNames map[uuid.UUID]string

func (n stubNames) DisplayNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := map[uuid.UUID]string{}
	for _, id := range ids {
		if name, ok := n[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

type failingNames struct{}

func (failingNames) DisplayNames(context.Context, []uuid.UUID) (map[uuid.UUID]string, error) {
	return nil, errors.New("names unavailable")
}

// harness wires a pipeline with the tracking interceptor over stubs.
type harness struct {
	org      uuid.UUID
	store    *stubStore
	finder   *stubFinder
	schemas  stubSchemas
	poster   *stubPoster
	metrics  *Metrics
	pipeline *mutation.Pipeline
}

func orderSchema(org uuid.UUID) domain.EntitySchema {
	return domain.NewEntitySchema(org, "order", "", []domain.FieldDefinition{
		{Name: "name", Type: domain.FieldTypeString},
		{Name: "status", Type: domain.FieldTypeSelection, Options: []domain.SelectionOption{{Value: "draft"}, {Value: "confirmed"}}},
		{Name: "amount", Type: domain.FieldTypeMonetary},
		{Name: "currency", Type: domain.FieldTypeString},
		{Name: "customer", Type: domain.FieldTypeEntityReference},
		{Name: "tags", Type: domain.FieldTypeEntityReferenceArray},
		{Name: "attachment", Type: domain.FieldTypeBinary},
		{Name: "priority", Type: domain.FieldTypeInteger},
	})
}

func newHarness(t *testing.T, names NameResolver, fieldNames ...string) *harness {
	t.Helper()
	org := uuid.New()
	schema := orderSchema(org)
	cfg := domain.NewTrackingConfiguration(org, schema, fieldNames)

	h := &harness{
		org:     org,
		store:   newStubStore(),
		finder:  &stubFinder{configs: map[string]domain.TrackingConfiguration{"order": cfg}},
		schemas: stubSchemas{schemas: map[string]domain.EntitySchema{"order": schema}},
		poster:  &stubPoster{},
		metrics: NewMetrics(nil),
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	interceptor := NewInterceptor(Options{
		Finder:          h.finder,
		Catalog:         h.schemas,
		Reader:          h.store,
		Names:           names,
		Poster:          h.poster,
		Logger:          logger,
		Metrics:         h.metrics,
		DiffWorkers:     4,
		DefaultLocale:   "en-US",
		DefaultTimeZone: "UTC",
	})
	h.pipeline = mutation.NewPipeline(h.store, interceptor)
	return h
}

func (h *harness) configure(mutate func(*domain.TrackingConfiguration)) {
	h.finder.mu.Lock()
	defer h.finder.mu.Unlock()
	cfg := h.finder.configs["order"]
	mutate(&cfg)
	h.finder.configs["order"] = cfg
}

func (h *harness) ctx() context.Context {
	scope := opscope.New(h.org, opscope.Actor{ID: "u-ada", Name: "Ada"}, opscope.PhaseNormal)
	return opscope.WithScope(context.Background(), scope)
}

func (h *harness) seedOrder(props map[string]any) domain.Entity {
	return h.store.seed(domain.NewEntity(h.org, "order", props))
}

func assertBodies(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d notes, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("note %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
