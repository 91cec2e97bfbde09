package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/fieldtrack/internal/domain"
)

type stubSchemaSource struct {
	schemas map[string]domain.EntitySchema
	calls   int
}

func (s *stubSchemaSource) GetByName(_ context.Context, _ uuid.UUID, name string) (domain.EntitySchema, error) {
	s.calls++
	schema, ok := s.schemas[name]
	if !ok {
		return domain.EntitySchema{}, domain.ErrSchemaNotFound
	}
	return schema, nil
}

func orderSchema(org uuid.UUID) domain.EntitySchema {
	return domain.NewEntitySchema(org, "order", "", []domain.FieldDefinition{
		{Name: "status", Type: domain.FieldTypeSelection},
		{Name: "amount", Type: domain.FieldTypeMonetary},
		{Name: "attachment", Type: domain.FieldTypeBinary},
		{Name: "total_with_tax", Type: domain.FieldTypeFloat, Computed: true},
		{Name: "customer", Type: domain.FieldTypeEntityReference, Label: "Customer"},
	})
}

func TestWatchedFollowsConfiguredOrderAndDropsUntrackable(t *testing.T) {
	descriptor := Describe(orderSchema(uuid.New()))

	watched := descriptor.Watched([]string{"customer", "attachment", "missing", "status", "total_with_tax", "status", "amount"})
	var names []string
	for _, field := range watched {
		names = append(names, field.Name)
	}
	want := []string{"customer", "status", "amount"}
	if len(names) != len(want) {
		t.Fatalf("unexpected watched fields %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected watched fields %v", names)
		}
	}
	if watched[1].Label != "Status" {
		t.Fatalf("expected derived label, got %q", watched[1].Label)
	}
}

func TestDescribeCachesPerKind(t *testing.T) {
	org := uuid.New()
	source := &stubSchemaSource{schemas: map[string]domain.EntitySchema{"order": orderSchema(org)}}
	cat := New(source, 8, time.Minute)

	for i := 0; i < 3; i++ {
		descriptor, err := cat.Describe(context.Background(), org, "order")
		if err != nil {
			t.Fatalf("describe: %v", err)
		}
		if !descriptor.HasActivityFeed() {
			t.Fatal("expected activity feed on new schemas")
		}
	}
	if source.calls != 1 {
		t.Fatalf("expected one schema lookup, got %d", source.calls)
	}

	cat.Invalidate(org, "order")
	if _, err := cat.Describe(context.Background(), org, "order"); err != nil {
		t.Fatalf("describe: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected lookup after invalidation, got %d", source.calls)
	}
}

func TestDescribeUnknownKind(t *testing.T) {
	cat := New(&stubSchemaSource{}, 0, 0)
	_, err := cat.Describe(context.Background(), uuid.New(), "ghost")
	if !errors.Is(err, domain.ErrSchemaNotFound) {
		t.Fatalf("expected schema not found, got %v", err)
	}
}
