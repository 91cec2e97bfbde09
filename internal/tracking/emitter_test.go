package tracking

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/opscope"
)

func line(label, oldText, newText string) ChangeLine {
	return ChangeLine{Field: label, Label: label, Old: &oldText, New: &newText}
}

func TestEmitGroupsPerEntityNotAcrossEntities(t *testing.T) {
	poster := &stubPoster{}
	emitter := NewEmitter(poster, nil, nil)
	cfg := domain.TrackingConfiguration{GroupChangesPerRecord: true}

	first := domain.NewEntity(uuid.New(), "order", nil)
	second := domain.NewEntity(uuid.New(), "order", nil)
	posted := emitter.Emit(context.Background(), cfg, []EntityChanges{
		{Entity: first, Lines: []ChangeLine{line("A", "1", "2"), line("B", "x", "y")}},
		{Entity: second, Lines: nil},
		{Entity: second, Lines: []ChangeLine{line("A", "3", "4")}},
	})

	if posted != 2 {
		t.Fatalf("expected 2 notes, got %d", posted)
	}
	assertBodies(t, poster.bodies(), "• A — 1 → 2\n• B — x → y", "• A — 3 → 4")
}

func TestEmitUsesScopeActorAsAuthor(t *testing.T) {
	poster := &stubPoster{}
	actor := opscope.Actor{ID: "u-42", Name: "Grace"}
	scope := opscope.New(uuid.New(), actor, opscope.PhaseNormal)
	ctx := opscope.WithScope(context.Background(), scope)

	entity := domain.NewEntity(scope.Tenant, "order", nil)
	NewEmitter(poster, nil, nil).Emit(ctx, domain.TrackingConfiguration{}, []EntityChanges{{Entity: entity, Lines: []ChangeLine{line("A", "1", "2")}}})

	if len(poster.notes) != 1 {
		t.Fatalf("expected one note, got %d", len(poster.notes))
	}
	note := poster.notes[0]
	if note.AuthorID != "u-42" || note.AuthorName != "Grace" || note.OperationID != scope.ID {
		t.Fatalf("unexpected attribution %+v", note)
	}
	if note.Visibility != domain.NoteVisibilityInternal {
		t.Fatalf("expected internal visibility, got %s", note.Visibility)
	}
}
