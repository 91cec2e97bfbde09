package tracking

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/fieldtrack/internal/catalog"
	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/fieldkind"
)

const (
	lineBullet    = "• "
	lineSeparator = " — "
	lineArrow     = " → "
)

// ChangeLine describes the change of one field. Old or New is nil when that
// side is not shown.
type ChangeLine struct {
	Field string
	Label string
	Old   *string
	New   *string
}

// String renders the line as it appears in a note body.
func (l ChangeLine) String() string {
	var b strings.Builder
	b.WriteString(lineBullet)
	b.WriteString(l.Label)
	b.WriteString(lineSeparator)
	switch {
	case l.Old != nil && l.New != nil:
		b.WriteString(*l.Old)
		b.WriteString(lineArrow)
		b.WriteString(*l.New)
	case l.Old != nil:
		b.WriteString(*l.Old)
	case l.New != nil:
		b.WriteString(*l.New)
	}
	return b.String()
}

// NoteBody joins lines into the plain-text body of one note.
func NoteBody(lines []ChangeLine) string {
	rendered := make([]string, len(lines))
	for i, line := range lines {
		rendered[i] = line.String()
	}
	return strings.Join(rendered, "\n")
}

// NameResolver returns display names for referenced entities. Ids it cannot
// resolve are left out of the result.
type NameResolver interface {
	DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// DiffRequest is the input of one per-entity diff.
type DiffRequest struct {
	Before Snapshot
	After  Snapshot
	Config domain.TrackingConfiguration
	// Fields are the watched fields in declared order.
	Fields []catalog.FieldDescriptor
	Locale fieldkind.Locale
	// Creation diffs supplied values against nothing; only new values are shown.
	Creation bool
}

// Builder turns snapshot pairs into change lines.
type Builder struct {
	names NameResolver
	log   logrus.FieldLogger
}

func NewBuilder(names NameResolver, log logrus.FieldLogger) *Builder {
	return &Builder{names: names, log: orDiscard(log)}
}

type pendingChange struct {
	field    catalog.FieldDescriptor
	oldValue any
	newValue any
}

// Diff compares one entity's snapshots and returns its change lines in the
// declared field order.
func (b *Builder) Diff(ctx context.Context, req DiffRequest) []ChangeLine {
	showOld := req.Config.ShowOldValues && !req.Creation
	showNew := req.Config.ShowNewValues
	if !showOld && !showNew {
		return nil
	}

	pending := make([]pendingChange, 0, len(req.Fields))
	for _, field := range req.Fields {
		if !field.Trackable() {
			continue
		}
		newValue, ok := req.After.Value(field.Name)
		if !ok {
			continue
		}
		var oldValue any
		if !req.Creation {
			if oldValue, ok = req.Before.Value(field.Name); !ok {
				continue
			}
		}
		if field.Kind.Equal(oldValue, newValue) {
			continue
		}
		pending = append(pending, pendingChange{field: field, oldValue: oldValue, newValue: newValue})
	}
	if len(pending) == 0 {
		return nil
	}

	names := b.resolveNames(ctx, pending)

	lines := make([]ChangeLine, 0, len(pending))
	for _, change := range pending {
		env := fieldkind.Env{Locale: req.Locale, Field: change.field.Definition, Names: names}

		env.Currency = req.Before.Currency(change.field.Name)
		if env.Currency == "" {
			env.Currency = req.After.Currency(change.field.Name)
		}
		oldText := render(change.field.Kind, env, change.oldValue)

		env.Currency = req.After.Currency(change.field.Name)
		newText := render(change.field.Kind, env, change.newValue)

		if req.Config.ExcludeNoOpChanges && oldText == newText {
			continue
		}

		line := ChangeLine{Field: change.field.Name, Label: change.field.Label}
		if showOld {
			line.Old = &oldText
		}
		if showNew {
			line.New = &newText
		}
		lines = append(lines, line)
	}
	return lines
}

func (b *Builder) resolveNames(ctx context.Context, pending []pendingChange) map[string]string {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	for _, change := range pending {
		refs := append(fieldkind.ReferenceIDs(change.field.Kind, change.oldValue), fieldkind.ReferenceIDs(change.field.Kind, change.newValue)...)
		for _, ref := range refs {
			id, err := uuid.Parse(ref)
			if err != nil {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 || b.names == nil {
		return nil
	}

	resolved, err := b.names.DisplayNames(ctx, ids)
	if err != nil {
		b.log.WithFields(logrus.Fields{"references": len(ids), "error": err}).Debug("reference name lookup failed")
	}

	names := make(map[string]string, len(resolved))
	for id, name := range resolved {
		names[id.String()] = name
	}
	return names
}

// render formats a normalized value, falling back to its generic form when
// the kind cannot render it.
func render(kind fieldkind.Kind, env fieldkind.Env, value any) string {
	if fieldkind.IsEmpty(value) {
		return env.Locale.Empty()
	}
	text, err := kind.Format(env, value)
	if err != nil {
		return fieldkind.Generic(value)
	}
	return text
}
