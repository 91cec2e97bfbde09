package tracking

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/opscope"
)

// NotePoster attaches a note to an entity's activity feed.
type NotePoster interface {
	PostNote(ctx context.Context, note domain.AuditNote) error
}

// EntityChanges pairs an entity with the lines computed for it.
type EntityChanges struct {
	Entity domain.Entity
	Lines  []ChangeLine
}

// Emitter posts change lines as internal notes authored by the acting user.
type Emitter struct {
	poster  NotePoster
	log     logrus.FieldLogger
	metrics *Metrics
}

func NewEmitter(poster NotePoster, log logrus.FieldLogger, metrics *Metrics) *Emitter {
	return &Emitter{poster: poster, log: orDiscard(log), metrics: metrics}
}

// Emit posts notes for every entity in the given order. With grouping each
// entity gets one note holding all its lines, otherwise each line is its own
// note. Entities without lines get nothing. Failures are logged and dropped.
func (e *Emitter) Emit(ctx context.Context, cfg domain.TrackingConfiguration, changes []EntityChanges) int {
	var author opscope.Actor
	operationID := uuid.Nil
	if scope, ok := opscope.FromContext(ctx); ok {
		author = scope.Actor
		operationID = scope.ID
	}

	posted := 0
	for _, change := range changes {
		if len(change.Lines) == 0 {
			continue
		}

		var bodies []string
		if cfg.GroupChangesPerRecord {
			bodies = []string{NoteBody(change.Lines)}
		} else {
			for _, line := range change.Lines {
				bodies = append(bodies, line.String())
			}
		}

		for _, body := range bodies {
			note := domain.NewAuditNote(change.Entity, body, author.ID, author.Name, operationID)
			if err := e.poster.PostNote(ctx, note); err != nil {
				e.metrics.postFailed()
				e.log.WithFields(logrus.Fields{
					"entity_id":   change.Entity.ID,
					"entity_type": change.Entity.EntityType,
					"error":       err,
				}).Warn("failed to post audit note")
				continue
			}
			e.metrics.posted()
			posted++
		}
	}
	return posted
}
