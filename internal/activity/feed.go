// Package activity stores posted audit notes and fans them out to live
// subscribers of a tenant's activity feed.
package activity

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/fieldtrack/internal/domain"
)

// NoteStore persists notes.
type NoteStore interface {
	Create(ctx context.Context, note domain.AuditNote) (domain.AuditNote, error)
}

// Publisher announces a stored note to live listeners.
type Publisher interface {
	Publish(ctx context.Context, note domain.AuditNote) error
}

// Feed is the note sink used by change tracking. A note counts as posted once
// it is stored; publication is best effort.
type Feed struct {
	store     NoteStore
	publisher Publisher
	log       logrus.FieldLogger
}

// NewFeed builds a feed. publisher may be nil when no fan-out is configured.
func NewFeed(store NoteStore, publisher Publisher, log logrus.FieldLogger) *Feed {
	if log == nil {
		discard := logrus.New()
		discard.SetLevel(logrus.PanicLevel)
		log = discard
	}
	return &Feed{store: store, publisher: publisher, log: log}
}

// PostNote stores note and then publishes the stored copy.
func (f *Feed) PostNote(ctx context.Context, note domain.AuditNote) error {
	stored, err := f.store.Create(ctx, note)
	if err != nil {
		return fmt.Errorf("failed to store audit note: %w", err)
	}

	if f.publisher == nil {
		return nil
	}
	if err := f.publisher.Publish(ctx, stored); err != nil {
		f.log.WithFields(logrus.Fields{
			"note_id":   stored.ID,
			"entity_id": stored.EntityID,
		}).WithError(err).Warn("failed to publish audit note")
	}
	return nil
}
