package domain

import (
	"time"

	"github.com/google/uuid"
)

// NoteVisibility controls who may read an audit note.
type NoteVisibility string

const (
	// NoteVisibilityInternal notes are only shown to internal users.
	NoteVisibilityInternal NoteVisibility = "internal"
)

// AuditNote is one posted change note attached to a single entity.
type AuditNote struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	EntityID       uuid.UUID      `json:"entity_id"`
	EntityType     string         `json:"entity_type"`
	Body           string         `json:"body"`
	Visibility     NoteVisibility `json:"visibility"`
	AuthorID       string         `json:"author_id,omitempty"`
	AuthorName     string         `json:"author_name,omitempty"`
	OperationID    uuid.UUID      `json:"operation_id"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewAuditNote creates an internal note on entity authored by the given actor.
func NewAuditNote(entity Entity, body, authorID, authorName string, operationID uuid.UUID) AuditNote {
	return AuditNote{
		ID:             uuid.New(),
		OrganizationID: entity.OrganizationID,
		EntityID:       entity.ID,
		EntityType:     entity.EntityType,
		Body:           body,
		Visibility:     NoteVisibilityInternal,
		AuthorID:       authorID,
		AuthorName:     authorName,
		OperationID:    operationID,
		CreatedAt:      time.Now(),
	}
}

// AuditNoteQuery filters note listings.
type AuditNoteQuery struct {
	OrganizationID uuid.UUID
	EntityID       *uuid.UUID
	EntityType     string
	Limit          int
	Offset         int
}
