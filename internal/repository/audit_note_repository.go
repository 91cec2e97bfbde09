package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/fieldtrack/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditNoteRepository struct {
	pool *pgxpool.Pool
}

// NewAuditNoteRepository wires a repository backed by pgxpool.
func NewAuditNoteRepository(pool *pgxpool.Pool) AuditNoteRepository {
	return &auditNoteRepository{pool: pool}
}

const auditNoteColumns = `id, organization_id, entity_id, entity_type, body, visibility, author_id, author_name, operation_id, created_at`

func (r *auditNoteRepository) Create(ctx context.Context, note domain.AuditNote) (domain.AuditNote, error) {
	if r.pool == nil {
		return domain.AuditNote{}, fmt.Errorf("audit note repository not initialized")
	}
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	if note.Visibility == "" {
		note.Visibility = domain.NoteVisibilityInternal
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO audit_notes (id, organization_id, entity_id, entity_type, body, visibility, author_id, author_name, operation_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+auditNoteColumns,
		note.ID,
		note.OrganizationID,
		note.EntityID,
		note.EntityType,
		note.Body,
		string(note.Visibility),
		note.AuthorID,
		note.AuthorName,
		operationIDParam(note.OperationID),
		note.CreatedAt,
	)
	created, err := scanAuditNote(row)
	if err != nil {
		return domain.AuditNote{}, translateError(err, "record audit note", domain.ErrEntityNotFound, nil)
	}
	return created, nil
}

// List returns notes oldest first, either for one entity or for a whole kind.
func (r *auditNoteRepository) List(ctx context.Context, query domain.AuditNoteQuery) ([]domain.AuditNote, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("audit note repository not initialized")
	}

	limit, offset := query.Limit, query.Offset
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	var entityID any
	if query.EntityID != nil {
		entityID = *query.EntityID
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+auditNoteColumns+`
		 FROM audit_notes
		 WHERE organization_id = $1
		   AND ($2::uuid IS NULL OR entity_id = $2)
		   AND ($3 = '' OR entity_type = $3)
		 ORDER BY created_at, id
		 LIMIT $4 OFFSET $5`,
		query.OrganizationID,
		entityID,
		query.EntityType,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit notes: %w", err)
	}
	defer rows.Close()

	notes := []domain.AuditNote{}
	for rows.Next() {
		note, scanErr := scanAuditNote(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan audit note: %w", scanErr)
		}
		notes = append(notes, note)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate audit notes: %w", rowsErr)
	}

	return notes, nil
}

func operationIDParam(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func scanAuditNote(row rowScanner) (domain.AuditNote, error) {
	var (
		note        domain.AuditNote
		visibility  string
		operationID pgtype.UUID
		createdAt   pgtype.Timestamptz
	)
	if err := row.Scan(
		&note.ID,
		&note.OrganizationID,
		&note.EntityID,
		&note.EntityType,
		&note.Body,
		&visibility,
		&note.AuthorID,
		&note.AuthorName,
		&operationID,
		&createdAt,
	); err != nil {
		return domain.AuditNote{}, err
	}

	note.Visibility = domain.NoteVisibility(visibility)
	if operationID.Valid {
		note.OperationID = uuid.UUID(operationID.Bytes)
	}
	if createdAt.Valid {
		note.CreatedAt = createdAt.Time
	}
	return note, nil
}
