package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/fieldtrack/internal/domain"
)

const (
	sheetName       = "Audit trail"
	defaultPageSize = 500
	timestampLayout = "2006-01-02 15:04:05"
)

var headers = []any{"Created at (UTC)", "Entity", "Author", "Operation", "Changes"}

// NoteLister pages through stored audit notes.
type NoteLister interface {
	List(ctx context.Context, query domain.AuditNoteQuery) ([]domain.AuditNote, error)
}

// SchemaLookup confirms that an entity kind exists.
type SchemaLookup interface {
	GetByName(ctx context.Context, organizationID uuid.UUID, name string) (domain.EntitySchema, error)
}

// Service renders the audit trail of an entity kind as a workbook.
type Service struct {
	notes    NoteLister
	schemas  SchemaLookup
	pageSize int
	now      func() time.Time
}

type Option func(*Service)

func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func NewService(notes NoteLister, schemas SchemaLookup, opts ...Option) *Service {
	s := &Service{
		notes:    notes,
		schemas:  schemas,
		pageSize: defaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WriteEntityTypeTrail writes every note of entityType, oldest first, as an
// XLSX workbook to w. It returns the number of note rows written.
func (s *Service) WriteEntityTypeTrail(ctx context.Context, organizationID uuid.UUID, entityType string, w io.Writer) (int, error) {
	entityType = strings.TrimSpace(entityType)
	if entityType == "" {
		return 0, fmt.Errorf("entity type is required")
	}
	if _, err := s.schemas.GetByName(ctx, organizationID, entityType); err != nil {
		return 0, fmt.Errorf("load schema %s: %w", entityType, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return 0, fmt.Errorf("name sheet: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return 0, fmt.Errorf("create cell style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return 0, fmt.Errorf("open stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, 1, 20); err != nil {
		return 0, err
	}
	if err := sw.SetColWidth(2, 4, 38); err != nil {
		return 0, err
	}
	if err := sw.SetColWidth(5, 5, 80); err != nil {
		return 0, err
	}
	if err := sw.SetRow("A1", styled(headers, headerStyle)); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	rowsExported := 0
	offset := 0
	for {
		if ctx.Err() != nil {
			return rowsExported, ctx.Err()
		}
		page, err := s.notes.List(ctx, domain.AuditNoteQuery{
			OrganizationID: organizationID,
			EntityType:     entityType,
			Limit:          s.pageSize,
			Offset:         offset,
		})
		if err != nil {
			return rowsExported, fmt.Errorf("list audit notes: %w", err)
		}

		for _, note := range page {
			cell, err := excelize.CoordinatesToCellName(1, rowsExported+2)
			if err != nil {
				return rowsExported, err
			}
			if err := sw.SetRow(cell, styled(noteRow(note), wrapStyle)); err != nil {
				return rowsExported, fmt.Errorf("write row %d: %w", rowsExported+2, err)
			}
			rowsExported++
		}

		if len(page) < s.pageSize {
			break
		}
		offset += len(page)
	}

	if err := sw.Flush(); err != nil {
		return rowsExported, fmt.Errorf("flush workbook: %w", err)
	}
	if err := f.Write(w); err != nil {
		return rowsExported, fmt.Errorf("write workbook: %w", err)
	}
	return rowsExported, nil
}

// FileName is the download name of an entity kind's trail.
func (s *Service) FileName(entityType string) string {
	return fmt.Sprintf("audit-%s-%s.xlsx", sanitizeFileComponent(entityType), s.now().UTC().Format("20060102"))
}

func noteRow(note domain.AuditNote) []any {
	author := note.AuthorName
	if author == "" {
		author = note.AuthorID
	}
	operation := ""
	if note.OperationID != uuid.Nil {
		operation = note.OperationID.String()
	}
	return []any{
		note.CreatedAt.UTC().Format(timestampLayout),
		note.EntityID.String(),
		author,
		operation,
		note.Body,
	}
}

func styled(values []any, styleID int) []any {
	cells := make([]any, len(values))
	for i, value := range values {
		cells[i] = excelize.Cell{StyleID: styleID, Value: value}
	}
	return cells
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "export"
	}
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '-' || r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	result := strings.Trim(builder.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}
