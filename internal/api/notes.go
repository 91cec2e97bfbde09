package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rpattn/fieldtrack/internal/auth"
	"github.com/rpattn/fieldtrack/internal/domain"
)

// listNotes returns audit notes, filtered by entity_id or entity_type.
func (s *server) listNotes(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	limit, offset, err := paging(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	query := domain.AuditNoteQuery{
		OrganizationID: organizationID,
		EntityType:     r.URL.Query().Get("entity_type"),
		Limit:          limit,
		Offset:         offset,
	}
	if raw := r.URL.Query().Get("entity_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.fail(w, r, badRequest("invalid entity_id: %v", err))
			return
		}
		query.EntityID = &id
	}

	notes, err := s.Notes.List(r.Context(), query)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if notes == nil {
		notes = []domain.AuditNote{}
	}
	writeJSON(w, http.StatusOK, notes)
}
