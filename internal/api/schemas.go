package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rpattn/fieldtrack/internal/auth"
	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/schema/validator"
)

type schemaPayload struct {
	Name         string                   `json:"name"`
	Description  string                   `json:"description"`
	Fields       []domain.FieldDefinition `json:"fields"`
	ActivityFeed *bool                    `json:"activity_feed"`
}

func (s *server) listSchemas(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	schemas, err := s.Schemas.List(r.Context(), organizationID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if schemas == nil {
		schemas = []domain.EntitySchema{}
	}
	writeJSON(w, http.StatusOK, schemas)
}

func (s *server) createSchema(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	var payload schemaPayload
	if err := decode(r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		s.fail(w, r, badRequest("schema name is required"))
		return
	}
	if err := validator.ValidateFields(payload.Fields); err != nil {
		s.fail(w, r, badRequest("%v", err))
		return
	}

	schema := domain.NewEntitySchema(organizationID, name, payload.Description, payload.Fields)
	if payload.ActivityFeed != nil {
		schema = schema.WithActivityFeed(*payload.ActivityFeed)
	}
	created, err := s.Schemas.Create(r.Context(), schema)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) getSchema(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	schema, err := s.Schemas.GetByName(r.Context(), organizationID, chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// updateSchema replaces fields and flags. Tracking configurations of the
// schema follow a rename and drop fields that disappeared.
func (s *server) updateSchema(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	kind := chi.URLParam(r, "kind")
	existing, err := s.Schemas.GetByName(r.Context(), organizationID, kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var payload schemaPayload
	if err := decode(r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validator.ValidateFields(payload.Fields); err != nil {
		s.fail(w, r, badRequest("%v", err))
		return
	}

	updated := existing
	if name := strings.TrimSpace(payload.Name); name != "" {
		updated.Name = name
	}
	updated.Description = payload.Description
	updated.Fields = payload.Fields
	if payload.ActivityFeed != nil {
		updated = updated.WithActivityFeed(*payload.ActivityFeed)
	}

	saved, err := s.Schemas.Update(r.Context(), updated)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.invalidate(existing, saved)
	writeJSON(w, http.StatusOK, saved)
}

func (s *server) deleteSchema(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	existing, err := s.Schemas.GetByName(r.Context(), organizationID, chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Schemas.Delete(r.Context(), existing.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.invalidate(existing)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) invalidate(schemas ...domain.EntitySchema) {
	if s.Catalog == nil {
		return
	}
	for _, schema := range schemas {
		s.Catalog.Invalidate(schema.OrganizationID, schema.Name)
	}
}
