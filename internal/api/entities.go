package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rpattn/fieldtrack/internal/auth"
	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/schema/validator"
)

type createEntitiesPayload struct {
	Records []map[string]any `json:"records"`
}

type updateEntitiesPayload struct {
	IDs    []uuid.UUID    `json:"ids"`
	Values map[string]any `json:"values"`
}

func (s *server) createEntities(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	kind := chi.URLParam(r, "kind")
	schema, err := s.Schemas.GetByName(r.Context(), organizationID, kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var payload createEntitiesPayload
	if err := decode(r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(payload.Records) == 0 {
		s.fail(w, r, badRequest("records must not be empty"))
		return
	}
	for i, record := range payload.Records {
		if err := validator.ValidateProperties(schema, record, false); err != nil {
			s.fail(w, r, fmt.Errorf("record %d: %w", i, err))
			return
		}
	}

	created, err := s.Writer.Create(r.Context(), organizationID, kind, payload.Records)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) listEntities(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	limit, offset, err := paging(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entities, err := s.Entities.ListByType(r.Context(), organizationID, chi.URLParam(r, "kind"), limit, offset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entities == nil {
		entities = []domain.Entity{}
	}
	writeJSON(w, http.StatusOK, entities)
}

func (s *server) getEntity(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "entityID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entity, err := s.Entities.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if auth.EnforceOrganizationScope(r.Context(), entity.OrganizationID) != nil || entity.EntityType != chi.URLParam(r, "kind") {
		s.fail(w, r, domain.ErrEntityNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

// updateEntities applies one set of values to several records, possibly of
// different kinds, in a single write.
func (s *server) updateEntities(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	var payload updateEntitiesPayload
	if err := decode(r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(payload.IDs) == 0 {
		s.fail(w, r, badRequest("ids must not be empty"))
		return
	}
	seen := make(map[uuid.UUID]struct{}, len(payload.IDs))
	for _, id := range payload.IDs {
		if _, dup := seen[id]; dup {
			s.fail(w, r, badRequest("entity %s is listed more than once", id))
			return
		}
		seen[id] = struct{}{}
	}

	entities, err := s.loadOwned(r, payload.IDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.validateValues(r, organizationID, entities, payload.Values); err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.Writer.Update(r.Context(), entities, payload.Values); err != nil {
		s.fail(w, r, err)
		return
	}

	updated, err := s.loadOwned(r, payload.IDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// validateValues checks the values once against every kind being written.
func (s *server) validateValues(r *http.Request, organizationID uuid.UUID, entities []domain.Entity, values map[string]any) error {
	checked := make(map[string]struct{})
	for _, entity := range entities {
		if _, done := checked[entity.EntityType]; done {
			continue
		}
		checked[entity.EntityType] = struct{}{}

		schema, err := s.Schemas.GetByName(r.Context(), organizationID, entity.EntityType)
		if err != nil {
			return err
		}
		if err := validator.ValidateProperties(schema, values, true); err != nil {
			return fmt.Errorf("%s: %w", entity.EntityType, err)
		}
	}
	return nil
}

// loadOwned returns the records in the order of ids, failing when any of them
// is missing or belongs to another tenant.
func (s *server) loadOwned(r *http.Request, ids []uuid.UUID) ([]domain.Entity, error) {
	found, err := s.Entities.GetByIDs(r.Context(), ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Entity, len(found))
	for _, entity := range found {
		byID[entity.ID] = entity
	}

	entities := make([]domain.Entity, 0, len(ids))
	for _, id := range ids {
		entity, ok := byID[id]
		if !ok || auth.EnforceOrganizationScope(r.Context(), entity.OrganizationID) != nil {
			return nil, fmt.Errorf("entity %s: %w", id, domain.ErrEntityNotFound)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
