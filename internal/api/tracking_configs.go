package api

import (
	"net/http"
	"strings"

	"github.com/rpattn/fieldtrack/internal/auth"
	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/schema/validator"
	"github.com/rpattn/fieldtrack/internal/tracking"
)

// configPayload carries optional fields so updates only touch what is sent.
type configPayload struct {
	EntityType            *string   `json:"entity_type"`
	FieldNames            *[]string `json:"field_names"`
	ShowOldValues         *bool     `json:"show_old_values"`
	ShowNewValues         *bool     `json:"show_new_values"`
	GroupChangesPerRecord *bool     `json:"group_changes_per_record"`
	ExcludeNoOpChanges    *bool     `json:"exclude_no_op_changes"`
	TrackOnCreate         *bool     `json:"track_on_create"`
	Active                *bool     `json:"active"`
}

func (p configPayload) applyFlags(cfg domain.TrackingConfiguration) domain.TrackingConfiguration {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&cfg.ShowOldValues, p.ShowOldValues)
	set(&cfg.ShowNewValues, p.ShowNewValues)
	set(&cfg.GroupChangesPerRecord, p.GroupChangesPerRecord)
	set(&cfg.ExcludeNoOpChanges, p.ExcludeNoOpChanges)
	set(&cfg.TrackOnCreate, p.TrackOnCreate)
	set(&cfg.Active, p.Active)
	return cfg
}

func (s *server) listConfigs(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	configs, err := s.Configs.List(r.Context(), organizationID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if configs == nil {
		configs = []domain.TrackingConfiguration{}
	}
	writeJSON(w, http.StatusOK, configs)
}

func (s *server) createConfig(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	var payload configPayload
	if err := decode(r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}
	if payload.EntityType == nil || strings.TrimSpace(*payload.EntityType) == "" {
		s.fail(w, r, badRequest("entity_type is required"))
		return
	}

	schema, err := s.Schemas.GetByName(r.Context(), organizationID, strings.TrimSpace(*payload.EntityType))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var names []string
	if payload.FieldNames != nil {
		names = *payload.FieldNames
	}
	if err := validator.ValidateTrackedFields(schema, names); err != nil {
		s.fail(w, r, err)
		return
	}

	cfg := payload.applyFlags(domain.NewTrackingConfiguration(organizationID, schema, names))
	created, err := s.Configs.Create(r.Context(), cfg)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tracking.ForgetConfigurations(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) loadConfig(r *http.Request) (domain.TrackingConfiguration, error) {
	id, err := uuidParam(r, "configID")
	if err != nil {
		return domain.TrackingConfiguration{}, err
	}
	cfg, err := s.Configs.GetByID(r.Context(), id)
	if err != nil {
		return domain.TrackingConfiguration{}, err
	}
	if err := auth.EnforceOrganizationScope(r.Context(), cfg.OrganizationID); err != nil {
		return domain.TrackingConfiguration{}, domain.ErrTrackingConfigurationNotFound
	}
	return cfg, nil
}

func (s *server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.loadConfig(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// updateConfig applies the sent fields. Moving a configuration to another
// kind clears its watched fields unless new ones are sent with it.
func (s *server) updateConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.loadConfig(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var payload configPayload
	if err := decode(r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}

	entityType := cfg.EntityType
	if payload.EntityType != nil && strings.TrimSpace(*payload.EntityType) != "" {
		entityType = strings.TrimSpace(*payload.EntityType)
	}
	schema, err := s.Schemas.GetByName(r.Context(), cfg.OrganizationID, entityType)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	updated := cfg.WithEntityType(schema)
	if payload.FieldNames != nil {
		updated = updated.WithFieldNames(*payload.FieldNames)
	}
	if err := validator.ValidateTrackedFields(schema, updated.FieldNames); err != nil {
		s.fail(w, r, err)
		return
	}
	updated = payload.applyFlags(updated)

	saved, err := s.Configs.Update(r.Context(), updated)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tracking.ForgetConfigurations(r.Context())
	writeJSON(w, http.StatusOK, saved)
}

func (s *server) deleteConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.loadConfig(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Configs.Delete(r.Context(), cfg.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	tracking.ForgetConfigurations(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
