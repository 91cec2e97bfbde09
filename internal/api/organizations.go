package api

import (
	"net/http"

	"github.com/rpattn/fieldtrack/internal/auth"
	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/opscope"
)

// organizationScope binds the request to the tenant in the URL and opens the
// operation scope every write of the request shares.
func (s *server) organizationScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		organizationID, err := uuidParam(r, "orgID")
		if err != nil {
			s.fail(w, r, err)
			return
		}

		principal := auth.PrincipalFromRequest(r)
		ctx := auth.ContextWithOrganizationID(r.Context(), organizationID)
		scope := opscope.New(organizationID, opscope.Actor{
			ID:       principal.ID,
			Name:     principal.Name,
			Locale:   principal.Locale,
			TimeZone: principal.TimeZone,
		}, opscope.PhaseNormal)
		ctx = opscope.WithScope(ctx, scope)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type organizationPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.Organizations.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if orgs == nil {
		orgs = []domain.Organization{}
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (s *server) createOrganization(w http.ResponseWriter, r *http.Request) {
	var payload organizationPayload
	if err := decode(r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}
	org := domain.NewOrganization(payload.Name, payload.Description)
	if err := org.Validate(); err != nil {
		s.fail(w, r, badRequest("%v", err))
		return
	}
	created, err := s.Organizations.Create(r.Context(), org)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) getOrganization(w http.ResponseWriter, r *http.Request) {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	org, err := s.Organizations.GetByID(r.Context(), organizationID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}
