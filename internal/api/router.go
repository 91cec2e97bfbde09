// Package api exposes tenants, schemas, entities, tracking configurations and
// their audit notes over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/middleware"
	"github.com/rpattn/fieldtrack/internal/repository"
)

// EntityWriter runs writes through the mutation pipeline so interceptors see them.
type EntityWriter interface {
	Create(ctx context.Context, organizationID uuid.UUID, entityType string, values []map[string]any) ([]domain.Entity, error)
	Update(ctx context.Context, entities []domain.Entity, values map[string]any) (bool, error)
}

// CatalogInvalidator drops cached schema descriptors.
type CatalogInvalidator interface {
	Invalidate(organizationID uuid.UUID, entityType string)
}

// Deps are the collaborators of the router.
type Deps struct {
	Organizations repository.OrganizationRepository
	Schemas       repository.EntitySchemaRepository
	Entities      repository.EntityRepository
	Configs       repository.TrackingConfigurationRepository
	Notes         repository.AuditNoteRepository
	Writer        EntityWriter
	Catalog       CatalogInvalidator
	Export        http.Handler
	Metrics       http.Handler
	Logger        logrus.FieldLogger
	CORSOrigins   []string
}

type server struct {
	Deps
	log logrus.FieldLogger
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetLevel(logrus.PanicLevel)
		log = discard
	}
	s := &server{Deps: deps, log: log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer, middleware.LoggingMiddleware(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/orgs", func(r chi.Router) {
		r.Get("/", s.listOrganizations)
		r.Post("/", s.createOrganization)

		r.Route("/{orgID}", func(r chi.Router) {
			r.Use(s.organizationScope, middleware.DataLoaderMiddleware(deps.Entities))
			r.Get("/", s.getOrganization)

			r.Route("/schemas", func(r chi.Router) {
				r.Get("/", s.listSchemas)
				r.Post("/", s.createSchema)
				r.Get("/{kind}", s.getSchema)
				r.Put("/{kind}", s.updateSchema)
				r.Delete("/{kind}", s.deleteSchema)
				if deps.Export != nil {
					r.Method(http.MethodGet, "/{kind}/notes.xlsx", deps.Export)
				}
			})

			r.Route("/entities", func(r chi.Router) {
				r.Patch("/", s.updateEntities)
				r.Get("/{kind}", s.listEntities)
				r.Post("/{kind}", s.createEntities)
				r.Get("/{kind}/{entityID}", s.getEntity)
			})

			r.Route("/tracking-configs", func(r chi.Router) {
				r.Get("/", s.listConfigs)
				r.Post("/", s.createConfig)
				r.Get("/{configID}", s.getConfig)
				r.Put("/{configID}", s.updateConfig)
				r.Delete("/{configID}", s.deleteConfig)
			})

			r.Get("/notes", s.listNotes)
		})
	})

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})
	return corsHandler.Handler(r)
}
