package tracking

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/opscope"
)

const configCacheNamespace = "tracking.config"

// ConfigFinder reads active configurations from their store. It returns
// (nil, nil) when no active configuration exists.
type ConfigFinder interface {
	FindActive(ctx context.Context, organizationID uuid.UUID, entityType string) (*domain.TrackingConfiguration, error)
}

// Resolver looks up the active configuration of a (tenant, kind) pair and
// remembers the answer for the rest of the operation.
type Resolver struct {
	finder  ConfigFinder
	log     logrus.FieldLogger
	metrics *Metrics
}

func NewResolver(finder ConfigFinder, log logrus.FieldLogger, metrics *Metrics) *Resolver {
	return &Resolver{finder: finder, log: orDiscard(log), metrics: metrics}
}

// ForgetConfigurations drops the configurations resolved so far in the
// operation carried by ctx, so the next write reads them again.
func ForgetConfigurations(ctx context.Context) {
	if scope, ok := opscope.FromContext(ctx); ok {
		scope.Invalidate(configCacheNamespace)
	}
}

// Resolve returns the active configuration, or false when tracking is off for
// the pair. Store failures count as "no configuration".
func (r *Resolver) Resolve(ctx context.Context, organizationID uuid.UUID, entityType string) (*domain.TrackingConfiguration, bool) {
	ctx, scope := opscope.Ensure(ctx)
	key := opscope.CacheKey{Namespace: configCacheNamespace, Tenant: organizationID, Name: entityType}

	if cached, ok := scope.Lookup(key); ok {
		r.metrics.lookup("cached")
		cfg, _ := cached.(*domain.TrackingConfiguration)
		return cfg, cfg != nil
	}

	cfg, err := r.finder.FindActive(ctx, organizationID, entityType)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"organization_id": organizationID,
			"entity_type":     entityType,
			"error":           err,
		}).Debug("tracking configuration lookup failed")
		r.metrics.lookup("error")
		cfg = nil
	} else if cfg == nil || !cfg.Active {
		r.metrics.lookup("miss")
		cfg = nil
	} else {
		r.metrics.lookup("hit")
	}

	scope.Store(key, cfg)
	return cfg, cfg != nil
}
