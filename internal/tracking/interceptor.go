// Package tracking records field-level change notes around entity writes.
// The Interceptor plugs into the mutation pipeline and never changes the
// outcome of the write it wraps.
package tracking

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rpattn/fieldtrack/internal/catalog"
	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/fieldkind"
	"github.com/rpattn/fieldtrack/internal/mutation"
	"github.com/rpattn/fieldtrack/internal/opscope"
)

// EntityReader loads the stored state of entities.
type EntityReader interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Entity, error)
}

// Describer resolves the catalog descriptor of an entity kind.
type Describer interface {
	Describe(ctx context.Context, organizationID uuid.UUID, entityType string) (catalog.Descriptor, error)
}

// Options wires the Interceptor's collaborators.
type Options struct {
	Finder  ConfigFinder
	Catalog Describer
	Reader  EntityReader
	Names   NameResolver
	Poster  NotePoster
	Logger  logrus.FieldLogger
	Metrics *Metrics

	// DiffWorkers bounds per-entity diffing of one write. Defaults to GOMAXPROCS.
	DiffWorkers     int
	DefaultLocale   string
	DefaultTimeZone string
}

// Interceptor audits watched field changes of create and update calls.
type Interceptor struct {
	resolver *Resolver
	catalog  Describer
	reader   EntityReader
	builder  *Builder
	emitter  *Emitter
	log      logrus.FieldLogger
	metrics  *Metrics

	workers         int
	defaultLocale   string
	defaultTimeZone string
}

var _ mutation.Interceptor = (*Interceptor)(nil)

func NewInterceptor(opts Options) *Interceptor {
	log := orDiscard(opts.Logger)
	workers := opts.DiffWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Interceptor{
		resolver:        NewResolver(opts.Finder, log, opts.Metrics),
		catalog:         opts.Catalog,
		reader:          opts.Reader,
		builder:         NewBuilder(opts.Names, log),
		emitter:         NewEmitter(opts.Poster, log, opts.Metrics),
		log:             log,
		metrics:         opts.Metrics,
		workers:         workers,
		defaultLocale:   opts.DefaultLocale,
		defaultTimeZone: opts.DefaultTimeZone,
	}
}

// plan is the outcome of a passed guard chain for one (tenant, kind) group.
type plan struct {
	organizationID uuid.UUID
	entityType     string
	config         domain.TrackingConfiguration
	fields         []catalog.FieldDescriptor
	entities       []domain.Entity
}

// InterceptCreate tracks the supplied values of new entities when the
// configuration asks for it.
func (i *Interceptor) InterceptCreate(ctx context.Context, req mutation.CreateRequest, next mutation.CreateHandler) ([]domain.Entity, error) {
	ctx, scope := opscope.Ensure(ctx)

	var p *plan
	i.safely(ctx, "plan create", func() {
		organizationID := req.OrganizationID
		if organizationID == uuid.Nil {
			organizationID = scope.Tenant
		}
		p = i.plan(ctx, scope, organizationID, req.EntityType, true)
	})

	created, err := next(ctx, req)
	if err != nil || p == nil {
		return created, err
	}

	i.safely(ctx, "track create", func() {
		i.trackCreate(ctx, scope, *p, req, created)
	})
	return created, err
}

// InterceptUpdate snapshots watched fields around the write and posts the
// differences once it succeeded.
func (i *Interceptor) InterceptUpdate(ctx context.Context, req mutation.UpdateRequest, next mutation.UpdateHandler) (bool, error) {
	ctx, scope := opscope.Ensure(ctx)

	var plans []plan
	before := map[uuid.UUID]Snapshot{}
	i.safely(ctx, "snapshot before update", func() {
		plans = i.planUpdate(ctx, scope, req.Entities)
		if len(plans) == 0 {
			return
		}
		captured, ok := i.snapshot(ctx, plans, Before)
		if !ok {
			plans = nil
			return
		}
		before = captured
	})

	ok, err := next(ctx, req)
	if err != nil || !ok || len(plans) == 0 {
		return ok, err
	}

	i.safely(ctx, "track update", func() {
		after, captured := i.snapshot(ctx, plans, After)
		if !captured {
			return
		}
		for _, p := range plans {
			changes := i.diffAll(ctx, scope, p, before, after)
			i.emitter.Emit(ctx, p.config, changes)
		}
	})
	return ok, err
}

// planUpdate splits the entities by (tenant, kind), keeping input order, and
// runs the guard chain once per group. An entity listed more than once is
// planned once, at its first position.
func (i *Interceptor) planUpdate(ctx context.Context, scope *opscope.Scope, entities []domain.Entity) []plan {
	type groupKey struct {
		organizationID uuid.UUID
		entityType     string
	}
	var order []groupKey
	groups := map[groupKey][]domain.Entity{}
	seen := make(map[uuid.UUID]struct{}, len(entities))
	for _, entity := range entities {
		if _, dup := seen[entity.ID]; dup {
			continue
		}
		seen[entity.ID] = struct{}{}
		organizationID := entity.OrganizationID
		if organizationID == uuid.Nil {
			organizationID = scope.Tenant
		}
		key := groupKey{organizationID: organizationID, entityType: entity.EntityType}
		if _, known := groups[key]; !known {
			order = append(order, key)
		}
		groups[key] = append(groups[key], entity)
	}

	var plans []plan
	for _, key := range order {
		p := i.plan(ctx, scope, key.organizationID, key.entityType, false)
		if p == nil {
			continue
		}
		p.entities = groups[key]
		plans = append(plans, *p)
	}
	return plans
}

// plan evaluates the guard chain. It returns nil when the write should pass
// through untracked.
func (i *Interceptor) plan(ctx context.Context, scope *opscope.Scope, organizationID uuid.UUID, entityType string, creating bool) *plan {
	if IsExcludedKind(entityType) {
		return i.skip(SkipExcludedKind, entityType)
	}
	if scope.Phase.Maintenance() {
		return i.skip(SkipMaintenance, entityType)
	}

	cfg, ok := i.resolver.Resolve(ctx, organizationID, entityType)
	if !ok {
		return i.skip(SkipNoConfig, entityType)
	}
	if creating && !cfg.TrackOnCreate {
		return i.skip(SkipCreateDisabled, entityType)
	}
	if !cfg.RendersValues() || (creating && !cfg.ShowNewValues) {
		return i.skip(SkipHiddenValues, entityType)
	}

	descriptor, err := i.catalog.Describe(ctx, organizationID, entityType)
	if err != nil {
		i.log.WithFields(logrus.Fields{"entity_type": entityType, "error": err}).Debug("entity type not in catalog")
		return i.skip(SkipUnknownKind, entityType)
	}
	if !descriptor.HasActivityFeed() {
		return i.skip(SkipNoActivityFeed, entityType)
	}

	fields := descriptor.Watched(cfg.FieldNames)
	if len(fields) == 0 {
		return i.skip(SkipNoFields, entityType)
	}

	return &plan{
		organizationID: organizationID,
		entityType:     entityType,
		config:         *cfg,
		fields:         fields,
	}
}

func (i *Interceptor) skip(reason, entityType string) *plan {
	i.metrics.skipped(reason)
	i.log.WithFields(logrus.Fields{"entity_type": entityType, "reason": reason}).Debug("change tracking skipped")
	return nil
}

// snapshot reads the stored state of every planned entity. Entities missing
// from the store are left out.
func (i *Interceptor) snapshot(ctx context.Context, plans []plan, instant Instant) (map[uuid.UUID]Snapshot, bool) {
	out := map[uuid.UUID]Snapshot{}
	for _, p := range plans {
		ids := make([]uuid.UUID, len(p.entities))
		for idx, entity := range p.entities {
			ids[idx] = entity.ID
		}
		stored, err := i.reader.GetByIDs(ctx, ids)
		if err != nil {
			i.log.WithFields(logrus.Fields{
				"entity_type": p.entityType,
				"instant":     instant.String(),
				"error":       err,
			}).Warn("failed to load entities for change tracking")
			return nil, false
		}
		for id, snap := range Capture(stored, p.fields, instant) {
			out[id] = snap
		}
	}
	return out, true
}

// diffAll diffs every entity of a plan on a bounded worker group. Results
// keep the input order.
func (i *Interceptor) diffAll(ctx context.Context, scope *opscope.Scope, p plan, before, after map[uuid.UUID]Snapshot) []EntityChanges {
	locale := i.locale(scope)
	changes := make([]EntityChanges, len(p.entities))

	var g errgroup.Group
	g.SetLimit(i.workers)
	for idx, entity := range p.entities {
		idx, entity := idx, entity
		changes[idx].Entity = entity
		beforeSnap, okBefore := before[entity.ID]
		afterSnap, okAfter := after[entity.ID]
		if !okBefore || !okAfter {
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("diff of entity %s panicked: %v", entity.ID, r)
				}
			}()
			changes[idx].Lines = i.builder.Diff(ctx, DiffRequest{
				Before: beforeSnap,
				After:  afterSnap,
				Config: p.config,
				Fields: p.fields,
				Locale: locale,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		i.log.WithFields(logrus.Fields{"entity_type": p.entityType, "error": err}).Error("change diff failed")
	}

	for _, change := range changes {
		i.metrics.lines(len(change.Lines))
	}
	return changes
}

func (i *Interceptor) trackCreate(ctx context.Context, scope *opscope.Scope, p plan, req mutation.CreateRequest, created []domain.Entity) {
	locale := i.locale(scope)
	changes := make([]EntityChanges, 0, len(created))
	for idx, entity := range created {
		var supplied map[string]any
		if idx < len(req.Values) {
			supplied = req.Values[idx]
		}
		lines := i.builder.Diff(ctx, DiffRequest{
			After:    CaptureSupplied(entity, supplied, p.fields),
			Config:   p.config,
			Fields:   p.fields,
			Locale:   locale,
			Creation: true,
		})
		i.metrics.lines(len(lines))
		changes = append(changes, EntityChanges{Entity: entity, Lines: lines})
	}
	i.emitter.Emit(ctx, p.config, changes)
}

func (i *Interceptor) locale(scope *opscope.Scope) fieldkind.Locale {
	tag := scope.Actor.Locale
	if tag == "" {
		tag = i.defaultLocale
	}
	zone := scope.Actor.TimeZone
	if zone == "" {
		zone = i.defaultTimeZone
	}
	return fieldkind.NewLocale(tag, zone)
}

// safely runs tracking work, turning a panic into a logged error so the
// wrapped write is unaffected.
func (i *Interceptor) safely(ctx context.Context, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			fields := logrus.Fields{"stage": stage, "panic": r}
			if scope, ok := opscope.FromContext(ctx); ok {
				fields["operation_id"] = scope.ID
			}
			i.log.WithFields(fields).Error("change tracking panicked")
		}
	}()
	fn()
}

func orDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return discard
}
