// Package opscope carries the state of one logical write operation: who is
// acting, which tenant it runs for, the lifecycle phase of the deployment, and
// a cache that lives exactly as long as the operation.
package opscope

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Phase is the lifecycle phase the operation runs in.
type Phase int

const (
	PhaseNormal Phase = iota
	PhaseInstall
	PhaseUpgrade
	PhaseUninstall
)

func (p Phase) String() string {
	switch p {
	case PhaseInstall:
		return "install"
	case PhaseUpgrade:
		return "upgrade"
	case PhaseUninstall:
		return "uninstall"
	default:
		return "normal"
	}
}

// Maintenance reports whether the phase is an install, upgrade or uninstall.
func (p Phase) Maintenance() bool {
	return p != PhaseNormal
}

// Actor identifies the user performing the operation. ID is the caller's
// own identifier and is not required to be a UUID.
type Actor struct {
	ID       string
	Name     string
	Locale   string
	TimeZone string
}

// CacheKey addresses one cached value. Namespace separates unrelated users of
// the cache.
type CacheKey struct {
	Namespace string
	Tenant    uuid.UUID
	Name      string
}

// Scope is created once per top-level operation and shared by nested calls.
type Scope struct {
	ID     uuid.UUID
	Tenant uuid.UUID
	Actor  Actor
	Phase  Phase

	mu    sync.Mutex
	cache map[CacheKey]any
}

// New starts a scope for a top-level operation.
func New(tenant uuid.UUID, actor Actor, phase Phase) *Scope {
	return &Scope{
		ID:     uuid.New(),
		Tenant: tenant,
		Actor:  actor,
		Phase:  phase,
		cache:  make(map[CacheKey]any),
	}
}

type contextKey string

const scopeKey contextKey = "operationScope"

// WithScope returns a context carrying the scope.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeKey, scope)
}

// FromContext returns the scope carried by ctx, if any.
func FromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	scope, ok := ctx.Value(scopeKey).(*Scope)
	return scope, ok && scope != nil
}

// Ensure returns the scope carried by ctx, starting an anonymous one when the
// caller did not open a scope.
func Ensure(ctx context.Context) (context.Context, *Scope) {
	if scope, ok := FromContext(ctx); ok {
		return ctx, scope
	}
	scope := New(uuid.Nil, Actor{}, PhaseNormal)
	return WithScope(ctx, scope), scope
}

// Lookup returns a cached value.
func (s *Scope) Lookup(key CacheKey) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.cache[key]
	return value, ok
}

// Store caches a value for the rest of the operation.
func (s *Scope) Store(key CacheKey, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		s.cache = make(map[CacheKey]any)
	}
	s.cache[key] = value
}

// Invalidate drops every cached value in a namespace.
func (s *Scope) Invalidate(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.cache {
		if key.Namespace == namespace {
			delete(s.cache, key)
		}
	}
}
