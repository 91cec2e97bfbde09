package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const organizationIDKey contextKey = "organizationID"

// ErrOutsideOrganizationScope is returned when a record belongs to another
// organization than the authenticated one.
var ErrOutsideOrganizationScope = errors.New("organization outside authenticated scope")

// Request headers identifying the caller.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
	HeaderTimeZone  = "X-Timezone"
)

// Principal is the user on whose behalf a request runs.
type Principal struct {
	ID       string
	Name     string
	Locale   string
	TimeZone string
}

// Anonymous reports whether the request carried no actor id.
func (p Principal) Anonymous() bool {
	return p.ID == ""
}

// PrincipalFromRequest reads the caller from request headers. Locale is the
// raw Accept-Language value; matching happens where notes are rendered.
func PrincipalFromRequest(r *http.Request) Principal {
	return Principal{
		ID:       strings.TrimSpace(r.Header.Get(HeaderActorID)),
		Name:     strings.TrimSpace(r.Header.Get(HeaderActorName)),
		Locale:   strings.TrimSpace(r.Header.Get("Accept-Language")),
		TimeZone: strings.TrimSpace(r.Header.Get(HeaderTimeZone)),
	}
}

// ContextWithOrganizationID returns a new context that carries the authenticated organization scope.
func ContextWithOrganizationID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, organizationIDKey, id)
}

// OrganizationIDFromContext retrieves the authenticated organization scope from the context, if any.
func OrganizationIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(organizationIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// EnforceOrganizationScope ensures the provided organization matches the authenticated scope when present.
func EnforceOrganizationScope(ctx context.Context, organizationID uuid.UUID) error {
	if organizationID == uuid.Nil {
		return fmt.Errorf("organizationId is required")
	}
	scopedID, ok := OrganizationIDFromContext(ctx)
	if !ok {
		return nil
	}
	if scopedID != organizationID {
		return fmt.Errorf("organizationId %s: %w", organizationID, ErrOutsideOrganizationScope)
	}
	return nil
}
