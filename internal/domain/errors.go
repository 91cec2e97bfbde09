package domain

import "errors"

// Sentinel errors for lookups.
var (
	ErrOrganizationNotFound          = errors.New("organization not found")
	ErrSchemaNotFound                = errors.New("entity schema not found")
	ErrEntityNotFound                = errors.New("entity not found")
	ErrTrackingConfigurationNotFound = errors.New("tracking configuration not found")
)

// Sentinel errors for constraint violations.
var (
	ErrDuplicateActiveConfiguration = errors.New("an active tracking configuration already exists for this entity type")
	ErrDuplicateSchema              = errors.New("entity schema already exists")
	ErrDuplicateOrganization        = errors.New("organization already exists")
	ErrInvalidTrackedField          = errors.New("invalid tracked field")
	ErrInvalidProperties            = errors.New("invalid entity properties")
)
