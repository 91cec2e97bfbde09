package tracking

import "strings"

// ExcludedKinds are technical entity kinds that are never instrumented, even
// when a configuration for them exists.
var ExcludedKinds = map[string]struct{}{
	"organization":           {},
	"entity_schema":          {},
	"entity_field":           {},
	"tracking_configuration": {},
	"audit_note":             {},
	"activity":               {},
	"ingestion_log":          {},
	"ingest_batch":           {},
	"entity_join":            {},
	"entity_transformation":  {},
	"export_job":             {},
	"automation_rule":        {},
	"scheduled_action":       {},
	"system_parameter":       {},
	"migration":              {},
}

// IsExcludedKind reports whether the kind is in ExcludedKinds. The comparison
// ignores case.
func IsExcludedKind(entityType string) bool {
	_, ok := ExcludedKinds[strings.ToLower(strings.TrimSpace(entityType))]
	return ok
}
