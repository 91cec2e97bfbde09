// Package fieldkind models the closed set of semantic field kinds. Each kind
// carries its own normalization, equality and rendering rules, so callers never
// switch on raw type strings after a schema has been loaded.
package fieldkind

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/fieldtrack/internal/domain"
)

// Kind is implemented only by the kinds declared in this package.
type Kind interface {
	// Name is the stable identifier of the kind.
	Name() string
	// Trackable reports whether values of this kind may be audited.
	Trackable() bool
	// Normalize turns a stored value into its comparison form.
	Normalize(raw any) any
	// Equal compares two normalized values.
	Equal(a, b any) bool
	// Format renders a normalized, non-empty value for humans.
	Format(env Env, value any) (string, error)

	sealed()
}

// Env carries what rendering needs beyond the value itself.
type Env struct {
	Locale Locale
	Field  domain.FieldDefinition
	// Currency is the ISO code in effect for monetary values.
	Currency string
	// Names maps referenced entity ids to display names.
	Names map[string]string
}

// IDSet is the normalized form of a multi-reference value: sorted, unique ids.
type IDSet []string

type (
	Text         struct{}
	Boolean      struct{}
	Numeric      struct{}
	Date         struct{}
	DateTime     struct{}
	Currency     struct{}
	Reference    struct{}
	ReferenceSet struct{}
	Selection    struct{}
	Binary       struct{}
)

var kindsByType = map[string]Kind{
	"string":                 Text{},
	"text":                   Text{},
	"reference":              Text{},
	"json":                   Text{},
	"geometry":               Text{},
	"integer":                Numeric{},
	"float":                  Numeric{},
	"boolean":                Boolean{},
	"date":                   Date{},
	"timestamp":              DateTime{},
	"datetime":               DateTime{},
	"monetary":               Currency{},
	"selection":              Selection{},
	"entity_reference":       Reference{},
	"entity_reference_array": ReferenceSet{},
	"binary":                 Binary{},
	"file_reference":         Binary{},
	"timeseries":             Binary{},
}

// For maps a stored field type onto its semantic kind. Unknown types are
// treated as text.
func For(fieldType domain.FieldType) Kind {
	if kind, ok := kindsByType[strings.ToLower(string(fieldType))]; ok {
		return kind
	}
	return Text{}
}

// IsEmpty reports whether a normalized value should render as the empty placeholder.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case IDSet:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

// ReferenceIDs lists the entity ids a normalized value points at.
func ReferenceIDs(kind Kind, value any) []string {
	switch kind.(type) {
	case Reference:
		if id, ok := value.(string); ok && id != "" {
			return []string{id}
		}
	case ReferenceSet:
		if set, ok := value.(IDSet); ok {
			return []string(set)
		}
	}
	return nil
}

func (Text) Name() string { return "text" }
func (Text) Trackable() bool { return true }
func (Text) Normalize(raw any) any { return raw }
func (Text) Equal(a, b any) bool { return reflect.DeepEqual(a, b) }
func (Text) Format(_ Env, v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return Generic(v), nil
}
func (Text) sealed() {}

func (Boolean) Name() string { return "boolean" }
func (Boolean) Trackable() bool { return true }
func (Boolean) Normalize(raw any) any { return raw }
func (Boolean) Equal(a, b any) bool { return reflect.DeepEqual(a, b) }
func (Boolean) Format(env Env, v any) (string, error) {
	var flag bool
	switch typed := v.(type) {
	case bool:
		flag = typed
	case string:
		parsed, err := strconv.ParseBool(typed)
		if err != nil {
			return "", fmt.Errorf("boolean value %q: %w", typed, err)
		}
		flag = parsed
	default:
		return "", fmt.Errorf("unexpected boolean value %T", v)
	}
	if flag {
		return env.Locale.Yes(), nil
	}
	return env.Locale.No(), nil
}
func (Boolean) sealed() {}

func (Numeric) Name() string { return "numeric" }
func (Numeric) Trackable() bool { return true }
func (Numeric) Normalize(raw any) any {
	if f, ok := toFloat(raw); ok {
		return f
	}
	return raw
}
func (Numeric) Equal(a, b any) bool { return reflect.DeepEqual(a, b) }
func (Numeric) Format(env Env, v any) (string, error) {
	f, ok := v.(float64)
	if !ok {
		return "", fmt.Errorf("unexpected numeric value %T", v)
	}
	return env.Locale.sprintf("%.*f", fractionDigits(f), f), nil
}
func (Numeric) sealed() {}

// fractionDigits is the number of decimals needed to print f without loss.
func fractionDigits(f float64) int {
	if f == math.Trunc(f) {
		return 0
	}
	shortest := strconv.FormatFloat(f, 'f', -1, 64)
	if dot := strings.IndexByte(shortest, '.'); dot >= 0 {
		return len(shortest) - dot - 1
	}
	return 0
}

func (Date) Name() string { return "date" }
func (Date) Trackable() bool { return true }
func (Date) Normalize(raw any) any { return raw }
func (Date) Equal(a, b any) bool {
	ta, okA := parseTime(a)
	tb, okB := parseTime(b)
	if okA && okB {
		ya, ma, da := ta.Date()
		yb, mb, db := tb.Date()
		return ya == yb && ma == mb && da == db
	}
	return reflect.DeepEqual(a, b)
}
func (Date) Format(env Env, v any) (string, error) {
	t, ok := parseTime(v)
	if !ok {
		return "", fmt.Errorf("unparseable date %v", v)
	}
	// Calendar dates carry no zone; render them as stored.
	return t.Format(env.Locale.formats().date), nil
}
func (Date) sealed() {}

func (DateTime) Name() string { return "datetime" }
func (DateTime) Trackable() bool { return true }
func (DateTime) Normalize(raw any) any { return raw }
func (DateTime) Equal(a, b any) bool {
	ta, okA := parseTime(a)
	tb, okB := parseTime(b)
	if okA && okB {
		return ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}
func (DateTime) Format(env Env, v any) (string, error) {
	t, ok := parseTime(v)
	if !ok {
		return "", fmt.Errorf("unparseable datetime %v", v)
	}
	return t.In(env.Locale.Location()).Format(env.Locale.formats().dateTime), nil
}
func (DateTime) sealed() {}

func (Currency) Name() string { return "currency" }
func (Currency) Trackable() bool { return true }
func (Currency) Normalize(raw any) any {
	if f, ok := toFloat(raw); ok {
		return f
	}
	return raw
}
func (Currency) Equal(a, b any) bool { return reflect.DeepEqual(a, b) }
func (Currency) Format(env Env, v any) (string, error) {
	amount, ok := v.(float64)
	if !ok {
		return "", fmt.Errorf("unexpected monetary value %T", v)
	}
	return env.Locale.Money(amount, env.Currency), nil
}
func (Currency) sealed() {}

func (Reference) Name() string { return "reference" }
func (Reference) Trackable() bool { return true }
func (Reference) Normalize(raw any) any {
	id := referenceID(raw)
	if id == "" {
		return nil
	}
	return id
}
func (Reference) Equal(a, b any) bool { return a == b }
func (Reference) Format(env Env, v any) (string, error) {
	id, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected reference value %T", v)
	}
	return displayName(env, id), nil
}
func (Reference) sealed() {}

func (ReferenceSet) Name() string { return "reference_set" }
func (ReferenceSet) Trackable() bool { return true }
func (ReferenceSet) Normalize(raw any) any {
	var ids []string
	switch typed := raw.(type) {
	case nil:
	case IDSet:
		ids = append(ids, typed...)
	case []string:
		ids = append(ids, typed...)
	case []uuid.UUID:
		for _, id := range typed {
			ids = append(ids, id.String())
		}
	case []any:
		for _, item := range typed {
			ids = append(ids, referenceID(item))
		}
	default:
		ids = append(ids, referenceID(typed))
	}
	return newIDSet(ids)
}
func (ReferenceSet) Equal(a, b any) bool {
	sa, okA := a.(IDSet)
	sb, okB := b.(IDSet)
	if !okA || !okB {
		return reflect.DeepEqual(a, b)
	}
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
func (ReferenceSet) Format(env Env, v any) (string, error) {
	set, ok := v.(IDSet)
	if !ok {
		return "", fmt.Errorf("unexpected reference set value %T", v)
	}
	names := make([]string, 0, len(set))
	for _, id := range set {
		names = append(names, displayName(env, id))
	}
	sort.Strings(names)
	return strings.Join(names, ", "), nil
}
func (ReferenceSet) sealed() {}

func (Selection) Name() string { return "selection" }
func (Selection) Trackable() bool { return true }
func (Selection) Normalize(raw any) any { return raw }
func (Selection) Equal(a, b any) bool { return reflect.DeepEqual(a, b) }
func (Selection) Format(env Env, v any) (string, error) {
	code := fmt.Sprint(v)
	if label, ok := env.Field.OptionLabel(code); ok {
		return label, nil
	}
	return code, nil
}
func (Selection) sealed() {}

func (Binary) Name() string { return "binary" }
func (Binary) Trackable() bool { return false }
func (Binary) Normalize(any) any { return nil }
func (Binary) Equal(_, _ any) bool { return true }
func (Binary) Format(Env, any) (string, error) {
	return "", fmt.Errorf("binary values are not rendered")
}
func (Binary) sealed() {}

// Generic renders any value without kind knowledge. It is the fallback when a
// kind-specific rendering fails.
func Generic(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case IDSet:
		return strings.Join(v, ", ")
	case []byte:
		return string(v)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func displayName(env Env, id string) string {
	if name, ok := env.Names[id]; ok && name != "" {
		return name
	}
	return id
}

func referenceID(raw any) string {
	switch typed := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(typed))
	case uuid.UUID:
		if typed == uuid.Nil {
			return ""
		}
		return typed.String()
	case map[string]any:
		return referenceID(typed["id"])
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(typed)))
	}
}

func newIDSet(ids []string) IDSet {
	seen := make(map[string]struct{}, len(ids))
	set := make(IDSet, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		set = append(set, id)
	}
	sort.Strings(set)
	return set
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		trimmed := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
