package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/fieldtrack/internal/activity"
	"github.com/rpattn/fieldtrack/internal/catalog"
	"github.com/rpattn/fieldtrack/internal/domain"
	"github.com/rpattn/fieldtrack/internal/entityloader"
	"github.com/rpattn/fieldtrack/internal/export"
	"github.com/rpattn/fieldtrack/internal/mutation"
	"github.com/rpattn/fieldtrack/internal/tracking"
)

type testServer struct {
	t       *testing.T
	db      *memoryDB
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := newMemoryDB()
	registry := prometheus.NewRegistry()

	schemas := memorySchemas{db}
	entities := memoryEntities{db}
	notes := memoryNotes{db}
	cat := catalog.New(schemas, 0, 0)

	interceptor := tracking.NewInterceptor(tracking.Options{
		Finder:  memoryConfigs{db},
		Catalog: cat,
		Reader:  entities,
		Names:   entityloader.NewNameResolver(entities),
		Poster:  activity.NewFeed(notes, nil, nil),
		Metrics: tracking.NewMetrics(registry),
	})

	handler := NewRouter(Deps{
		Organizations: memoryOrgs{db},
		Schemas:       schemas,
		Entities:      entities,
		Configs:       memoryConfigs{db},
		Notes:         notes,
		Writer:        mutation.NewPipeline(entities, interceptor),
		Catalog:       cat,
		Export:        export.NewHTTPHandler(export.NewService(notes, schemas)),
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})
	return &testServer{t: t, db: db, handler: handler}
}

func (s *testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// seedOrder creates an organization with an order schema and returns its base path.
func (s *testServer) seedOrder() string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/orgs", map[string]any{"name": "Acme"}, nil)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	org := decodeInto[domain.Organization](s.t, rec)
	base := "/orgs/" + org.ID.String()

	rec = s.do(http.MethodPost, base+"/schemas", map[string]any{
		"name": "order",
		"fields": []map[string]any{
			{"name": "name", "type": "string"},
			{"name": "status", "type": "selection", "options": []map[string]string{
				{"value": "draft", "label": "Draft"},
				{"value": "confirmed", "label": "Confirmed"},
			}},
			{"name": "amount", "type": "monetary"},
			{"name": "currency", "type": "string"},
			{"name": "attachment", "type": "binary"},
		},
	}, nil)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return base
}

func TestFieldChangesProduceNotes(t *testing.T) {
	s := newTestServer(t)
	base := s.seedOrder()

	rec := s.do(http.MethodPost, base+"/tracking-configs", map[string]any{
		"entity_type": "order",
		"field_names": []string{"status", "amount"},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, base+"/entities/order", map[string]any{
		"records": []map[string]any{{"name": "A-1", "status": "draft", "amount": 100, "currency": "USD"}},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeInto[[]domain.Entity](t, rec)
	require.Len(t, created, 1)
	entityID := created[0].ID

	rec = s.do(http.MethodGet, base+"/notes?entity_id="+entityID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeInto[[]domain.AuditNote](t, rec), "creation is not tracked by default")

	rec = s.do(http.MethodPatch, base+"/entities", map[string]any{
		"ids":    []uuid.UUID{entityID},
		"values": map[string]any{"status": "confirmed", "amount": 150},
	}, map[string]string{"X-Actor-ID": "u-1", "X-Actor-Name": "Ada"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeInto[[]domain.Entity](t, rec)
	require.Len(t, updated, 1)
	assert.Equal(t, "confirmed", updated[0].Properties["status"])

	rec = s.do(http.MethodGet, base+"/notes?entity_id="+entityID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decodeInto[[]domain.AuditNote](t, rec)
	require.Len(t, notes, 1)
	assert.Equal(t, "• Status — Draft → Confirmed\n• Amount — $100.00 → $150.00", notes[0].Body)
	assert.Equal(t, "u-1", notes[0].AuthorID)
	assert.Equal(t, "Ada", notes[0].AuthorName)
	assert.NotEqual(t, uuid.Nil, notes[0].OperationID)

	rec = s.do(http.MethodPatch, base+"/entities", map[string]any{
		"ids":    []uuid.UUID{entityID},
		"values": map[string]any{"status": "confirmed", "name": "A-2"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, base+"/notes?entity_type=order", nil, nil)
	assert.Len(t, decodeInto[[]domain.AuditNote](t, rec), 1, "unwatched and unchanged fields post nothing")

	rec = s.do(http.MethodGet, base+"/schemas/order/notes.xlsx", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Row-Count"))

	rec = s.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fieldtrack_notes_posted_total 1")
}

func TestLocalizedNotesFollowTheActor(t *testing.T) {
	s := newTestServer(t)
	base := s.seedOrder()

	rec := s.do(http.MethodPost, base+"/tracking-configs", map[string]any{
		"entity_type":     "order",
		"field_names":     []string{"amount"},
		"show_old_values": false,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, base+"/entities/order", map[string]any{
		"records": []map[string]any{{"name": "A-1", "amount": 100, "currency": "EUR"}},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	entityID := decodeInto[[]domain.Entity](t, rec)[0].ID

	rec = s.do(http.MethodPatch, base+"/entities", map[string]any{
		"ids":    []uuid.UUID{entityID},
		"values": map[string]any{"amount": nil},
	}, map[string]string{"Accept-Language": "fr-FR,fr;q=0.9", "X-Timezone": "Europe/Paris"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, base+"/notes?entity_id="+entityID.String(), nil, nil)
	notes := decodeInto[[]domain.AuditNote](t, rec)
	require.Len(t, notes, 1)
	assert.Equal(t, "• Amount — (vide)", notes[0].Body)
}

func TestTrackingConfigValidation(t *testing.T) {
	s := newTestServer(t)
	base := s.seedOrder()

	rec := s.do(http.MethodPost, base+"/tracking-configs", map[string]any{
		"entity_type": "order",
		"field_names": []string{"status", "attachment"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "binary fields cannot be watched")

	rec = s.do(http.MethodPost, base+"/tracking-configs", map[string]any{
		"entity_type": "invoice",
		"field_names": []string{"status"},
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, base+"/tracking-configs", map[string]any{
		"entity_type": "order",
		"field_names": []string{"status"},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	cfg := decodeInto[domain.TrackingConfiguration](t, rec)

	rec = s.do(http.MethodPost, base+"/tracking-configs", map[string]any{
		"entity_type": "order",
		"field_names": []string{"amount"},
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "only one active configuration per kind")

	rec = s.do(http.MethodPut, base+"/tracking-configs/"+cfg.ID.String(), map[string]any{
		"field_names":              []string{"amount", "status"},
		"group_changes_per_record": false,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decodeInto[domain.TrackingConfiguration](t, rec)
	assert.Equal(t, []string{"amount", "status"}, saved.FieldNames)
	assert.False(t, saved.GroupChangesPerRecord)

	rec = s.do(http.MethodGet, "/orgs/"+uuid.NewString()+"/tracking-configs/"+cfg.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "configurations are tenant scoped")
}

func TestSchemaUpdatePrunesWatchedFields(t *testing.T) {
	s := newTestServer(t)
	base := s.seedOrder()

	rec := s.do(http.MethodPost, base+"/tracking-configs", map[string]any{
		"entity_type": "order",
		"field_names": []string{"status", "amount"},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	cfg := decodeInto[domain.TrackingConfiguration](t, rec)

	rec = s.do(http.MethodPut, base+"/schemas/order", map[string]any{
		"fields": []map[string]any{
			{"name": "name", "type": "string"},
			{"name": "status", "type": "selection"},
		},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, base+"/tracking-configs/"+cfg.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"status"}, decodeInto[domain.TrackingConfiguration](t, rec).FieldNames)

	rec = s.do(http.MethodDelete, base+"/schemas/order", nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, base+"/tracking-configs/"+cfg.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)
	base := s.seedOrder()

	rec := s.do(http.MethodGet, "/orgs/not-a-uuid/schemas", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/orgs", map[string]any{"name": "Acme"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPatch, base+"/entities", map[string]any{
		"ids":    []uuid.UUID{uuid.New()},
		"values": map[string]any{"status": "draft"},
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, base+"/entities/order", map[string]any{
		"records": []map[string]any{{"name": "A-1", "status": "shipped"}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, base+"/entities/order", map[string]any{
		"records": []map[string]any{{"name": "A-1"}},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	existing := decodeInto[[]domain.Entity](t, rec)[0].ID
	rec = s.do(http.MethodPatch, base+"/entities", map[string]any{
		"ids":    []uuid.UUID{existing, existing},
		"values": map[string]any{"name": "A-2"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, base+"/entities/order?limit=-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, base+"/schemas", map[string]any{
		"name":   "broken",
		"fields": []map[string]any{{"name": "a", "type": "string"}, {"name": "a", "type": "string"}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
