package export

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rpattn/fieldtrack/internal/auth"
	"github.com/rpattn/fieldtrack/internal/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *Service
}

// NewHTTPHandler serves the trail of the kind named by the "kind" route
// parameter for the organization carried on the request context.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	organizationID, ok := auth.OrganizationIDFromContext(r.Context())
	if !ok {
		http.Error(w, "organizationId is required", http.StatusBadRequest)
		return
	}
	entityType := chi.URLParam(r, "kind")

	var buf bytes.Buffer
	rows, err := h.service.WriteEntityTypeTrail(r.Context(), organizationID, entityType, &buf)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrSchemaNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, fmt.Sprintf("export audit trail: %v", err), status)
		return
	}

	filename := h.service.FileName(entityType)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Row-Count", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
