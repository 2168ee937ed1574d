package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/doccheck/internal/domain/model"
)

// RecordDependencies defines the interface for record reads.
type RecordDependencies interface {
	Record(ctx context.Context, personID string) (model.PersonVerificationRecord, error)
	Records(ctx context.Context) ([]model.PersonVerificationRecord, error)
}

// RecordsHandler handles record reads.
type RecordsHandler struct {
	deps RecordDependencies
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(deps RecordDependencies) *RecordsHandler {
	return &RecordsHandler{deps: deps}
}

// HandleList handles GET /records requests. An optional status query
// parameter keeps only records with that overall status.
func (h *RecordsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_records"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	recs, err := h.deps.Records(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		kept := recs[:0]
		for _, rec := range recs {
			if strings.EqualFold(string(rec.OverallStatus), status) {
				kept = append(kept, rec)
			}
		}
		recs = kept
	}
	if recs == nil {
		recs = []model.PersonVerificationRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// HandleGet handles GET /records/{person_id} requests.
func (h *RecordsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_record"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /records/
	path := strings.TrimPrefix(r.URL.EscapedPath(), "/records/")
	id, err := url.PathUnescape(path)
	if err != nil || id == "" || strings.Contains(path, "/") {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	rec, err := h.deps.Record(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
