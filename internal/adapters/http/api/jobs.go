package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/doccheck/internal/app"
	"github.com/okian/doccheck/internal/domain/model"
)

// JobDependencies defines the asynchronous submission dependency.
type JobDependencies interface {
	Submit(ctx context.Context, g model.PersonGroup) (string, error)
}

// jobRequest mirrors the OpenAPI schema for POST /jobs.
type jobRequest struct {
	PersonID string   `json:"person_id"`
	Sources  []string `json:"sources"`
}

func (j jobRequest) validate() error {
	switch {
	case strings.TrimSpace(j.PersonID) == "":
		return errors.New("missing person_id")
	case len(j.Sources) == 0:
		return errors.New("missing sources")
	}
	for _, s := range j.Sources {
		if strings.TrimSpace(s) == "" {
			return errors.New("empty source")
		}
	}
	return nil
}

type jobResponse struct {
	JobID    string `json:"job_id"`
	PersonID string `json:"person_id"`
	Status   string `json:"status"`
}

// JobsHandler handles asynchronous job submissions.
type JobsHandler struct {
	deps JobDependencies
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps JobDependencies) *JobsHandler {
	return &JobsHandler{deps: deps}
}

// HandlePostJob handles POST /jobs requests. The sources are extracted and
// verified in the background; the record appears under /records/{person_id}.
// Sources are paths under the service's data directory.
func (h *JobsHandler) HandlePostJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_job"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req jobRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	id, err := h.deps.Submit(r.Context(), model.PersonGroup{PersonID: req.PersonID, Sources: req.Sources})
	switch {
	case errors.Is(err, service.ErrOutsideData):
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, jobResponse{JobID: id, PersonID: req.PersonID, Status: "accepted"})
}
