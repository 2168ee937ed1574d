package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/internal/domain/rules"
)

// VerifyDependencies defines the synchronous verification dependency.
type VerifyDependencies interface {
	Verify(ctx context.Context, personID string, docs []model.Document, opts ...rules.EvalOption) (model.PersonVerificationRecord, error)
}

// verifyRequest mirrors the OpenAPI schema for POST /verify.
type verifyRequest struct {
	PersonID   string             `json:"person_id"`
	Documents  []documentRequest  `json:"documents"`
	Thresholds map[string]float64 `json:"thresholds,omitempty"`
}

type documentRequest struct {
	ID     string            `json:"id,omitempty"`
	Fields model.RawFieldSet `json:"fields"`
}

func (v verifyRequest) validate() error {
	if strings.TrimSpace(v.PersonID) == "" {
		return errors.New("missing person_id")
	}
	for name, t := range v.Thresholds {
		if t < 0 || t > 100 {
			return fmt.Errorf("threshold for %s must be within [0, 100]", name)
		}
	}
	return nil
}

func (v verifyRequest) documents() []model.Document {
	docs := make([]model.Document, 0, len(v.Documents))
	for _, d := range v.Documents {
		docs = append(docs, model.Document{ID: d.ID, Fields: d.Fields})
	}
	return docs
}

func (v verifyRequest) options() []rules.EvalOption {
	opts := make([]rules.EvalOption, 0, len(v.Thresholds))
	for name, t := range v.Thresholds {
		opts = append(opts, rules.WithThreshold(name, t))
	}
	return opts
}

// VerifyHandler handles synchronous verification requests.
type VerifyHandler struct {
	deps VerifyDependencies
}

// NewVerifyHandler creates a new verify handler.
func NewVerifyHandler(deps VerifyDependencies) *VerifyHandler {
	return &VerifyHandler{deps: deps}
}

// HandleVerify handles POST /verify requests. The documents carry fields that
// were already extracted; the record is stored and returned.
func (h *VerifyHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	const op = "api.verify"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req verifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	rec, err := h.deps.Verify(r.Context(), req.PersonID, req.documents(), req.options()...)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
