package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/doccheck/internal/adapters/http/api"
	"github.com/okian/doccheck/internal/adapters/mq/queue"
	"github.com/okian/doccheck/internal/adapters/repository"
	service "github.com/okian/doccheck/internal/app"
	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDeps struct {
	verifyErr  error
	submitErr  error
	records    map[string]model.PersonVerificationRecord
	order      []string
	gotDocs    []model.Document
	gotOpts    int
	submitted  []model.PersonGroup
	statsCalls int
}

func newMockDeps() *mockDeps {
	return &mockDeps{records: map[string]model.PersonVerificationRecord{}}
}

func (m *mockDeps) save(rec model.PersonVerificationRecord) {
	if _, ok := m.records[rec.PersonID]; !ok {
		m.order = append(m.order, rec.PersonID)
	}
	m.records[rec.PersonID] = rec
}

func (m *mockDeps) Verify(_ context.Context, personID string, docs []model.Document, opts ...rules.EvalOption) (model.PersonVerificationRecord, error) {
	m.gotDocs = docs
	m.gotOpts = len(opts)
	if m.verifyErr != nil {
		return model.PersonVerificationRecord{}, m.verifyErr
	}
	rec := model.PersonVerificationRecord{
		PersonID:            personID,
		VerificationResults: model.RuleResults{{Name: rules.RuleNameMatch, Status: model.StatusPass}},
		OverallStatus:       model.Verified,
	}
	m.save(rec)
	return rec, nil
}

func (m *mockDeps) Submit(_ context.Context, g model.PersonGroup) (string, error) {
	if m.submitErr != nil {
		return "", m.submitErr
	}
	m.submitted = append(m.submitted, g)
	return fmt.Sprintf("job-%d", len(m.submitted)), nil
}

func (m *mockDeps) Record(_ context.Context, personID string) (model.PersonVerificationRecord, error) {
	rec, ok := m.records[personID]
	if !ok {
		return model.PersonVerificationRecord{}, fmt.Errorf("%w: %s", repository.ErrNotFound, personID)
	}
	return rec, nil
}

func (m *mockDeps) Records(context.Context) ([]model.PersonVerificationRecord, error) {
	out := make([]model.PersonVerificationRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out, nil
}

func (m *mockDeps) GetStats() map[string]interface{} {
	m.statsCalls++
	return map[string]interface{}{"started": true, "records": len(m.records)}
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestVerify(t *testing.T) {
	Convey("Given the API with mocked dependencies", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When a valid verify request is posted", func() {
			w := do(mux, http.MethodPost, "/verify", `{
				"person_id": "john",
				"documents": [
					{"fields": {"Full Name": "John Smith"}},
					{"id": "passport", "fields": {"Full Name": "JOHN SMITH"}}
				],
				"thresholds": {"rule_1_name_match": 90}
			}`)

			Convey("Then the record is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(w.Body.String(), ShouldContainSubstring, `"rule_1_name_match":{"status":"PASS"}`)
				So(w.Body.String(), ShouldContainSubstring, `"overall_status":"VERIFIED"`)
			})

			Convey("Then documents and thresholds reach the service", func() {
				So(deps.gotDocs, ShouldHaveLength, 2)
				So(deps.gotDocs[0].ID, ShouldBeEmpty)
				So(deps.gotDocs[1].ID, ShouldEqual, "passport")
				So(deps.gotDocs[1].Fields.Get(model.FullName), ShouldEqual, "JOHN SMITH")
				So(deps.gotOpts, ShouldEqual, 1)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/verify", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "bad_request")
		})

		Convey("When the body has unknown fields", func() {
			w := do(mux, http.MethodPost, "/verify", `{"person_id": "john", "docs": []}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When person_id is missing", func() {
			w := do(mux, http.MethodPost, "/verify", `{"documents": []}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "missing person_id")
		})

		Convey("When a threshold is out of range", func() {
			w := do(mux, http.MethodPost, "/verify", `{"person_id": "john", "thresholds": {"rule_1_name_match": 120}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service rejects duplicate document ids", func() {
			deps.verifyErr = fmt.Errorf("%w: passport", model.ErrDuplicateDocument)
			w := do(mux, http.MethodPost, "/verify", `{"person_id": "john", "documents": [{"id": "passport"}, {"id": "passport"}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "duplicate document id")
		})

		Convey("When the service fails unexpectedly", func() {
			deps.verifyErr = errors.New("disk on fire")
			w := do(mux, http.MethodPost, "/verify", `{"person_id": "john"}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(errorCode(w), ShouldEqual, "internal_error")
		})

		Convey("When the wrong method is used", func() {
			w := do(mux, http.MethodGet, "/verify", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestJobs(t *testing.T) {
	Convey("Given the API with mocked dependencies", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When a job is posted", func() {
			w := do(mux, http.MethodPost, "/jobs", `{"person_id": "john", "sources": ["data/raw/john_1.png", "data/raw/john_2.pdf"]}`)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"job_id":"job-1"`)
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].Sources, ShouldHaveLength, 2)
			})
		})

		Convey("When sources are missing", func() {
			w := do(mux, http.MethodPost, "/jobs", `{"person_id": "john"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When the person is already in flight", func() {
			deps.submitErr = service.ErrDuplicateJob
			w := do(mux, http.MethodPost, "/jobs", `{"person_id": "john", "sources": ["a.png"]}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(w), ShouldEqual, "duplicate")
		})

		Convey("When the queue is full", func() {
			deps.submitErr = service.ErrQueueFull
			w := do(mux, http.MethodPost, "/jobs", `{"person_id": "john", "sources": ["a.png"]}`)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(errorCode(w), ShouldEqual, "backpressure")
		})

		Convey("When the queue is closed", func() {
			deps.submitErr = queue.ErrQueueClosed
			w := do(mux, http.MethodPost, "/jobs", `{"person_id": "john", "sources": ["a.png"]}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestRecords(t *testing.T) {
	Convey("Given the API with two stored records", t, func() {
		deps := newMockDeps()
		deps.save(model.PersonVerificationRecord{PersonID: "john", OverallStatus: model.Verified})
		deps.save(model.PersonVerificationRecord{PersonID: "jane doe", OverallStatus: model.Failed})
		mux := newMux(deps)

		Convey("When listing records", func() {
			w := do(mux, http.MethodGet, "/records", "")
			var recs []model.PersonVerificationRecord
			So(json.Unmarshal(w.Body.Bytes(), &recs), ShouldBeNil)

			Convey("Then they come back in save order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].PersonID, ShouldEqual, "john")
				So(recs[1].PersonID, ShouldEqual, "jane doe")
			})
		})

		Convey("When filtering by status", func() {
			w := do(mux, http.MethodGet, "/records?status=failed", "")
			var recs []model.PersonVerificationRecord
			So(json.Unmarshal(w.Body.Bytes(), &recs), ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			So(recs[0].PersonID, ShouldEqual, "jane doe")
		})

		Convey("When no record matches the filter", func() {
			w := do(mux, http.MethodGet, "/records?status=pending", "")
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("When fetching one record by an escaped id", func() {
			w := do(mux, http.MethodGet, "/records/jane%20doe", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"person_id":"jane doe"`)
		})

		Convey("When fetching an unknown person", func() {
			w := do(mux, http.MethodGet, "/records/ghost", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "not_found")
		})

		Convey("When the path is malformed", func() {
			So(do(mux, http.MethodGet, "/records/", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/records/a/b", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHealthStatsMetrics(t *testing.T) {
	Convey("Given the API", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("Then /healthz reports ok as JSON", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then /healthz serves metrics to scrapers", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set("Accept", "text/plain")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "doccheck_")
		})

		Convey("Then /stats returns the provider's stats", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			So(deps.statsCalls, ShouldEqual, 1)
		})

		Convey("Then /metrics exposes HTTP metrics after a request", func() {
			do(mux, http.MethodGet, "/stats", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given classified errors", t, func() {
		err := api.WrapKind("api.verify", api.ErrBadRequest, errors.New("missing person_id"))

		Convey("Then both the kind and the cause are reachable", func() {
			So(err, ShouldWrap, api.ErrBadRequest)
			So(err.Error(), ShouldEqual, "api.verify: bad request: missing person_id")
		})

		Convey("Then NewKind and Wrap format their parts", func() {
			So(api.NewKind("api.get_record", api.ErrBadRequest).Error(), ShouldEqual, "api.get_record: bad request")
			So(api.Wrap("api.post_job", service.ErrQueueFull), ShouldWrap, service.ErrQueueFull)
		})
	})
}

func TestWithService(t *testing.T) {
	Convey("Given the API over a running service", t, func() {
		root := t.TempDir()
		svc := service.New(service.WithWorkerCount(2), service.WithDataDir(root))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := newMux(svc)

		Convey("When documents with different date formats are verified", func() {
			w := do(mux, http.MethodPost, "/verify", `{
				"person_id": "john",
				"documents": [
					{"fields": {
						"Full Name": "John Smith", "Father's Name": "Robert Smith", "Date of Birth": "01/01/1990",
						"Complete Address": "12 MG Road, Bangalore", "Phone Number": "+91 98765 43210", "PAN Number": "ABCDE1234F"
					}},
					{"fields": {
						"Full Name": "JOHN  SMITH", "Father's Name": "ROBERT SMITH", "Date of Birth": "1990-01-01",
						"Complete Address": "12 mg road, bangalore", "Phone Number": "9876543210", "Aadhaar Number": "1234 5678 9012"
					}}
				]
			}`)

			Convey("Then the person is verified and stored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"overall_status":"VERIFIED"`)

				got := do(mux, http.MethodGet, "/records/john", "")
				So(got.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When a document id repeats", func() {
			w := do(mux, http.MethodPost, "/verify", `{"person_id": "john", "documents": [{"id": "a"}, {"id": "a"}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a job reaches outside the data directory", func() {
			outside := filepath.Join(t.TempDir(), "secret.txt")
			for _, src := range []string{"../secret.txt", "docs/../../etc/passwd", outside} {
				body, err := json.Marshal(map[string]any{"person_id": "mallory", "sources": []string{src}})
				So(err, ShouldBeNil)
				w := do(mux, http.MethodPost, "/jobs", string(body))

				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
			}

			Convey("Then no record is created", func() {
				w := do(mux, http.MethodGet, "/records/mallory", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a job names a document inside the data directory", func() {
			w := do(mux, http.MethodPost, "/jobs", `{"person_id": "jane", "sources": ["jane/pan.png"]}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
		})
	})
}
