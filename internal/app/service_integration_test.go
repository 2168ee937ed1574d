package service_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/doccheck/internal/adapters/discovery"
	"github.com/okian/doccheck/internal/adapters/extract"
	"github.com/okian/doccheck/internal/adapters/repository"
	service "github.com/okian/doccheck/internal/app"
	"github.com/okian/doccheck/internal/config"
	"github.com/okian/doccheck/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func writeFields(t *testing.T, path string, fields model.RawFieldSet) {
	t.Helper()
	obj := make(map[string]string, len(fields))
	for k, v := range fields {
		obj[string(k)] = v
	}
	b, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}
}

func withField(base model.RawFieldSet, f model.Field, v string) model.RawFieldSet {
	out := make(model.RawFieldSet, len(base)+1)
	for k, val := range base {
		out[k] = val
	}
	out[f] = v
	return out
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a data directory and a sqlite-backed service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		dataDir := t.TempDir()
		writeFields(t, filepath.Join(dataDir, "P001_pan.json"), johnPAN)
		writeFields(t, filepath.Join(dataDir, "P001_aadhaar.json"), johnAadhaar)
		writeFields(t, filepath.Join(dataDir, "P002_pan.json"), johnPAN)
		writeFields(t, filepath.Join(dataDir, "P002_other.json"), withField(johnAadhaar, model.FullName, "Priya Raman"))
		writeFields(t, filepath.Join(dataDir, "P003_pan.json"), johnPAN)

		cfg := config.New()
		cfg.Extractor = config.ExtractorHeuristic
		cfg.Store = config.StoreSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "records.db")
		cfg.DataDir = dataDir

		ex, err := extract.NewFromConfig(cfg)
		So(err, ShouldBeNil)
		orch, err := service.NewOrchestratorFromConfig(cfg, ex)
		So(err, ShouldBeNil)
		store, err := repository.NewSQLiteStore(cfg.SQLitePath)
		So(err, ShouldBeNil)

		svc := service.New(
			service.WithOrchestrator(orch),
			service.WithStore(store),
			service.WithWorkerCount(2),
			service.WithQueueSize(2),
			service.WithDataDir(cfg.DataDir),
		)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the discovered persons are run as a batch", func() {
			groups, err := discovery.Discover(ctx, dataDir, discovery.WithPrefixLen(cfg.GroupPrefixLen))
			So(err, ShouldBeNil)
			So(groups, ShouldHaveLength, 3)

			recs, err := svc.RunBatch(ctx, groups)
			So(err, ShouldBeNil)

			Convey("Then verdicts follow the documents", func() {
				So(recs, ShouldHaveLength, 3)
				byID := map[string]model.OverallStatus{}
				for _, r := range recs {
					byID[r.PersonID] = r.OverallStatus
				}
				So(byID["P001"], ShouldEqual, model.Verified)
				So(byID["P002"], ShouldEqual, model.Failed)
				So(byID["P003"], ShouldEqual, model.Verified)
			})

			Convey("And a job for a file inside the data directory is verified", func() {
				_, err := svc.Submit(ctx, model.PersonGroup{PersonID: "P004", Sources: []string{"P001_pan.json", "P001_aadhaar.json"}})
				So(err, ShouldBeNil)

				var rec model.PersonVerificationRecord
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) {
					if rec, err = svc.Record(ctx, "P004"); err == nil {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(err, ShouldBeNil)
				So(rec.OverallStatus, ShouldEqual, model.Verified)

				Convey("Then every record survives Stop in the sqlite file", func() {
					svc.Stop()

					reopened, err := repository.NewSQLiteStore(cfg.SQLitePath)
					So(err, ShouldBeNil)
					defer reopened.Close()
					So(reopened.Count(ctx), ShouldEqual, 4)

					got, err := reopened.Get(ctx, "P002")
					So(err, ShouldBeNil)
					So(got.OverallStatus, ShouldEqual, model.Failed)
				})
			})
		})

		Reset(func() {
			svc.Stop()
		})
	})
}
