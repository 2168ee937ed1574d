package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okian/doccheck/internal/adapters/extract"
	service "github.com/okian/doccheck/internal/app"
	"github.com/okian/doccheck/internal/config"
	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

var johnPAN = model.RawFieldSet{
	model.FullName:        "John Smith",
	model.FatherName:      "Robert Smith",
	model.DateOfBirth:     "1990-01-01",
	model.CompleteAddress: "12 MG Road, Bangalore",
	model.PhoneNumber:     "+91 98765 43210",
	model.PANNumber:       "ABCDE1234F",
	model.AadhaarNumber:   "1234 5678 9012",
}

var johnAadhaar = model.RawFieldSet{
	model.FullName:        "JOHN  SMITH",
	model.FatherName:      "Robert Smith",
	model.DateOfBirth:     "01/01/1990",
	model.CompleteAddress: "12 MG Road Bangalore",
	model.PhoneNumber:     "9876543210",
	model.AadhaarNumber:   "123456789012",
}

// fakeExtractor serves field sets by source name. Sources named "fail*"
// return an error and "panic*" panics.
func fakeExtractor(docs map[string]model.RawFieldSet) extract.Extractor {
	return extract.ExtractorFunc(func(_ context.Context, source string) (model.RawFieldSet, error) {
		switch {
		case strings.HasPrefix(source, "fail"):
			return nil, errors.New("ocr failed: unreadable image")
		case strings.HasPrefix(source, "panic"):
			panic("decoder crashed")
		}
		return docs[source], nil
	})
}

func newOrchestrator(opts ...service.OrchestratorOption) *service.Orchestrator {
	base := []service.OrchestratorOption{
		service.WithExtractor(fakeExtractor(map[string]model.RawFieldSet{
			"john_pan.png":     johnPAN,
			"john_aadhaar.png": johnAadhaar,
			"jane_pan.png":     {model.FullName: "Jane Doe", model.PANNumber: "ABCDE1234F"},
		})),
	}
	o, err := service.NewOrchestrator(append(base, opts...)...)
	if err != nil {
		panic(err)
	}
	return o
}

func status(rec model.PersonVerificationRecord, rule string) model.RuleStatus {
	r, ok := rec.VerificationResults.Get(rule)
	if !ok {
		return ""
	}
	return r.Status
}

func TestOrchestrator_Process(t *testing.T) {
	ctx := context.Background()

	Convey("Given an orchestrator with a fake extractor", t, func() {
		o := newOrchestrator()

		Convey("When a person's documents agree", func() {
			rec := o.Process(ctx, model.PersonGroup{PersonID: "john", Sources: []string{"john_pan.png", "john_aadhaar.png"}})

			Convey("Then the person is verified", func() {
				So(rec.PersonID, ShouldEqual, "john")
				So(rec.OverallStatus, ShouldEqual, model.Verified)
				So(rec.VerificationResults, ShouldHaveLength, 7)
				So(rec.Error, ShouldBeEmpty)
			})

			Convey("Then the raw fields are kept for audit", func() {
				doc2, ok := rec.ExtractedData.Get("document_2")
				So(ok, ShouldBeTrue)
				So(doc2.Get(model.DateOfBirth), ShouldEqual, "01/01/1990")
				So(doc2.Get(model.PANNumber), ShouldEqual, "")
			})

			Convey("Then the sources are listed in the diagnostics", func() {
				So(rec.Diagnostics, ShouldNotBeNil)
				So(rec.Diagnostics.Sources["document_1"], ShouldEqual, "john_pan.png")
				So(rec.Diagnostics.ExtractionErrors, ShouldBeEmpty)
			})
		})

		Convey("When one document cannot be extracted", func() {
			rec := o.Process(ctx, model.PersonGroup{PersonID: "john", Sources: []string{"john_pan.png", "fail.png"}})

			Convey("Then it counts as an all-empty document", func() {
				So(rec.OverallStatus, ShouldEqual, model.Failed)
				So(status(rec, rules.RuleNameMatch), ShouldEqual, model.StatusFail)
				So(status(rec, rules.RulePANFormat), ShouldEqual, model.StatusPass)
				doc2, _ := rec.ExtractedData.Get("document_2")
				So(doc2, ShouldHaveLength, 10)
				So(doc2.Get(model.FullName), ShouldEqual, "")
			})

			Convey("Then the error is reported", func() {
				So(rec.Diagnostics.ExtractionErrors["document_2"], ShouldContainSubstring, "unreadable image")
			})
		})

		Convey("When the extractor panics", func() {
			rec := o.Process(ctx, model.PersonGroup{PersonID: "john", Sources: []string{"john_pan.png", "panic.png"}})

			Convey("Then the panic is contained to that document", func() {
				So(rec.OverallStatus, ShouldEqual, model.Failed)
				So(rec.Diagnostics.ExtractionErrors["document_2"], ShouldContainSubstring, "decoder crashed")
			})
		})

		Convey("When a person has more documents than the cap", func() {
			rec := o.Process(ctx, model.PersonGroup{PersonID: "john", Sources: []string{
				"john_pan.png", "john_aadhaar.png", "john_pan.png", "fail.png",
			}})

			Convey("Then only the first three are used", func() {
				So(rec.ExtractedData.Documents, ShouldHaveLength, 3)
				So(rec.OverallStatus, ShouldEqual, model.Verified)
			})
		})

		Convey("When a person has no documents", func() {
			rec := o.Process(ctx, model.PersonGroup{PersonID: "ghost"})

			Convey("Then a degenerate record is produced", func() {
				So(rec.OverallStatus, ShouldEqual, model.Failed)
				So(rec.Error, ShouldEqual, model.ReasonNoDocuments)
				So(rec.VerificationResults, ShouldHaveLength, 7)
				for _, r := range rec.VerificationResults {
					So(r.Status, ShouldEqual, model.StatusFail)
				}
			})
		})

		Convey("When a single document is given", func() {
			rec := o.Process(ctx, model.PersonGroup{PersonID: "jane", Sources: []string{"jane_pan.png"}})

			Convey("Then every rule passes vacuously", func() {
				So(rec.OverallStatus, ShouldEqual, model.Verified)
			})
		})
	})

	Convey("Given an orchestrator without an extractor", t, func() {
		o, err := service.NewOrchestrator()
		So(err, ShouldBeNil)
		rec := o.Process(ctx, model.PersonGroup{PersonID: "john", Sources: []string{"a.png"}})

		Convey("Then extraction errors are reported instead of failing", func() {
			So(rec.Diagnostics.ExtractionErrors["document_1"], ShouldContainSubstring, "no extractor")
		})
	})
}

func TestOrchestrator_Verify(t *testing.T) {
	ctx := context.Background()

	Convey("Given an orchestrator", t, func() {
		o := newOrchestrator()

		Convey("When documents differ only in date format", func() {
			rec, err := o.Verify(ctx, "john", []model.Document{{Fields: johnPAN}, {Fields: johnAadhaar}})
			So(err, ShouldBeNil)

			Convey("Then the DOB rule passes", func() {
				So(status(rec, rules.RuleDOBMatch), ShouldEqual, model.StatusPass)
				So(rec.Diagnostics, ShouldBeNil)
			})
		})

		Convey("When a date cannot be parsed", func() {
			bad := model.RawFieldSet{model.FullName: "John Smith", model.DateOfBirth: "XX/XX/XXXX"}
			rec, err := o.Verify(ctx, "john", []model.Document{{Fields: johnPAN}, {Fields: bad}})
			So(err, ShouldBeNil)

			Convey("Then the DOB rule fails and names the unparsed document", func() {
				r, _ := rec.VerificationResults.Get(rules.RuleDOBMatch)
				So(r.Status, ShouldEqual, model.StatusFail)
				So(r.Unparsed, ShouldResemble, []string{"document_2"})
			})
		})

		Convey("When a threshold is overridden for the call", func() {
			a := model.RawFieldSet{model.FullName: "John Smith"}
			b := model.RawFieldSet{model.FullName: "Jon Smith"}

			def, err := o.Verify(ctx, "john", []model.Document{{Fields: a}, {Fields: b}})
			So(err, ShouldBeNil)
			strict, err := o.Verify(ctx, "john", []model.Document{{Fields: a}, {Fields: b}},
				rules.WithThreshold(rules.RuleNameMatch, 99))
			So(err, ShouldBeNil)

			Convey("Then only that call is affected", func() {
				So(status(def, rules.RuleNameMatch), ShouldEqual, model.StatusPass)
				So(status(strict, rules.RuleNameMatch), ShouldEqual, model.StatusFail)
			})
		})

		Convey("When document ids collide", func() {
			_, err := o.Verify(ctx, "john", []model.Document{
				{ID: "passport", Fields: johnPAN},
				{ID: "passport", Fields: johnAadhaar},
			})
			So(err, ShouldWrap, model.ErrDuplicateDocument)
		})

		Convey("When the person id is missing", func() {
			_, err := o.Verify(ctx, "", []model.Document{{Fields: johnPAN}})
			So(err, ShouldWrap, model.ErrEmptyPersonID)
		})

		Convey("When there are no documents", func() {
			rec, err := o.Verify(ctx, "ghost", nil)
			So(err, ShouldBeNil)
			So(rec.Error, ShouldEqual, model.ReasonNoDocuments)
		})
	})
}

func TestNewOrchestratorFromConfig(t *testing.T) {
	ctx := context.Background()

	Convey("Given a configuration", t, func() {
		cfg := config.New()

		Convey("When the name threshold is raised", func() {
			cfg.NameThreshold = 99
			o, err := service.NewOrchestratorFromConfig(cfg, nil)
			So(err, ShouldBeNil)

			rec, err := o.Verify(ctx, "john", []model.Document{
				{Fields: model.RawFieldSet{model.FullName: "John Smith"}},
				{Fields: model.RawFieldSet{model.FullName: "Jon Smith"}},
			})
			So(err, ShouldBeNil)

			Convey("Then the engine uses it", func() {
				So(status(rec, rules.RuleNameMatch), ShouldEqual, model.StatusFail)
			})
		})

		Convey("When the vocabulary is narrowed", func() {
			cfg.Fields = []string{string(model.FullName), string(model.PANNumber)}
			cfg.RuleList = []rules.Rule{
				{Name: "name", Field: model.FullName, Kind: rules.KindFuzzy, Threshold: 85},
				{Name: "pan", Field: model.PANNumber, Kind: rules.KindFormat, Format: "pan"},
			}
			o, err := service.NewOrchestratorFromConfig(cfg, nil)
			So(err, ShouldBeNil)

			Convey("Then records follow it", func() {
				So(o.RuleNames(), ShouldResemble, []string{"name", "pan"})
				So(o.Vocabulary(), ShouldHaveLength, 2)
			})
		})

		Convey("When the topology is unknown", func() {
			cfg.Topology = "ring"
			_, err := service.NewOrchestratorFromConfig(cfg, nil)
			So(err, ShouldWrap, rules.ErrUnknownTopology)
		})
	})
}
