package model_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	model "github.com/okian/doccheck/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRawFieldSet(t *testing.T) {
	convey.Convey("Given a raw field set with a missing key", t, func() {
		raw := model.RawFieldSet{model.FullName: "John"}

		convey.Convey("When reading a missing field", func() {
			convey.So(raw.Get(model.PANNumber), convey.ShouldEqual, "")
		})

		convey.Convey("When projecting onto the default vocabulary", func() {
			p := raw.Project(model.DefaultVocabulary())

			convey.Convey("Then every field is present", func() {
				convey.So(len(p), convey.ShouldEqual, 10)
				convey.So(p[model.FullName], convey.ShouldEqual, "John")
				v, ok := p[model.AccountNumber]
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(v, convey.ShouldEqual, "")
			})
		})

		convey.Convey("When reading from a nil set", func() {
			var empty model.RawFieldSet
			convey.So(empty.Get(model.FullName), convey.ShouldEqual, "")
		})
	})
}

func TestVocabulary(t *testing.T) {
	convey.Convey("Given the default vocabulary", t, func() {
		v := model.DefaultVocabulary()

		convey.So(v[0], convey.ShouldEqual, model.FullName)
		convey.So(v[9], convey.ShouldEqual, model.AccountNumber)
		convey.So(v.Contains(model.FatherName), convey.ShouldBeTrue)
		convey.So(v.Contains(model.Field("Passport")), convey.ShouldBeFalse)

		convey.Convey("Modifying a copy does not affect the next call", func() {
			v[0] = "changed"
			convey.So(model.DefaultVocabulary()[0], convey.ShouldEqual, model.FullName)
		})
	})
}

func TestPersonDocumentGroup(t *testing.T) {
	convey.Convey("Given normalized documents", t, func() {
		d1 := model.NormalizedDocument{ID: "document_1", Fields: model.NormalizedFieldSet{Values: map[model.Field]string{model.FullName: "A"}}}
		d2 := model.NormalizedDocument{ID: "document_2", Fields: model.NormalizedFieldSet{Values: map[model.Field]string{model.FullName: "B"}}}

		convey.Convey("When ids are unique", func() {
			g, err := model.NewPersonDocumentGroup("p1", []model.NormalizedDocument{d1, d2}, 3)
			convey.So(err, convey.ShouldBeNil)
			ref, ok := g.Reference()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(ref.ID, convey.ShouldEqual, "document_1")
			convey.So(g.Values(model.FullName), convey.ShouldResemble, []string{"A", "B"})
		})

		convey.Convey("When ids repeat", func() {
			_, err := model.NewPersonDocumentGroup("p1", []model.NormalizedDocument{d1, d1}, 3)
			convey.So(errors.Is(err, model.ErrDuplicateDocument), convey.ShouldBeTrue)
		})

		convey.Convey("When over the cap", func() {
			_, err := model.NewPersonDocumentGroup("p1", []model.NormalizedDocument{d1, d2}, 1)
			convey.So(errors.Is(err, model.ErrTooManyDocuments), convey.ShouldBeTrue)
		})

		convey.Convey("When the person id is empty", func() {
			_, err := model.NewPersonDocumentGroup("", nil, 3)
			convey.So(err, convey.ShouldEqual, model.ErrEmptyPersonID)
		})

		convey.Convey("An empty group has no reference", func() {
			g, err := model.NewPersonDocumentGroup("p1", nil, 3)
			convey.So(err, convey.ShouldBeNil)
			_, ok := g.Reference()
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestRuleResults(t *testing.T) {
	convey.Convey("Given ordered rule results", t, func() {
		rs := model.RuleResults{
			{Name: "rule_b", Status: model.StatusPass},
			{Name: "rule_a", Status: model.StatusFail, Unparsed: []string{"document_2"}},
		}

		convey.Convey("Overall is FAILED when any rule fails", func() {
			convey.So(rs.Overall(), convey.ShouldEqual, model.Failed)
		})

		convey.Convey("Overall is VERIFIED when every rule passes", func() {
			ok := model.RuleResults{{Name: "x", Status: model.StatusPass}}
			convey.So(ok.Overall(), convey.ShouldEqual, model.Verified)
		})

		convey.Convey("Encoding keeps rule order", func() {
			b, err := json.Marshal(rs)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(b), convey.ShouldEqual,
				`{"rule_b":{"status":"PASS"},"rule_a":{"status":"FAIL","unparsed_documents":["document_2"]}}`)

			convey.Convey("And decoding restores the same order", func() {
				var back model.RuleResults
				convey.So(json.Unmarshal(b, &back), convey.ShouldBeNil)
				convey.So(back, convey.ShouldResemble, rs)
			})
		})

		convey.Convey("Get finds a rule by name", func() {
			r, ok := rs.Get("rule_a")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(r.Status, convey.ShouldEqual, model.StatusFail)
			_, ok = rs.Get("missing")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestPersonVerificationRecord(t *testing.T) {
	convey.Convey("Given a record with extracted data", t, func() {
		rec := model.PersonVerificationRecord{
			PersonID: "john",
			ExtractedData: model.ExtractedData{
				Vocabulary: model.Vocabulary{model.FullName, model.PANNumber},
				Documents: []model.ExtractedDocument{
					{ID: "document_1", Fields: model.RawFieldSet{model.PANNumber: "ABCDE1234F", model.FullName: "John"}},
				},
			},
			VerificationResults: model.RuleResults{{Name: "rule_1_name_match", Status: model.StatusPass}},
			OverallStatus:       model.Verified,
		}

		convey.Convey("When encoding", func() {
			b, err := json.Marshal(rec)
			convey.So(err, convey.ShouldBeNil)
			s := string(b)

			convey.Convey("Then fields follow vocabulary order and optional keys are omitted", func() {
				convey.So(s, convey.ShouldContainSubstring,
					`"extracted_data":{"document_1":{"Full Name":"John","PAN Number":"ABCDE1234F"}}`)
				convey.So(s, convey.ShouldNotContainSubstring, "diagnostics")
				convey.So(s, convey.ShouldNotContainSubstring, `"error"`)
			})

			convey.Convey("Then it decodes back", func() {
				var back model.PersonVerificationRecord
				convey.So(json.Unmarshal(b, &back), convey.ShouldBeNil)
				convey.So(back.PersonID, convey.ShouldEqual, "john")
				fields, ok := back.ExtractedData.Get("document_1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(fields.Get(model.PANNumber), convey.ShouldEqual, "ABCDE1234F")
				convey.So(back.ExtractedData.Vocabulary, convey.ShouldResemble, rec.ExtractedData.Vocabulary)
				convey.So(back.OverallStatus, convey.ShouldEqual, model.Verified)
			})
		})
	})

	convey.Convey("Given extracted values with HTML characters", t, func() {
		rec := model.PersonVerificationRecord{
			PersonID: "a&b",
			ExtractedData: model.ExtractedData{
				Vocabulary: model.Vocabulary{model.CompleteAddress},
				Documents: []model.ExtractedDocument{
					{ID: "document_1", Fields: model.RawFieldSet{model.CompleteAddress: "A & B <Tower>"}},
				},
			},
			VerificationResults: model.RuleResults{{Name: "rule_<3>", Status: model.StatusPass}},
		}

		convey.Convey("When encoding with HTML escaping off", func() {
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			convey.So(enc.Encode(rec), convey.ShouldBeNil)

			convey.Convey("Then the values are written verbatim", func() {
				convey.So(buf.String(), convey.ShouldContainSubstring, `"Complete Address":"A & B <Tower>"`)
				convey.So(buf.String(), convey.ShouldContainSubstring, `"rule_<3>":{"status":"PASS"}`)
				convey.So(buf.String(), convey.ShouldNotContainSubstring, `\u0026`)
			})

			convey.Convey("Then it decodes back to the same values", func() {
				var back model.PersonVerificationRecord
				convey.So(json.Unmarshal(buf.Bytes(), &back), convey.ShouldBeNil)
				fields, _ := back.ExtractedData.Get("document_1")
				convey.So(fields.Get(model.CompleteAddress), convey.ShouldEqual, "A & B <Tower>")
			})
		})
	})

	convey.Convey("Given a degenerate record", t, func() {
		rec := model.DegenerateRecord("ghost", model.ReasonNoDocuments, []string{"r1", "r2"}, nil)

		convey.So(rec.OverallStatus, convey.ShouldEqual, model.Failed)
		convey.So(len(rec.VerificationResults), convey.ShouldEqual, 2)
		for _, r := range rec.VerificationResults {
			convey.So(r.Status, convey.ShouldEqual, model.StatusFail)
		}

		b, err := json.Marshal(rec)
		convey.So(err, convey.ShouldBeNil)
		convey.So(strings.Contains(string(b), `"extracted_data":{}`), convey.ShouldBeTrue)
		convey.So(strings.Contains(string(b), `"error":"no documents"`), convey.ShouldBeTrue)
	})
}
