package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RuleStatus is the outcome of one rule.
type RuleStatus string

const (
	StatusPass RuleStatus = "PASS"
	StatusFail RuleStatus = "FAIL"
)

// OverallStatus is the verdict for one person.
type OverallStatus string

const (
	Verified OverallStatus = "VERIFIED"
	Failed   OverallStatus = "FAILED"
)

// ReasonNoDocuments is the error text of a record built for an empty group.
const ReasonNoDocuments = "no documents"

// RuleResult is the outcome of a single rule. Unparsed lists the documents
// whose compared date value could not be parsed; it never changes Status.
type RuleResult struct {
	Name     string     `json:"-"`
	Status   RuleStatus `json:"status"`
	Unparsed []string   `json:"unparsed_documents,omitempty"`
}

// Passed reports whether the rule passed.
func (r RuleResult) Passed() bool { return r.Status == StatusPass }

// RuleResults keeps rule outcomes in rule order. It encodes as a JSON object
// keyed by rule name and decodes back in document order.
type RuleResults []RuleResult

// Get returns the result for name.
func (rs RuleResults) Get(name string) (RuleResult, bool) {
	for _, r := range rs {
		if r.Name == name {
			return r, true
		}
	}
	return RuleResult{}, false
}

// Overall is VERIFIED iff every result passed. An empty list is FAILED.
func (rs RuleResults) Overall() OverallStatus {
	if len(rs) == 0 {
		return Failed
	}
	for _, r := range rs {
		if !r.Passed() {
			return Failed
		}
	}
	return Verified
}

// MarshalJSON writes results as an ordered object.
func (rs RuleResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalRaw(r.Name)
		if err != nil {
			return nil, err
		}
		v, err := marshalRaw(r)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of rule name to result preserving key order.
func (rs *RuleResults) UnmarshalJSON(data []byte) error {
	out := RuleResults{}
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var r RuleResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		r.Name = key
		out = append(out, r)
		return nil
	})
	if err != nil {
		return err
	}
	*rs = out
	return nil
}

// ExtractedDocument is one entry of a record's extracted_data.
type ExtractedDocument struct {
	ID     string
	Fields RawFieldSet
}

// ExtractedData maps document ids to raw fields, keeping document order and,
// inside each document, vocabulary order.
type ExtractedData struct {
	Vocabulary Vocabulary
	Documents  []ExtractedDocument
}

// Get returns the raw fields of document id.
func (e ExtractedData) Get(id string) (RawFieldSet, bool) {
	for _, d := range e.Documents {
		if d.ID == id {
			return d.Fields, true
		}
	}
	return nil, false
}

// MarshalJSON writes {"document_1": {"Full Name": ..., ...}, ...}.
func (e ExtractedData) MarshalJSON() ([]byte, error) {
	vocab := e.Vocabulary
	if len(vocab) == 0 {
		vocab = DefaultVocabulary()
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range e.Documents {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, d.ID); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, f := range vocab {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, string(f)); err != nil {
				return nil, err
			}
			v, err := marshalRaw(d.Fields.Get(f))
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads documents in order. The vocabulary is taken from the
// first document's keys.
func (e *ExtractedData) UnmarshalJSON(data []byte) error {
	out := ExtractedData{}
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		fields := RawFieldSet{}
		var order Vocabulary
		err := decodeOrderedObject(raw, func(name string, v json.RawMessage) error {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			fields[Field(name)] = s
			order = append(order, Field(name))
			return nil
		})
		if err != nil {
			return err
		}
		if out.Vocabulary == nil {
			out.Vocabulary = order
		}
		out.Documents = append(out.Documents, ExtractedDocument{ID: key, Fields: fields})
		return nil
	})
	if err != nil {
		return err
	}
	*e = out
	return nil
}

// Diagnostics carries audit information that does not affect the verdict.
type Diagnostics struct {
	Sources          map[string]string `json:"sources,omitempty"`
	ExtractionErrors map[string]string `json:"extraction_errors,omitempty"`
}

// Empty reports whether there is nothing to report.
func (d *Diagnostics) Empty() bool {
	return d == nil || (len(d.Sources) == 0 && len(d.ExtractionErrors) == 0)
}

// PersonVerificationRecord is the final output for one person.
type PersonVerificationRecord struct {
	PersonID            string        `json:"person_id"`
	ExtractedData       ExtractedData `json:"extracted_data"`
	VerificationResults RuleResults   `json:"verification_results"`
	OverallStatus       OverallStatus `json:"overall_status"`
	Diagnostics         *Diagnostics  `json:"diagnostics,omitempty"`
	Error               string        `json:"error,omitempty"`
}

// DegenerateRecord builds a record where every rule fails, used when a person
// could not be evaluated at all.
func DegenerateRecord(personID, reason string, ruleNames []string, vocab Vocabulary) PersonVerificationRecord {
	results := make(RuleResults, 0, len(ruleNames))
	for _, n := range ruleNames {
		results = append(results, RuleResult{Name: n, Status: StatusFail})
	}
	return PersonVerificationRecord{
		PersonID:            personID,
		ExtractedData:       ExtractedData{Vocabulary: vocab},
		VerificationResults: results,
		OverallStatus:       Failed,
		Error:               reason,
	}
}

// marshalRaw is json.Marshal without HTML escaping, so "A & B" stays as is.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := marshalRaw(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}

// decodeOrderedObject walks a JSON object calling fn for each member in order.
func decodeOrderedObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
