package model

import (
	"fmt"
	"strconv"
)

// DefaultMaxDocuments is the per-person document cap used when none is configured.
const DefaultMaxDocuments = 3

// DocumentID returns the identifier for the i-th (1-based) document of a person.
func DocumentID(i int) string {
	return "document_" + strconv.Itoa(i)
}

// PersonGroup is what file discovery hands to the pipeline: a person and the
// ordered sources of their documents.
type PersonGroup struct {
	PersonID string
	Sources  []string
}

// Document is one extracted document as received from the extraction step.
type Document struct {
	ID              string
	Source          string
	Fields          RawFieldSet
	ExtractionError string
}

// NormalizedDocument pairs a document id with its normalized fields.
type NormalizedDocument struct {
	ID     string
	Fields NormalizedFieldSet
}

// PersonDocumentGroup is the rule engine input. The first document is the
// reference that every other document is compared against under the star
// topology.
type PersonDocumentGroup struct {
	PersonID  string
	Documents []NormalizedDocument
}

// NewPersonDocumentGroup validates and builds a group. Document ids must be
// unique and, when maxDocs > 0, at most maxDocs documents are accepted.
func NewPersonDocumentGroup(personID string, docs []NormalizedDocument, maxDocs int) (PersonDocumentGroup, error) {
	if personID == "" {
		return PersonDocumentGroup{}, ErrEmptyPersonID
	}
	if maxDocs > 0 && len(docs) > maxDocs {
		return PersonDocumentGroup{}, fmt.Errorf("%w: %d > %d", ErrTooManyDocuments, len(docs), maxDocs)
	}
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.ID]; ok {
			return PersonDocumentGroup{}, fmt.Errorf("%w: %s", ErrDuplicateDocument, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	out := make([]NormalizedDocument, len(docs))
	copy(out, docs)
	return PersonDocumentGroup{PersonID: personID, Documents: out}, nil
}

// Reference returns the first document, if any.
func (g PersonDocumentGroup) Reference() (NormalizedDocument, bool) {
	if len(g.Documents) == 0 {
		return NormalizedDocument{}, false
	}
	return g.Documents[0], true
}

// Values collects the normalized value of f for every document, in order.
func (g PersonDocumentGroup) Values(f Field) []string {
	out := make([]string, len(g.Documents))
	for i, d := range g.Documents {
		out[i] = d.Fields.Get(f)
	}
	return out
}
