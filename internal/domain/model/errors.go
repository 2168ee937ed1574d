package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrDuplicateDocument = errors.New("duplicate document id")
	ErrTooManyDocuments  = errors.New("too many documents")
	ErrEmptyPersonID     = errors.New("empty person id")
)
