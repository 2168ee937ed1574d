package repository

import "errors"

// Sentinel kinds for record store errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrEmptyPerson  = errors.New("record has no person id")
	ErrStoreClosed  = errors.New("store closed")
	ErrNoOutputPath = errors.New("output path is empty")
)
