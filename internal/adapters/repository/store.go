// Package repository stores finished verification records.
package repository

import (
	"context"

	"github.com/okian/doccheck/internal/domain/model"
)

// Store provides read/write access to verification records, one per person.
type Store interface {
	// Save inserts or replaces the record of rec.PersonID. A replaced record
	// keeps its original position in List.
	Save(ctx context.Context, rec model.PersonVerificationRecord) error

	// Get returns the record for a person.
	// Returns ErrNotFound if the person is unknown.
	Get(ctx context.Context, personID string) (model.PersonVerificationRecord, error)

	// List returns all records in the order they were first saved.
	List(ctx context.Context) ([]model.PersonVerificationRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int

	// Close releases the store's resources.
	Close() error
}
