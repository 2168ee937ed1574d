package repository

import (
	"context"
	"database/sql"
	_ "embed" // schema.sql
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/pkg/metrics"
)

const defaultBusyTimeout = 5 * time.Second

//go:embed schema.sql
var schema string

// SQLiteStore persists records as JSON rows in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrNoOutputPath
	}
	cfg := options{busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, cfg.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one writer at a time keeps SQLITE_BUSY out of concurrent saves
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Save upserts a record by person id.
func (s *SQLiteStore) Save(ctx context.Context, rec model.PersonVerificationRecord) error { //nolint:gocritic // hugeParam: records are values
	if rec.PersonID == "" {
		return ErrEmptyPerson
	}
	start := time.Now()

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling record %s: %w", rec.PersonID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (person_id, overall_status, record, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(person_id) DO UPDATE SET
			overall_status = excluded.overall_status,
			record = excluded.record,
			updated_at = excluded.updated_at
	`, rec.PersonID, string(rec.OverallStatus), string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving record %s: %w", rec.PersonID, err)
	}

	metrics.RecordStoreSaveLatency(float64(time.Since(start).Milliseconds()))
	metrics.UpdateStoreRecords(s.Count(ctx))
	return nil
}

// Get returns the record for a person.
func (s *SQLiteStore) Get(ctx context.Context, personID string) (model.PersonVerificationRecord, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM records WHERE person_id = ?`, personID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PersonVerificationRecord{}, ErrNotFound
	}
	if err != nil {
		return model.PersonVerificationRecord{}, fmt.Errorf("getting record %s: %w", personID, err)
	}
	return decodeRecord(body)
}

// List returns all records in first-saved order.
func (s *SQLiteStore) List(ctx context.Context) ([]model.PersonVerificationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []model.PersonVerificationRecord
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored records, or 0 if the query fails.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeRecord(body string) (model.PersonVerificationRecord, error) {
	var rec model.PersonVerificationRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return model.PersonVerificationRecord{}, fmt.Errorf("decoding record: %w", err)
	}
	return rec, nil
}
