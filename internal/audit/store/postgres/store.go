package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/E-m-i-n-e-n-c-e/Revent/internal/audit"
	"github.com/E-m-i-n-e-n-c-e/Revent/pkg/platform/sentinel"
)

// Store implements audit.Store over PostgreSQL. Records land in the
// audit_logs table; timestamps come from the database clock at insert time,
// so ordering under concurrent writes follows arrival order and ties are
// possible.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Health reports whether the backing database is reachable.
func (s *Store) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Append inserts one immutable record. There is no natural key, so
// redelivered change events produce duplicate rows.
func (s *Store) Append(ctx context.Context, record audit.Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	beforeJSON, err := marshalSnapshot(record.BeforeData)
	if err != nil {
		return fmt.Errorf("marshal before snapshot: %w", err)
	}
	afterJSON, err := marshalSnapshot(record.AfterData)
	if err != nil {
		return fmt.Errorf("marshal after snapshot: %w", err)
	}

	query := `
		INSERT INTO audit_logs (
			id, collection, document_id, operation, timestamp,
			user_id, user_email, before_data, after_data
		)
		VALUES ($1, $2, $3, $4, now(), $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		string(record.Collection),
		record.DocumentID,
		string(record.Operation),
		record.UserID,
		record.UserEmail,
		beforeJSON,
		afterJSON,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListRecent returns the N most recent records, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Record, error) {
	query := `
		SELECT id, collection, document_id, operation, timestamp,
			   user_id, user_email, before_data, after_data
		FROM audit_logs
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListByDocument returns all records for one document, newest first.
func (s *Store) ListByDocument(ctx context.Context, collection audit.Collection, documentID string) ([]audit.Record, error) {
	query := `
		SELECT id, collection, document_id, operation, timestamp,
			   user_id, user_email, before_data, after_data
		FROM audit_logs
		WHERE collection = $1 AND document_id = $2
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, string(collection), documentID)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record

	for rows.Next() {
		var (
			record     audit.Record
			collection string
			operation  string
			beforeJSON []byte
			afterJSON  []byte
		)
		err := rows.Scan(
			&record.ID,
			&collection,
			&record.DocumentID,
			&operation,
			&record.Timestamp,
			&record.UserID,
			&record.UserEmail,
			&beforeJSON,
			&afterJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}

		record.Collection = audit.Collection(collection)
		record.Operation = audit.Operation(operation)
		if record.BeforeData, err = unmarshalSnapshot(beforeJSON); err != nil {
			return nil, fmt.Errorf("decode before snapshot: %w", err)
		}
		if record.AfterData, err = unmarshalSnapshot(afterJSON); err != nil {
			return nil, fmt.Errorf("decode after snapshot: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return records, nil
}

// marshalSnapshot maps a nil snapshot to SQL NULL so creations and deletions
// keep their one-sided shape in the table.
func marshalSnapshot(s audit.Snapshot) (any, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(map[string]any(s))
}

func unmarshalSnapshot(raw []byte) (audit.Snapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s audit.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}
