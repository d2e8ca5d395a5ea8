// Package audit persists de-identification events to Postgres.
package audit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acoustixpulse/gateway/internal/anonymize"
)

// Insert timeout per event. Audit writes never block request handling for
// long; a failed write is logged and dropped.
const insertTimeout = 5 * time.Second

// Store writes anonymizer audit events to the phi_audit_events table.
// It records WHICH categories fired on WHICH field, never the PHI itself.
type Store struct {
	pool *pgxpool.Pool
}

var _ anonymize.Auditor = (*Store)(nil)

// NewStore connects to Postgres and verifies the connection.
func NewStore(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS phi_audit_events (
			id BIGSERIAL PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			event_type TEXT NOT NULL,
			field_id TEXT NOT NULL,
			categories TEXT[],
			original_bytes INT,
			clean_bytes INT,
			metadata_segments INT,
			failure TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// TextRedacted records which categories fired on a text field.
func (s *Store) TextRedacted(fieldID string, categories []string) {
	s.insert(`
		INSERT INTO phi_audit_events (event_type, field_id, categories)
		VALUES ('text_redacted', $1, $2)
	`, fieldID, categories)
}

// TextClean is a no-op for the store. Clean fields dominate traffic and
// carry no compliance signal worth a row.
func (s *Store) TextClean(fieldID string) {}

// ImageSanitized records a successful metadata strip.
func (s *Store) ImageSanitized(fieldID string, originalBytes, cleanBytes, metadataSegments int) {
	s.insert(`
		INSERT INTO phi_audit_events (event_type, field_id, original_bytes, clean_bytes, metadata_segments)
		VALUES ('image_sanitized', $1, $2, $3, $4)
	`, fieldID, originalBytes, cleanBytes, metadataSegments)
}

// ImageFailed records a sanitization failure. Only the error text is stored.
func (s *Store) ImageFailed(fieldID string, err error) {
	s.insert(`
		INSERT INTO phi_audit_events (event_type, field_id, failure)
		VALUES ('image_failed', $1, $2)
	`, fieldID, err.Error())
}

func (s *Store) insert(sql string, args ...interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		log.Printf("[audit] insert failed (non-critical): %v", err)
	}
}
