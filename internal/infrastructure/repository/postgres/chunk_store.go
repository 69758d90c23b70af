package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/advogai/juris-rag/internal/core/domain"
)

// ChunkStore reads document chunks by position, backing the parent-child
// expander. The chunks table is written by the ingestion pipeline; this
// service only reads it.
type ChunkStore struct {
	db *sql.DB
}

func NewChunkStore(db *sql.DB) *ChunkStore {
	return &ChunkStore{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *ChunkStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across instance startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	tenant_id TEXT NOT NULL,
	document_id TEXT NOT NULL,
	chunk_index INT NOT NULL,
	source_domain TEXT,
	jurisdiction TEXT,
	citations JSONB NOT NULL DEFAULT '[]'::jsonb,
	scope TEXT NOT NULL DEFAULT 'global',
	chunk_text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, document_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(tenant_id, document_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Siblings returns up to maxExtra chunks within window positions of
// chunkIndex in the same document, nearest first. The matched chunk itself
// is excluded.
func (s *ChunkStore) Siblings(ctx context.Context, tenantID, documentID string, chunkIndex, window, maxExtra int) ([]domain.RetrievedChunk, error) {
	if window <= 0 || maxExtra <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT tenant_id, document_id, chunk_index, source_domain, jurisdiction, citations, scope, chunk_text
FROM chunks
WHERE tenant_id = $1
  AND document_id = $2
  AND chunk_index BETWEEN $3 AND $4
  AND chunk_index <> $5
ORDER BY abs(chunk_index - $5) ASC, chunk_index ASC
LIMIT $6
`,
		tenantID, documentID, chunkIndex-window, chunkIndex+window, chunkIndex, maxExtra,
	)
	if err != nil {
		return nil, fmt.Errorf("query siblings: %w", err)
	}
	defer rows.Close()

	var out []domain.RetrievedChunk
	for rows.Next() {
		var chunk domain.RetrievedChunk
		var sourceDomain, jurisdiction sql.NullString
		var citationsRaw []byte

		err := rows.Scan(
			&chunk.Metadata.TenantID,
			&chunk.Metadata.DocumentID,
			&chunk.Metadata.ChunkIndex,
			&sourceDomain,
			&jurisdiction,
			&citationsRaw,
			&chunk.Metadata.Scope,
			&chunk.Text,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sibling: %w", err)
		}

		chunk.Metadata.SourceDomain = sourceDomain.String
		chunk.Metadata.Jurisdiction = jurisdiction.String
		if len(citationsRaw) > 0 {
			if err := json.Unmarshal(citationsRaw, &chunk.Metadata.Citations); err != nil {
				return nil, fmt.Errorf("unmarshal citations: %w", err)
			}
		}
		chunk.Source = domain.SourceSibling
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate siblings: %w", err)
	}
	return out, nil
}
