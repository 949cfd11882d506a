package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

// CorpusRepository records which corpus files the worker has indexed and
// how each rebuild went. It is bookkeeping for operators; retrieval
// never reads it.
type CorpusRepository struct {
	db *sql.DB
}

func NewCorpusRepository(db *sql.DB) *CorpusRepository {
	return &CorpusRepository{db: db}
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

func (r *CorpusRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS corpus_documents (
	id TEXT PRIMARY KEY,
	source_key TEXT NOT NULL UNIQUE,
	title TEXT,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	indexed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_corpus_documents_status ON corpus_documents(status);
CREATE INDEX IF NOT EXISTS idx_corpus_documents_indexed_at ON corpus_documents(indexed_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the record for a source key. Rebuilds
// re-index the same files, so source_key is the conflict target.
func (r *CorpusRepository) Upsert(ctx context.Context, rec *domain.CorpusRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO corpus_documents (id, source_key, title, chunk_count, status, error_message, indexed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (source_key) DO UPDATE
SET chunk_count = EXCLUDED.chunk_count,
    status = EXCLUDED.status,
    error_message = EXCLUDED.error_message,
    indexed_at = EXCLUDED.indexed_at
`,
		rec.ID, rec.SourceKey, rec.Title, rec.ChunkCount, rec.Status, rec.Error, rec.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert corpus record: %w", err)
	}
	return nil
}

func (r *CorpusRepository) List(ctx context.Context) ([]domain.CorpusRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, source_key, title, chunk_count, status, error_message, indexed_at
FROM corpus_documents
ORDER BY indexed_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("query corpus records: %w", err)
	}
	defer rows.Close()

	var out []domain.CorpusRecord
	for rows.Next() {
		var rec domain.CorpusRecord
		var title, errMessage sql.NullString
		if err := rows.Scan(&rec.ID, &rec.SourceKey, &title, &rec.ChunkCount, &rec.Status, &errMessage, &rec.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan corpus record: %w", err)
		}
		rec.Title = title.String
		rec.Error = errMessage.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corpus records: %w", err)
	}
	return out, nil
}

// Ping reports database reachability for health checks.
func (r *CorpusRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}
