// Package postgres provides a driven.VectorStore on PostgreSQL with the
// pgvector extension.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/ragline/internal/adapters/driven/apierr"
	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// DefaultTable is the chunk table name.
const DefaultTable = "ragline_chunks"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Options configures the store.
type Options struct {
	// Table holds the chunks. Lowercase letters, digits and underscores only.
	Table string

	// Dimensions is the vector column size. Required.
	Dimensions int
}

// VectorStore stores chunks in a pgvector table. Similarity is
// 1 - cosine distance.
type VectorStore struct {
	pool      *pgxpool.Pool
	table     string
	ident     string
	dimension int
}

// NewVectorStore connects, ensures the schema and checks that an existing
// table has the configured dimension.
func NewVectorStore(ctx context.Context, dsn string, opts Options) (*VectorStore, error) {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if !tableName.MatchString(opts.Table) {
		return nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidInput, opts.Table)
	}
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: postgres store needs a positive dimension", domain.ErrInvalidInput)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %w", domain.ErrInvalidInput, err)
	}

	s := &VectorStore{
		pool:      pool,
		table:     opts.Table,
		ident:     pgx.Identifier{opts.Table}.Sanitize(),
		dimension: opts.Dimensions,
	}
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *VectorStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			chunk_id       TEXT PRIMARY KEY,
			document_id    TEXT NOT NULL,
			sequence_index INTEGER NOT NULL,
			namespace      TEXT NOT NULL DEFAULT 'default',
			content        TEXT NOT NULL,
			char_start     INTEGER NOT NULL,
			char_end       INTEGER NOT NULL,
			metadata       JSONB NOT NULL DEFAULT '{}',
			embedding      vector(%d) NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.ident, s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (document_id)`,
			pgx.Identifier{s.table + "_document_idx"}.Sanitize(), s.ident),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (namespace)`,
			pgx.Identifier{s.table + "_namespace_idx"}.Sanitize(), s.ident),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return classify("schema", err)
		}
	}

	// pgvector keeps the declared size in atttypmod.
	var stored int
	err := s.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::regclass AND attname = 'embedding'`,
		s.table).Scan(&stored)
	if err != nil {
		return classify("schema", err)
	}
	if stored > 0 && stored != s.dimension {
		return &domain.DimensionMismatchError{Expected: stored, Actual: s.dimension}
	}
	return nil
}

// Upsert writes records in one transaction with ON CONFLICT updates.
func (s *VectorStore) Upsert(ctx context.Context, records []driven.VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for _, r := range records {
		if r.Chunk.ID == "" {
			return 0, fmt.Errorf("%w: record has no chunk id", domain.ErrInvalidInput)
		}
		if err := vectors.CheckDimension(s.dimension, r.Vector); err != nil {
			return 0, err
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (chunk_id, document_id, sequence_index, namespace, content,
			char_start, char_end, metadata, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, now())
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			sequence_index = EXCLUDED.sequence_index,
			namespace = EXCLUDED.namespace,
			content = EXCLUDED.content,
			char_start = EXCLUDED.char_start,
			char_end = EXCLUDED.char_end,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = now()`, s.ident)

	batch := &pgx.Batch{}
	for _, r := range records {
		meta, err := marshalMetadata(r.Chunk.Metadata)
		if err != nil {
			return 0, err
		}
		batch.Queue(query,
			r.Chunk.ID, r.Chunk.DocumentID, r.Chunk.SequenceIndex, r.Chunk.Namespace(), r.Chunk.Content,
			r.Chunk.CharStart, r.Chunk.CharEnd, meta, pgvector.NewVector(r.Vector))
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, classify("upsert", err)
	}
	return len(records), nil
}

// Query orders by cosine distance, ties by chunk ID.
func (s *VectorStore) Query(
	ctx context.Context, vector []float32, topK int, filter *driven.VectorFilter,
) ([]driven.VectorHit, error) {
	if err := vectors.CheckDimension(s.dimension, vector); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []driven.VectorHit{}, nil
	}

	namespace, docIDs := filterArgs(filter)
	query := fmt.Sprintf(`
		SELECT chunk_id, document_id, sequence_index, content, char_start, char_end, metadata,
			1 - (embedding <=> $1) AS score
		FROM %s
		WHERE ($2 = '' OR namespace = $2)
		  AND (cardinality($3::text[]) = 0 OR document_id = ANY($3))
		ORDER BY embedding <=> $1, chunk_id
		LIMIT $4`, s.ident)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), namespace, docIDs, topK)
	if err != nil {
		return nil, classify("query", err)
	}
	defer rows.Close()

	hits := []driven.VectorHit{}
	for rows.Next() {
		var (
			c    domain.Chunk
			meta []byte
			hit  driven.VectorHit
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.SequenceIndex, &c.Content,
			&c.CharStart, &c.CharEnd, &meta, &hit.Score); err != nil {
			return nil, classify("query", err)
		}
		if err := json.Unmarshal(meta, &c.Metadata); err != nil {
			return nil, classify("query", fmt.Errorf("decoding metadata of %s: %w", c.ID, err))
		}
		hit.Chunk = c
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query", err)
	}
	return hits, nil
}

func filterArgs(filter *driven.VectorFilter) (string, []string) {
	if filter == nil {
		return "", []string{}
	}
	ids := filter.DocumentIDs
	if ids == nil {
		ids = []string{}
	}
	return filter.Namespace, ids
}

// DeleteDocument removes every chunk of a document.
func (s *VectorStore) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, s.ident), documentID)
	if err != nil {
		return 0, classify("delete", err)
	}
	return int(tag.RowsAffected()), nil
}

// PruneDocument removes the document's chunks not listed in keep.
func (s *VectorStore) PruneDocument(ctx context.Context, documentID string, keep []string) (int, error) {
	if keep == nil {
		keep = []string{}
	}
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1 AND NOT (chunk_id = ANY($2))`, s.ident),
		documentID, keep)
	if err != nil {
		return 0, classify("prune", err)
	}
	return int(tag.RowsAffected()), nil
}

// Stats counts chunks per namespace.
func (s *VectorStore) Stats(ctx context.Context) (domain.IndexStats, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT namespace, COUNT(*) FROM %s GROUP BY namespace`, s.ident))
	if err != nil {
		return domain.IndexStats{}, classify("stats", err)
	}
	defer rows.Close()

	stats := domain.IndexStats{IndexName: s.table, Dimension: s.dimension, Namespaces: map[string]int{}}
	for rows.Next() {
		var (
			ns string
			n  int
		)
		if err := rows.Scan(&ns, &n); err != nil {
			return domain.IndexStats{}, classify("stats", err)
		}
		stats.Namespaces[ns] = n
		stats.TotalVectors += n
	}
	if err := rows.Err(); err != nil {
		return domain.IndexStats{}, classify("stats", err)
	}
	return stats, nil
}

// Ping checks the pool can reach the server.
func (s *VectorStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// Close closes the pool.
func (s *VectorStore) Close() error {
	s.pool.Close()
	return nil
}

func marshalMetadata(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(b), nil
}

// classify tags a database failure. Connection loss, resource exhaustion,
// shutdown and serialization conflicts are retryable; other server
// errors are not.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		retryable := strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "53") ||
			strings.HasPrefix(pgErr.Code, "57P") || pgErr.Code == "40001" || pgErr.Code == "40P01"
		return domain.NewServiceError(domain.ErrStoreUnavailable, op, retryable, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return domain.NewServiceError(domain.ErrStoreUnavailable, op, true, err)
	}
	return apierr.FromTransport(domain.ErrStoreUnavailable, op, err)
}
