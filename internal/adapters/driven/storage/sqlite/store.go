package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

const (
	// DefaultIndexName labels the index in stats.
	DefaultIndexName = "ragline_chunks"

	dbFileName    = "vectors.db"
	metaDimension = "dimension"
)

// Options configures the store.
type Options struct {
	// IndexName is reported in stats.
	IndexName string

	// Dimensions is the expected vector size. Zero adopts the stored
	// dimension, or the size of the first upsert.
	Dimensions int
}

// VectorStore persists chunk vectors in a SQLite database.
type VectorStore struct {
	db   *sql.DB
	path string
	name string

	mu        sync.RWMutex
	dimension int
}

// NewVectorStore opens or creates the store in dataDir.
// If dataDir is empty, defaults to ~/.ragline/data.
func NewVectorStore(ctx context.Context, dataDir string, opts Options) (*VectorStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragline", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if opts.IndexName == "" {
		opts.IndexName = DefaultIndexName
	}

	dbPath := filepath.Join(dataDir, dbFileName)

	// WAL lets readers proceed while an ingest holds the write lock.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, unavailable("open", err)
	}

	s := &VectorStore{db: db, path: dbPath, name: opts.IndexName}

	if err := s.migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := s.loadDimension(ctx, opts.Dimensions); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *VectorStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

// migrate runs all pending migrations, recording each applied version.
func (s *VectorStore) migrate(ctx context.Context, fsys fs.FS) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_chunks.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version)
			return err
		}); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

// loadDimension reconciles the configured dimension with the stored one.
func (s *VectorStore) loadDimension(ctx context.Context, configured int) error {
	var stored int
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", metaDimension).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return unavailable("open", err)
	default:
		if stored, err = strconv.Atoi(value); err != nil {
			return fmt.Errorf("corrupt index dimension %q: %w", value, err)
		}
	}

	switch {
	case stored > 0 && configured > 0 && stored != configured:
		return &domain.DimensionMismatchError{Expected: stored, Actual: configured}
	case stored > 0:
		s.dimension = stored
	case configured > 0:
		s.dimension = configured
		return s.saveDimension(ctx, s.db, configured)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *VectorStore) saveDimension(ctx context.Context, db execer, dim int) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO index_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		metaDimension, strconv.Itoa(dim))
	if err != nil {
		return unavailable("save dimension", err)
	}
	return nil
}

// Upsert inserts or replaces records in one transaction.
func (s *VectorStore) Upsert(ctx context.Context, records []driven.VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	for _, r := range records {
		if r.Chunk.ID == "" {
			return 0, fmt.Errorf("%w: record has no chunk id", domain.ErrInvalidInput)
		}
		if dim == 0 {
			dim = len(r.Vector)
		}
		if err := vectors.CheckDimension(dim, r.Vector); err != nil {
			return 0, err
		}
	}

	now := time.Now().UTC()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if s.dimension == 0 {
			if err := s.saveDimension(ctx, tx, dim); err != nil {
				return err
			}
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, document_id, sequence_index, namespace, content,
				char_start, char_end, metadata, embedding, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				document_id = excluded.document_id,
				sequence_index = excluded.sequence_index,
				namespace = excluded.namespace,
				content = excluded.content,
				char_start = excluded.char_start,
				char_end = excluded.char_end,
				metadata = excluded.metadata,
				embedding = excluded.embedding,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			meta, err := json.Marshal(r.Chunk.Metadata)
			if err != nil {
				return fmt.Errorf("marshalling metadata: %w", err)
			}
			if _, err := stmt.ExecContext(ctx,
				r.Chunk.ID, r.Chunk.DocumentID, r.Chunk.SequenceIndex, r.Chunk.Namespace(), r.Chunk.Content,
				r.Chunk.CharStart, r.Chunk.CharEnd, string(meta), vectors.Encode(r.Vector), now,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, unavailable("upsert", err)
	}

	s.dimension = dim
	return len(records), nil
}

// Query scans rows passing filter and ranks them by cosine similarity.
func (s *VectorStore) Query(
	ctx context.Context, vector []float32, topK int, filter *driven.VectorFilter,
) ([]driven.VectorHit, error) {
	s.mu.RLock()
	dim := s.dimension
	s.mu.RUnlock()

	if err := vectors.CheckDimension(dim, vector); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []driven.VectorHit{}, nil
	}

	query, args := filteredSelect(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query", err)
	}
	defer rows.Close()

	hits := []driven.VectorHit{}
	for rows.Next() {
		var (
			c    domain.Chunk
			meta string
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.SequenceIndex, &c.Content,
			&c.CharStart, &c.CharEnd, &meta, &blob); err != nil {
			return nil, unavailable("query", err)
		}
		if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
			return nil, unavailable("query", fmt.Errorf("decoding metadata of %s: %w", c.ID, err))
		}
		v, err := vectors.Decode(blob)
		if err != nil {
			return nil, unavailable("query", fmt.Errorf("decoding vector of %s: %w", c.ID, err))
		}
		hits = append(hits, driven.VectorHit{Chunk: c, Score: vectors.Cosine(vector, v)})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query", err)
	}
	return vectors.Rank(hits, topK), nil
}

func filteredSelect(filter *driven.VectorFilter) (string, []any) {
	query := `SELECT id, document_id, sequence_index, content, char_start, char_end, metadata, embedding
		FROM chunks`
	var (
		where []string
		args  []any
	)
	if filter != nil && filter.Namespace != "" {
		where = append(where, "namespace = ?")
		args = append(args, filter.Namespace)
	}
	if filter != nil && len(filter.DocumentIDs) > 0 {
		where = append(where, "document_id IN (?"+strings.Repeat(", ?", len(filter.DocumentIDs)-1)+")")
		for _, id := range filter.DocumentIDs {
			args = append(args, id)
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query, args
}

// DeleteDocument removes every chunk of a document.
func (s *VectorStore) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return 0, unavailable("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("delete", err)
	}
	return int(n), nil
}

// PruneDocument removes the document's chunks not listed in keep.
func (s *VectorStore) PruneDocument(ctx context.Context, documentID string, keep []string) (int, error) {
	if len(keep) == 0 {
		return s.DeleteDocument(ctx, documentID)
	}
	args := make([]any, 0, len(keep)+1)
	args = append(args, documentID)
	for _, id := range keep {
		args = append(args, id)
	}
	query := "DELETE FROM chunks WHERE document_id = ? AND id NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, unavailable("prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("prune", err)
	}
	return int(n), nil
}

// Stats counts chunks per namespace.
func (s *VectorStore) Stats(ctx context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	stats := domain.IndexStats{IndexName: s.name, Dimension: s.dimension, Namespaces: map[string]int{}}
	s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT namespace, COUNT(*) FROM chunks GROUP BY namespace")
	if err != nil {
		return domain.IndexStats{}, unavailable("stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ns string
			n  int
		)
		if err := rows.Scan(&ns, &n); err != nil {
			return domain.IndexStats{}, unavailable("stats", err)
		}
		stats.Namespaces[ns] = n
		stats.TotalVectors += n
	}
	if err := rows.Err(); err != nil {
		return domain.IndexStats{}, unavailable("stats", err)
	}
	return stats, nil
}

// Ping checks the database connection.
func (s *VectorStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *VectorStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// unavailable wraps a database failure. Lock contention is retryable.
func unavailable(op string, err error) error {
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	msg := err.Error()
	retryable := strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
	return domain.NewServiceError(domain.ErrStoreUnavailable, op, retryable, err)
}
