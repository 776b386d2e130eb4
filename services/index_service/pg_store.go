package index_service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgStore persists embedded chunks in Postgres with pgvector, keyed by the
// document-set fingerprint. Indexes survive process restarts, so repeat
// uploads of the same document skip the embedding cost entirely.
type PgStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgStore(db *pgxpool.Pool, logger *slog.Logger) *PgStore {
	return &PgStore{db: db, logger: logger}
}

// Connect opens a pgx pool with retries and makes sure the pgvector
// extension is available.
func Connect(ctx context.Context, dbURL string, logger *slog.Logger) (*pgxpool.Pool, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	var pool *pgxpool.Pool
	var err error
	maxRetries := 10
	retryDelay := 10 * time.Second

	for i := 0; i < maxRetries; i++ {
		var cfg *pgxpool.Config
		cfg, err = pgxpool.ParseConfig(dbURL)
		if err != nil {
			return nil, fmt.Errorf("unable to parse database URL: %w", err)
		}

		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				logger.Info("Connected to the database")
				break
			}
		}

		logger.Warn("Failed to connect to the database",
			slog.Int("attempt", i+1),
			slog.Int("max_attempts", maxRetries),
			slog.String("error", err.Error()))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database after %d attempts: %w", maxRetries, err)
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return nil, fmt.Errorf("unable to create vector extension: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the chunk table for the given embedding dimension.
func (s *PgStore) EnsureSchema(ctx context.Context, dimension int) error {
	createSQL := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS juridoc_chunks (
            id          BIGSERIAL PRIMARY KEY,
            fingerprint TEXT NOT NULL,
            doc_index   INT NOT NULL,
            chunk_index INT NOT NULL,
            content     TEXT NOT NULL,
            embedding   vector(%d) NOT NULL
        )`, dimension)
	if _, err := s.db.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create chunk table: %w", err)
	}
	_, err := s.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_juridoc_chunks_fingerprint ON juridoc_chunks (fingerprint)`)
	if err != nil {
		return fmt.Errorf("failed to create fingerprint index: %w", err)
	}
	return nil
}

func (s *PgStore) Lookup(ctx context.Context, fingerprint string) (Index, bool, error) {
	var count int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM juridoc_chunks WHERE fingerprint = $1", fingerprint).Scan(&count)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up fingerprint: %w", err)
	}
	if count == 0 {
		return nil, false, nil
	}
	return &pgIndex{db: s.db, fingerprint: fingerprint}, true, nil
}

func (s *PgStore) Create(ctx context.Context, fingerprint string, chunks []Chunk, vectors []pgvector.Vector) (Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace any stale rows so a retried build cannot leave duplicates.
	if _, err := tx.Exec(ctx, "DELETE FROM juridoc_chunks WHERE fingerprint = $1", fingerprint); err != nil {
		return nil, fmt.Errorf("failed to clear stale chunks: %w", err)
	}

	for i, chunk := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO juridoc_chunks (fingerprint, doc_index, chunk_index, content, embedding)
             VALUES ($1, $2, $3, $4, $5)`,
			fingerprint, chunk.DocIndex, chunk.ChunkIndex, chunk.Text, vectors[i])
		if err != nil {
			return nil, fmt.Errorf("failed to store chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit chunk insert: %w", err)
	}

	s.logger.Info("Stored index",
		slog.String("fingerprint", fingerprint[:12]),
		slog.Int("chunk_count", len(chunks)))

	return &pgIndex{db: s.db, fingerprint: fingerprint}, nil
}

// CreateOrUpdateIndex rebuilds the ivfflat similarity index sized to the
// current chunk count.
func (s *PgStore) CreateOrUpdateIndex(ctx context.Context) error {
	var count int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM juridoc_chunks").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	// Optimal list count is sqrt of row count, floored at 100.
	lists := int(math.Sqrt(float64(count)))
	if lists < 100 {
		lists = 100
	}

	if _, err := s.db.Exec(ctx, "DROP INDEX IF EXISTS idx_juridoc_chunks_embedding"); err != nil {
		return fmt.Errorf("failed to drop existing index: %w", err)
	}

	createIndexSQL := fmt.Sprintf(`
        CREATE INDEX idx_juridoc_chunks_embedding
        ON juridoc_chunks
        USING ivfflat (embedding vector_cosine_ops)
        WITH (lists = %d)
    `, lists)

	if _, err := s.db.Exec(ctx, createIndexSQL); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	s.logger.Info("Vector index created/updated successfully",
		slog.Int("chunk_count", count),
		slog.Int("list_count", lists))

	return nil
}

// ReindexIfNeeded rebuilds the ivfflat index when the chunk count has
// drifted far from what the index was sized for.
func (s *PgStore) ReindexIfNeeded(ctx context.Context) error {
	var currentLists int
	err := s.db.QueryRow(ctx, `
        SELECT reloptions[1]::text::int
        FROM pg_class c
        LEFT JOIN pg_index i ON c.oid = i.indexrelid
        WHERE c.relname = 'idx_juridoc_chunks_embedding'
        AND reloptions IS NOT NULL
    `).Scan(&currentLists)

	if err != nil {
		// Index doesn't exist or other error
		return s.CreateOrUpdateIndex(ctx)
	}

	var count int
	err = s.db.QueryRow(ctx, "SELECT COUNT(*) FROM juridoc_chunks").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	optimalLists := int(math.Sqrt(float64(count)))
	if optimalLists < 100 {
		optimalLists = 100
	}

	if math.Abs(float64(currentLists-optimalLists)) > float64(optimalLists)*0.5 {
		s.logger.Info("Rebuilding vector index due to significant size change",
			slog.Int("current_lists", currentLists),
			slog.Int("optimal_lists", optimalLists))
		return s.CreateOrUpdateIndex(ctx)
	}

	return nil
}

type pgIndex struct {
	db          *pgxpool.Pool
	fingerprint string
}

func (p *pgIndex) Fingerprint() string {
	return p.fingerprint
}

func (p *pgIndex) Search(ctx context.Context, query pgvector.Vector, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		topK = 4
	}

	rows, err := p.db.Query(ctx, `
        SELECT doc_index, chunk_index, content, 1 - (embedding <=> $1) AS similarity
        FROM juridoc_chunks
        WHERE fingerprint = $2
        ORDER BY embedding <=> $1
        LIMIT $3`,
		query, p.fingerprint, topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var results []ScoredChunk
	for rows.Next() {
		var sc ScoredChunk
		if err := rows.Scan(&sc.DocIndex, &sc.ChunkIndex, &sc.Text, &sc.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("search row iteration failed: %w", err)
	}
	return results, nil
}
