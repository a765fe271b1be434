package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/nyayasetu/nyayasetu/pkg/models"
)

// InsertOutcome is the tri-state result of an insert attempt.
type InsertOutcome int

const (
	OutcomeError InsertOutcome = iota
	OutcomeInserted
	OutcomeDuplicate
)

// EntryStore is the corpus store contract: atomic insert-or-skip plus
// threshold-bounded nearest-neighbor search.
type EntryStore interface {
	Migrate(ctx context.Context, dim int) error
	// InsertIfAbsent persists an entry unless one with the same
	// (section, content) pair already exists, in which case it reports
	// OutcomeDuplicate without error.
	InsertIfAbsent(ctx context.Context, e models.CorpusEntry) (InsertOutcome, error)
	// SimilaritySearch returns at most k entries with similarity >= threshold
	// against a unit-length query vector, ranked by descending similarity with
	// ties broken by insertion order.
	SimilaritySearch(ctx context.Context, vec []float32, threshold float64, k int) ([]models.Match, error)
	Count(ctx context.Context) (int64, error)
}

// Store provides methods to interact with the database.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new Store instance connected to the given database URL.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Migrate applies necessary database migrations and schema setup. The vector
// column dimension is fixed at migration time and must equal the embedder's
// output dimension for the lifetime of the corpus.
func (s *Store) Migrate(ctx context.Context, dim int) error {
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
  id              BIGSERIAL PRIMARY KEY,
  chapter         TEXT NOT NULL,
  chapter_name    TEXT NOT NULL DEFAULT '',
  chapter_subtype TEXT NOT NULL DEFAULT '',
  section         TEXT NOT NULL,
  section_name    TEXT NOT NULL DEFAULT '',
  content         TEXT NOT NULL,
  content_hash    TEXT NOT NULL,
  embedding       vector(%d) NOT NULL,
  created_at      TIMESTAMP WITH TIME ZONE DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS documents_section_hash_uidx
  ON documents (section, content_hash);

CREATE INDEX IF NOT EXISTS documents_section_idx
  ON documents (section);

CREATE INDEX IF NOT EXISTS documents_embedding_idx
  ON documents USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`
	_, err := s.pool.Exec(ctx, fmt.Sprintf(q, dim))
	return err
}

// hashContent returns the SHA-1 hash of the given content as a hex string.
func hashContent(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// InsertIfAbsent inserts a corpus entry, skipping silently when the
// (section, content) pair is already present. The unique index makes the
// insert commutative, so re-running ingestion is idempotent.
func (s *Store) InsertIfAbsent(ctx context.Context, e models.CorpusEntry) (InsertOutcome, error) {
	const q = `
		INSERT INTO documents (
			chapter, chapter_name, chapter_subtype, section, section_name,
			content, content_hash, embedding, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8, now())
		ON CONFLICT (section, content_hash) DO NOTHING;`

	tag, err := s.pool.Exec(ctx, q,
		e.Chapter, e.ChapterName, e.ChapterSubtype, e.Section, e.SectionName,
		e.Content, hashContent(e.Content), pgvector.NewVector(e.Embedding),
	)
	if err != nil {
		return OutcomeError, err
	}
	if tag.RowsAffected() == 0 {
		return OutcomeDuplicate, nil
	}
	return OutcomeInserted, nil
}

// SimilaritySearch runs the nearest-neighbor query. Embeddings are unit
// vectors, so 1 - cosine_distance is the inner-product similarity in [0,1].
func (s *Store) SimilaritySearch(ctx context.Context, vec []float32, threshold float64, k int) ([]models.Match, error) {
	if k <= 0 {
		return nil, nil
	}

	const q = `
SELECT chapter, chapter_name, section, section_name, content,
       1 - (embedding <=> $1) AS similarity
FROM documents
WHERE 1 - (embedding <=> $1) >= $2
ORDER BY embedding <=> $1, id
LIMIT $3;`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(vec), threshold, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(
			&m.Chapter, &m.ChapterName, &m.Section, &m.SectionName, &m.Content,
			&m.Similarity,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Count returns the number of persisted corpus entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, "SELECT count(*) FROM documents").Scan(&n)
	return n, err
}

// Ping checks the database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
