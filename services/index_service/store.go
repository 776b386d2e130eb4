package index_service

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/pgvector/pgvector-go"
)

// ScoredChunk is a retrieved chunk with its similarity to the query.
type ScoredChunk struct {
	Chunk
	Score float64
}

// Index is a queryable view over one embedded document set.
type Index interface {
	Fingerprint() string
	Search(ctx context.Context, query pgvector.Vector, topK int) ([]ScoredChunk, error)
}

// Store persists built indexes and hands back queryable handles.
type Store interface {
	// Lookup returns an existing index for the fingerprint, if the store
	// has one.
	Lookup(ctx context.Context, fingerprint string) (Index, bool, error)
	// Create stores chunks and their embeddings under the fingerprint.
	Create(ctx context.Context, fingerprint string, chunks []Chunk, vectors []pgvector.Vector) (Index, error)
}

// MemoryStore keeps embedded chunks in process memory and searches them
// with brute-force cosine similarity. It never reports an existing index:
// reuse is the builder cache's job.
type MemoryStore struct{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Lookup(ctx context.Context, fingerprint string) (Index, bool, error) {
	return nil, false, nil
}

func (s *MemoryStore) Create(ctx context.Context, fingerprint string, chunks []Chunk, vectors []pgvector.Vector) (Index, error) {
	idx := &memoryIndex{fingerprint: fingerprint, chunks: chunks}
	idx.vectors = make([][]float32, len(vectors))
	for i, v := range vectors {
		idx.vectors[i] = v.Slice()
	}
	return idx, nil
}

type memoryIndex struct {
	mu          sync.RWMutex
	fingerprint string
	chunks      []Chunk
	vectors     [][]float32
}

func (m *memoryIndex) Fingerprint() string {
	return m.fingerprint
}

func (m *memoryIndex) Search(ctx context.Context, query pgvector.Vector, topK int) ([]ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if topK <= 0 {
		topK = 4
	}

	q := query.Slice()
	scored := make([]ScoredChunk, len(m.chunks))
	for i := range m.chunks {
		scored[i] = ScoredChunk{
			Chunk: m.chunks[i],
			Score: cosineSimilarity(m.vectors[i], q),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
