package index_service

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"

	"github.com/pgvector/pgvector-go"
)

// stubEmbedder hashes words into a small bag-of-words vector, so texts
// sharing vocabulary are more similar than unrelated texts. Deterministic,
// no network.
type stubEmbedder struct {
	calls atomic.Int32
}

func (e *stubEmbedder) Model() string { return "stub" }

func (e *stubEmbedder) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	e.calls.Add(1)
	dims := make([]float32, 32)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		dims[h.Sum32()%32]++
	}
	return pgvector.NewVector(dims), nil
}
