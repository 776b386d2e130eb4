package rag_service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"

	"github.com/juridoc/juridoc/services/index_service"
	"github.com/juridoc/juridoc/services/llm_service"
)

type fixedEmbedder struct {
	err error
}

func (e *fixedEmbedder) Model() string { return "fixed" }

func (e *fixedEmbedder) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	if e.err != nil {
		return pgvector.Vector{}, e.err
	}
	return pgvector.NewVector([]float32{1, 0, 0}), nil
}

type fakeIndex struct {
	results []index_service.ScoredChunk
	err     error
	gotTopK int
}

func (f *fakeIndex) Fingerprint() string { return "0123456789abcdef" }

func (f *fakeIndex) Search(ctx context.Context, query pgvector.Vector, topK int) ([]index_service.ScoredChunk, error) {
	f.gotTopK = topK
	return f.results, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueryAssemblesGroundedPrompt(t *testing.T) {
	idx := &fakeIndex{
		results: []index_service.ScoredChunk{
			{Chunk: index_service.Chunk{DocIndex: 0, ChunkIndex: 0, Text: "first excerpt"}, Score: 0.9},
			{Chunk: index_service.Chunk{DocIndex: 1, ChunkIndex: 2, Text: "second excerpt"}, Score: 0.7},
		},
	}

	var captured string
	llm := &llm_service.MockLLMService{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			captured = prompt
			return "  the answer  ", nil
		},
	}

	engine := NewEngine(testLogger(), &fixedEmbedder{}, llm, 2)
	answer, err := engine.Query(context.Background(), idx, "What does it say?")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if answer != "the answer" {
		t.Errorf("response not trimmed: %q", answer)
	}
	if idx.gotTopK != 2 {
		t.Errorf("expected topK 2, got %d", idx.gotTopK)
	}

	for _, want := range []string{
		"[Document A, excerpt 1]",
		"first excerpt",
		"[Document B, excerpt 3]",
		"second excerpt",
		"What does it say?",
	} {
		if !strings.Contains(captured, want) {
			t.Errorf("grounded prompt missing %q", want)
		}
	}
	// Excerpts must come before the instruction.
	if strings.Index(captured, "first excerpt") > strings.Index(captured, "What does it say?") {
		t.Error("excerpts appear after the instruction")
	}
}

func TestQueryEmptyResponseIsValid(t *testing.T) {
	llm := &llm_service.MockLLMService{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			return "   ", nil
		},
	}
	engine := NewEngine(testLogger(), &fixedEmbedder{}, llm, 4)

	answer, err := engine.Query(context.Background(), &fakeIndex{}, "prompt")
	if err != nil {
		t.Fatalf("empty completion should not error: %v", err)
	}
	if answer != "" {
		t.Errorf("expected empty answer, got %q", answer)
	}
}

func TestQueryPropagatesErrors(t *testing.T) {
	embedErr := errors.New("embedding down")
	searchErr := errors.New("search down")
	llmErr := errors.New("model down")

	tests := []struct {
		name     string
		embedder index_service.Embedder
		idx      index_service.Index
		llm      llm_service.LLMService
		want     error
	}{
		{
			name:     "embedding failure",
			embedder: &fixedEmbedder{err: embedErr},
			idx:      &fakeIndex{},
			llm:      &llm_service.MockLLMService{},
			want:     embedErr,
		},
		{
			name:     "retrieval failure",
			embedder: &fixedEmbedder{},
			idx:      &fakeIndex{err: searchErr},
			llm:      &llm_service.MockLLMService{},
			want:     searchErr,
		},
		{
			name:     "completion failure",
			embedder: &fixedEmbedder{},
			idx:      &fakeIndex{},
			llm: &llm_service.MockLLMService{
				CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
					return "", llmErr
				},
			},
			want: llmErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(testLogger(), tt.embedder, tt.llm, 4)
			_, err := engine.Query(context.Background(), tt.idx, "prompt")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v in the chain, got %v", tt.want, err)
			}
		})
	}
}
