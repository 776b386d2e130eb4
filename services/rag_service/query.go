package rag_service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/juridoc/juridoc/services/index_service"
	"github.com/juridoc/juridoc/services/llm_service"
)

// Engine answers a prompt against an index: it retrieves the most similar
// chunks, assembles a grounding context from them, and asks the language
// model for a completion constrained to that context.
type Engine struct {
	embedder index_service.Embedder
	llm      llm_service.LLMService
	topK     int
	logger   *slog.Logger
}

func NewEngine(logger *slog.Logger, embedder index_service.Embedder, llm llm_service.LLMService, topK int) *Engine {
	if topK <= 0 {
		topK = 4
	}
	return &Engine{
		embedder: embedder,
		llm:      llm,
		topK:     topK,
		logger:   logger,
	}
}

// Query returns the model's trimmed response. An empty response is a valid
// degenerate result, not an error; callers decide whether it is acceptable.
func (e *Engine) Query(ctx context.Context, idx index_service.Index, prompt string) (string, error) {
	vector, err := e.embedder.Embed(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := idx.Search(ctx, vector, e.topK)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}

	e.logger.Debug("Retrieved grounding chunks",
		slog.String("fingerprint", idx.Fingerprint()[:12]),
		slog.Int("chunk_count", len(results)))

	grounded := e.assemblePrompt(results, prompt)

	response, err := e.llm.Complete(ctx, grounded)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(response), nil
}

func (e *Engine) assemblePrompt(results []index_service.ScoredChunk, prompt string) string {
	var b strings.Builder
	b.WriteString("Use the following excerpts from the uploaded document(s) to answer. ")
	b.WriteString("Base your answer only on these excerpts.\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "[Document %c, excerpt %d]\n%s\n\n", 'A'+r.DocIndex, r.ChunkIndex+1, r.Text)
	}
	b.WriteString(prompt)
	return b.String()
}
