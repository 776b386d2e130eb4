package index_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Embedder converts a piece of text into a vector representation.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

type EmbeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type EmbeddingResponse struct {
	Data []struct {
		Embedding  *pgvector.Vector `json:"embedding"`
		TokenCount int              `json:"token_count"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Object string `json:"object"`
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. The API
// key is read from OPENAI_API_KEY.
type OpenAIEmbedder struct {
	apiURL     string
	model      string
	httpClient *http.Client
}

func NewOpenAIEmbedder(apiURL, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		apiURL:     apiURL,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *OpenAIEmbedder) Model() string {
	return e.model
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return pgvector.Vector{}, fmt.Errorf("OPENAI_API_KEY not set")
	}

	requestBody := EmbeddingRequest{
		Input: text,
		Model: e.model,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return pgvector.Vector{}, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var embeddingResp EmbeddingResponse
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(&embeddingResp); err != nil {
		return pgvector.Vector{}, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	if len(embeddingResp.Data) == 0 || embeddingResp.Data[0].Embedding == nil {
		return pgvector.Vector{}, fmt.Errorf("no embedding data received")
	}

	return *embeddingResp.Data[0].Embedding, nil
}
