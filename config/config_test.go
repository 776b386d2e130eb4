package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg := Load()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8086", cfg.HTTPPort)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 1200, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 200, cfg.Pipeline.ChunkOverlap)
	assert.Equal(t, 4, cfg.Pipeline.TopK)
	assert.Equal(t, "ollama", cfg.Pipeline.LLMProvider)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("LLM_TIMEOUT", "30")

	cfg := Load()

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, int64(1<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
}

func TestLoadPipelineFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chunk_size: 800
chunk_overlap: 100
top_k: 6
llm_provider: openai
llm_model: gpt-4o-mini
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg := Load()

	assert.Equal(t, 800, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 100, cfg.Pipeline.ChunkOverlap)
	assert.Equal(t, 6, cfg.Pipeline.TopK)
	assert.Equal(t, "openai", cfg.Pipeline.LLMProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.Pipeline.LLMModel)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 12000, cfg.Pipeline.SummaryBudget)
	assert.Equal(t, 1536, cfg.Pipeline.EmbeddingDim)
}

func TestLoadPipelineRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chunk_size: 100
chunk_overlap: 150
top_k: -1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg := Load()

	// Overlap must stay below the chunk size.
	assert.Equal(t, 100, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 25, cfg.Pipeline.ChunkOverlap)
	assert.Equal(t, 4, cfg.Pipeline.TopK)
}

func TestLoadPipelineMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: [not an int"), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg := Load()
	assert.Equal(t, defaultPipeline(), cfg.Pipeline)
}
