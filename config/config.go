package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Pipeline holds the tunables of the ingestion and retrieval pipeline.
// These live in an optional config.yaml so deployments can adjust chunking
// and retrieval settings without touching the environment.
type Pipeline struct {
	ChunkSize        int    `yaml:"chunk_size"`
	ChunkOverlap     int    `yaml:"chunk_overlap"`
	TopK             int    `yaml:"top_k"`
	SummaryBudget    int    `yaml:"summary_budget"`
	QADocumentBudget int    `yaml:"qa_document_budget"`
	HistoryTurns     int    `yaml:"history_turns"`
	IndexCacheSize   int    `yaml:"index_cache_size"`
	EmbeddingModel   string `yaml:"embedding_model"`
	EmbeddingURL     string `yaml:"embedding_url"`
	EmbeddingDim     int    `yaml:"embedding_dimensions"`
	LLMProvider      string `yaml:"llm_provider"`
	LLMModel         string `yaml:"llm_model"`
	LLMBaseURL       string `yaml:"llm_base_url"`
	OCRWorkers       int    `yaml:"ocr_workers"`
}

type Config struct {
	Environment    string
	Domains        []string
	CertCacheDir   string
	HTTPPort       string
	HTTPSPort      string
	DatabaseURL    string
	DataDir        string
	OutputDir      string
	LogDir         string
	UsersFile      string
	PromptsFile    string
	MaxUploadBytes int64
	LLMTimeout     time.Duration
	AdminPassword  string

	Pipeline Pipeline
}

var isTest bool

func init() {
	isTest = os.Getenv("GO_ENVIRONMENT") == "test"
	if !isTest {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}
}

func Load() Config {
	return Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		Domains:        []string{getEnv("DOMAIN", "example.com")},
		CertCacheDir:   getEnv("CERT_CACHE_DIR", "/etc/letsencrypt/live/example.com"),
		HTTPPort:       getEnv("HTTP_PORT", "8086"),
		HTTPSPort:      getEnv("HTTPS_PORT", "443"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DataDir:        getEnv("DATA_DIR", "data"),
		OutputDir:      getEnv("OUTPUT_DIR", "outputs"),
		LogDir:         getEnv("LOG_DIR", "logs"),
		UsersFile:      getEnv("USERS_FILE", "users.json"),
		PromptsFile:    getEnv("PROMPTS_FILE", ""),
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 5<<20)),
		LLMTimeout:     time.Duration(getEnvAsInt("LLM_TIMEOUT", 120)) * time.Second,
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		Pipeline:       loadPipeline(getEnv("CONFIG_FILE", "config.yaml")),
	}
}

func loadPipeline(path string) Pipeline {
	p := defaultPipeline()
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		log.Printf("Warning: ignoring malformed %s: %v", path, err)
		return defaultPipeline()
	}
	applyPipelineDefaults(&p)
	return p
}

func defaultPipeline() Pipeline {
	return Pipeline{
		ChunkSize:        1200,
		ChunkOverlap:     200,
		TopK:             4,
		SummaryBudget:    12000,
		QADocumentBudget: 2000,
		HistoryTurns:     20,
		IndexCacheSize:   32,
		EmbeddingModel:   "text-embedding-3-small",
		EmbeddingURL:     "https://api.openai.com/v1/embeddings",
		EmbeddingDim:     1536,
		LLMProvider:      "ollama",
		LLMModel:         "llama3",
		LLMBaseURL:       "http://localhost:11434",
		OCRWorkers:       2,
	}
}

func applyPipelineDefaults(p *Pipeline) {
	d := defaultPipeline()
	if p.ChunkSize <= 0 {
		p.ChunkSize = d.ChunkSize
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		p.ChunkOverlap = d.ChunkOverlap
		if p.ChunkOverlap >= p.ChunkSize {
			p.ChunkOverlap = p.ChunkSize / 4
		}
	}
	if p.TopK <= 0 {
		p.TopK = d.TopK
	}
	if p.SummaryBudget <= 0 {
		p.SummaryBudget = d.SummaryBudget
	}
	if p.QADocumentBudget <= 0 {
		p.QADocumentBudget = d.QADocumentBudget
	}
	if p.HistoryTurns <= 0 {
		p.HistoryTurns = d.HistoryTurns
	}
	if p.IndexCacheSize < 0 {
		p.IndexCacheSize = 0
	}
	if p.EmbeddingModel == "" {
		p.EmbeddingModel = d.EmbeddingModel
	}
	if p.EmbeddingURL == "" {
		p.EmbeddingURL = d.EmbeddingURL
	}
	if p.EmbeddingDim <= 0 {
		p.EmbeddingDim = d.EmbeddingDim
	}
	if p.LLMProvider == "" {
		p.LLMProvider = d.LLMProvider
	}
	if p.LLMModel == "" {
		p.LLMModel = d.LLMModel
	}
	if p.LLMBaseURL == "" {
		p.LLMBaseURL = d.LLMBaseURL
	}
	if p.OCRWorkers <= 0 {
		p.OCRWorkers = d.OCRWorkers
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
