package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/juridoc/juridoc/config"
	"github.com/juridoc/juridoc/export"
	"github.com/juridoc/juridoc/logging"
	"github.com/juridoc/juridoc/ops"
	"github.com/juridoc/juridoc/prompts"
	"github.com/juridoc/juridoc/services/extract_service"
	"github.com/juridoc/juridoc/services/index_service"
	"github.com/juridoc/juridoc/services/llm_service"
	"github.com/juridoc/juridoc/services/rag_service"
	"github.com/juridoc/juridoc/session"
	"github.com/juridoc/juridoc/sessionlog"
)

var rootCmd = &cobra.Command{
	Use:   "juridoc",
	Short: "Legal document assistant: summarize, analyze, and question legal documents",
	Long: `juridoc ingests legal documents (txt, docx, pdf - scanned or born-digital),
builds a semantic index over them, and answers questions or produces derived
artifacts (summaries, clause breakdowns, entity listings, comparisons)
through a language model grounded on the indexed text.`,
	SilenceUsage: true,
}

// app bundles the wired pipeline components shared by all commands.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	extractor *extract_service.DocumentExtractor
	ops       *ops.Service
	exporter  *export.Exporter
	sessions  *session.Store
	auditLog  *sessionlog.Logger
	pool      *pgxpool.Pool
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	logger, err := initLogger(cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	promptStore, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}

	embedder := index_service.NewOpenAIEmbedder(cfg.Pipeline.EmbeddingURL, cfg.Pipeline.EmbeddingModel)

	var store index_service.Store
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = index_service.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		pgStore := index_service.NewPgStore(pool, logger)
		if err := pgStore.EnsureSchema(ctx, cfg.Pipeline.EmbeddingDim); err != nil {
			return nil, err
		}
		if err := pgStore.ReindexIfNeeded(ctx); err != nil {
			logger.Warn("Vector index maintenance failed", slog.String("error", err.Error()))
		}
		store = pgStore
	} else {
		store = index_service.NewMemoryStore()
	}

	chunker := index_service.NewChunker(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	builder := index_service.NewBuilder(logger, chunker, embedder, store, cfg.Pipeline.IndexCacheSize)

	var llm llm_service.LLMService
	switch cfg.Pipeline.LLMProvider {
	case "openai":
		llm = llm_service.NewOpenAIService(logger, "", cfg.Pipeline.LLMModel, cfg.LLMTimeout)
	default:
		llm = llm_service.NewOllamaService(logger, cfg.Pipeline.LLMBaseURL, cfg.Pipeline.LLMModel, cfg.LLMTimeout)
	}

	engine := rag_service.NewEngine(logger, embedder, llm, cfg.Pipeline.TopK)

	auditLog := sessionlog.New(cfg.LogDir)
	opsService, err := ops.NewService(logger, promptStore, builder, engine, llm, auditLog, ops.Config{
		SummaryBudget:    cfg.Pipeline.SummaryBudget,
		QADocumentBudget: cfg.Pipeline.QADocumentBudget,
		HistoryTurns:     cfg.Pipeline.HistoryTurns,
	})
	if err != nil {
		return nil, err
	}

	ocr := extract_service.NewTesseractEngine(logger)
	extractor := extract_service.NewDocumentExtractor(logger, ocr, cfg.Pipeline.OCRWorkers)

	return &app{
		cfg:       cfg,
		logger:    logger,
		extractor: extractor,
		ops:       opsService,
		exporter:  export.NewExporter(cfg.OutputDir),
		sessions:  session.NewStore(logger),
		auditLog:  auditLog,
		pool:      pool,
	}, nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func initLogger(logDir string) (*slog.Logger, error) {
	fileHandler, err := logging.NewDailyFileHandler(filepath.Join(logDir, "service"), &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	if err != nil {
		return nil, err
	}

	return slog.New(fileHandler), nil
}
