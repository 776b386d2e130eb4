// Package ops implements the operation library: each operation binds a
// prompt template, routes through the query engine or a direct completion,
// and records an audit row on success.
package ops

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/juridoc/juridoc/prompts"
	"github.com/juridoc/juridoc/services/index_service"
	"github.com/juridoc/juridoc/services/llm_service"
	"github.com/juridoc/juridoc/services/rag_service"
	"github.com/juridoc/juridoc/sessionlog"
)

// ErrEmptyResult marks a completion that came back empty. It is a
// degenerate success, distinct from a model invocation failure.
var ErrEmptyResult = errors.New("model returned an empty response")

// ErrNoDocuments is returned when an operation is invoked without the
// documents it needs.
var ErrNoDocuments = errors.New("no document provided")

// Config carries the operation-level tunables.
type Config struct {
	// SummaryBudget and QADocumentBudget are hard truncation lengths in
	// runes. Text beyond them is not considered, by design: completeness is
	// traded for guaranteed context-window fit.
	SummaryBudget    int
	QADocumentBudget int
	// HistoryTurns caps how many past turns are interpolated into QA
	// prompts.
	HistoryTurns int
}

type Service struct {
	logger   *slog.Logger
	prompts  *prompts.Store
	builder  *index_service.Builder
	engine   *rag_service.Engine
	llm      llm_service.LLMService
	auditLog *sessionlog.Logger
	cfg      Config
}

func NewService(logger *slog.Logger, promptStore *prompts.Store, builder *index_service.Builder, engine *rag_service.Engine, llm llm_service.LLMService, auditLog *sessionlog.Logger, cfg Config) (*Service, error) {
	if err := promptStore.Validate(
		prompts.Summarize,
		prompts.Highlight,
		prompts.Breakdown,
		prompts.Simplify,
		prompts.Entities,
		prompts.QA,
		prompts.Compare,
	); err != nil {
		return nil, fmt.Errorf("prompt set incomplete: %w", err)
	}

	if cfg.SummaryBudget <= 0 {
		cfg.SummaryBudget = 12000
	}
	if cfg.QADocumentBudget <= 0 {
		cfg.QADocumentBudget = 2000
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 20
	}

	return &Service{
		logger:   logger,
		prompts:  promptStore,
		builder:  builder,
		engine:   engine,
		llm:      llm,
		auditLog: auditLog,
		cfg:      cfg,
	}, nil
}

// appendLog records a completed operation. Log-write failures are reported
// in the service log but never fail the user-visible operation.
func (s *Service) appendLog(sourceLabel string, category sessionlog.Category, content string) {
	if err := s.auditLog.Append(sourceLabel, category, content); err != nil {
		s.logger.Error("Failed to append session log row",
			slog.String("category", string(category)),
			slog.String("error", err.Error()))
	}
}

// truncate hard-cuts text to a rune budget.
func truncate(text string, budget int) string {
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	return string(runes[:budget])
}
