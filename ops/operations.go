package ops

import (
	"context"
	"log/slog"
	"strings"

	"github.com/juridoc/juridoc/document"
	"github.com/juridoc/juridoc/prompts"
	"github.com/juridoc/juridoc/session"
	"github.com/juridoc/juridoc/sessionlog"
)

// Summarize produces a prose summary through a direct completion over the
// first SummaryBudget runes of the document.
func (s *Service) Summarize(ctx context.Context, docs document.Set) (string, error) {
	if docs.Empty() {
		return "", ErrNoDocuments
	}

	content := truncate(strings.TrimSpace(docs[0].Text), s.cfg.SummaryBudget)
	prompt, err := s.prompts.Render(prompts.Summarize, map[string]string{"content": content})
	if err != nil {
		return "", err
	}

	s.logger.Debug("Sending summarize prompt to LLM",
		slog.String("filename", docs[0].Name),
		slog.Int("prompt_length", len(prompt)))

	response, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(response)
	if summary == "" {
		return "", ErrEmptyResult
	}

	s.appendLog(docs[0].Name, sessionlog.CategorySummary, summary)
	return summary, nil
}

// HighlightClauses lists the key clauses of the document by category.
func (s *Service) HighlightClauses(ctx context.Context, docs document.Set) (string, error) {
	return s.groundedQuery(ctx, docs, prompts.Highlight, sessionlog.CategoryHighlighted)
}

// ClauseBreakdown explains the document clause by clause.
func (s *Service) ClauseBreakdown(ctx context.Context, docs document.Set) (string, error) {
	return s.groundedQuery(ctx, docs, prompts.Breakdown, sessionlog.CategoryBreakdown)
}

// SimplifyJargon rewrites the document in plain language.
func (s *Service) SimplifyJargon(ctx context.Context, docs document.Set) (string, error) {
	return s.groundedQuery(ctx, docs, prompts.Simplify, sessionlog.CategorySimplified)
}

// ExtractEntities lists the named entities in the document by category.
func (s *Service) ExtractEntities(ctx context.Context, docs document.Set) (string, error) {
	return s.groundedQuery(ctx, docs, prompts.Entities, sessionlog.CategoryEntities)
}

// groundedQuery runs an index-grounded template operation: build (or
// reuse) the index, query it, and log the result.
func (s *Service) groundedQuery(ctx context.Context, docs document.Set, templateName string, category sessionlog.Category) (string, error) {
	if docs.Empty() {
		return "", ErrNoDocuments
	}

	prompt, err := s.prompts.Render(templateName, nil)
	if err != nil {
		return "", err
	}

	idx, err := s.builder.GetOrBuild(ctx, docs)
	if err != nil {
		return "", err
	}

	result, err := s.engine.Query(ctx, idx, prompt)
	if err != nil {
		return "", err
	}

	s.appendLog(docs[0].Name, category, result)
	return result, nil
}

// AnswerQuery answers a free-form question with the document excerpt and
// the session's conversation history interpolated into the prompt. On
// success the turn is appended to the session; on failure the session is
// untouched.
func (s *Service) AnswerQuery(ctx context.Context, sess *session.Session, docs document.Set, question string) (string, error) {
	var combined strings.Builder
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		if combined.Len() > 0 {
			combined.WriteString("\n")
		}
		combined.WriteString(doc.Text)
	}
	documentText := combined.String()
	if strings.TrimSpace(documentText) == "" {
		documentText = "No usable text found in the uploaded document."
	}

	prompt, err := s.prompts.Render(prompts.QA, map[string]string{
		"document": truncate(documentText, s.cfg.QADocumentBudget),
		"history":  sess.Render(s.cfg.HistoryTurns),
		"query":    question,
	})
	if err != nil {
		return "", err
	}

	response, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(response)
	sess.Record(question, answer)

	label := "uploaded"
	if !docs.Empty() {
		label = docs[0].Name
	}
	s.appendLog(label, sessionlog.CategoryQA, "Q: "+question+"\nA: "+answer)
	return answer, nil
}

// CompareDocuments builds one merged index over both documents and asks
// for a structured comparison. The output is not symmetric in A and B, but
// it references both documents' content.
func (s *Service) CompareDocuments(ctx context.Context, docA, docB document.Document) (string, error) {
	if strings.TrimSpace(docA.Text) == "" || strings.TrimSpace(docB.Text) == "" {
		return "", ErrNoDocuments
	}

	prompt, err := s.prompts.Render(prompts.Compare, nil)
	if err != nil {
		return "", err
	}

	merged := document.Set{docA, docB}
	idx, err := s.builder.GetOrBuild(ctx, merged)
	if err != nil {
		return "", err
	}

	result, err := s.engine.Query(ctx, idx, prompt)
	if err != nil {
		return "", err
	}

	s.appendLog(docA.Name+" vs "+docB.Name, sessionlog.CategoryComparison, result)
	return result, nil
}
