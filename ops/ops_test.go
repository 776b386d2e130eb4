package ops

import (
	"context"
	"encoding/csv"
	"errors"
	"hash/fnv"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/pgvector/pgvector-go"

	"github.com/juridoc/juridoc/document"
	"github.com/juridoc/juridoc/prompts"
	"github.com/juridoc/juridoc/services/index_service"
	"github.com/juridoc/juridoc/services/llm_service"
	"github.com/juridoc/juridoc/services/rag_service"
	"github.com/juridoc/juridoc/session"
	"github.com/juridoc/juridoc/sessionlog"
)

type bagEmbedder struct{}

func (bagEmbedder) Model() string { return "bag" }

func (bagEmbedder) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dims := make([]float32, 32)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		dims[h.Sum32()%32]++
	}
	return pgvector.NewVector(dims), nil
}

// harness wires a full operation service against an in-memory index and a
// prompt-capturing mock model.
type harness struct {
	svc     *Service
	logPath string

	mu       sync.Mutex
	captured []string
}

func newHarness(t *testing.T, respond func(prompt string) (string, error)) *harness {
	t.Helper()

	h := &harness{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	llm := &llm_service.MockLLMService{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			h.mu.Lock()
			h.captured = append(h.captured, prompt)
			h.mu.Unlock()
			if respond != nil {
				return respond(prompt)
			}
			return "mock response", nil
		},
	}

	promptStore, err := prompts.Load("")
	if err != nil {
		t.Fatal(err)
	}

	embedder := bagEmbedder{}
	builder := index_service.NewBuilder(logger, index_service.NewChunker(200, 40), embedder, index_service.NewMemoryStore(), 8)
	engine := rag_service.NewEngine(logger, embedder, llm, 4)
	auditLog := sessionlog.New(t.TempDir())
	h.logPath = auditLog.Path()

	svc, err := NewService(logger, promptStore, builder, engine, llm, auditLog, Config{
		SummaryBudget:    50,
		QADocumentBudget: 50,
		HistoryTurns:     20,
	})
	if err != nil {
		t.Fatal(err)
	}
	h.svc = svc
	return h
}

func (h *harness) lastPrompt(t *testing.T) string {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.captured) == 0 {
		t.Fatal("no prompt reached the model")
	}
	return h.captured[len(h.captured)-1]
}

// logRows returns the data rows of the audit log, without the header. A
// missing file means zero rows were ever appended.
func (h *harness) logRows(t *testing.T) [][]string {
	t.Helper()
	f, err := os.Open(h.logPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) == 0 {
		return nil
	}
	return rows[1:]
}

func mustDoc(t *testing.T, name, text string) document.Document {
	t.Helper()
	d, err := document.New(name, text)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestSummarize(t *testing.T) {
	h := newHarness(t, func(prompt string) (string, error) {
		return "  A lease between Alice and Bob.  ", nil
	})

	docs := document.Set{mustDoc(t, "lease.txt", "This lease is between Alice and Bob.")}
	summary, err := h.svc.Summarize(context.Background(), docs)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != "A lease between Alice and Bob." {
		t.Errorf("summary not trimmed: %q", summary)
	}

	rows := h.logRows(t)
	if len(rows) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(rows))
	}
	if rows[0][1] != "lease.txt" || rows[0][2] != "summary" {
		t.Errorf("unexpected log row: %v", rows[0])
	}
}

func TestSummarizeTruncatesDocument(t *testing.T) {
	h := newHarness(t, nil)

	// SummaryBudget in the harness is 50 runes.
	text := strings.Repeat("a", 60) + " BEYOND-THE-BUDGET"
	if _, err := h.svc.Summarize(context.Background(), document.Set{mustDoc(t, "big.txt", text)}); err != nil {
		t.Fatal(err)
	}

	prompt := h.lastPrompt(t)
	if !strings.Contains(prompt, strings.Repeat("a", 50)) {
		t.Error("prompt missing the in-budget document prefix")
	}
	if strings.Contains(prompt, "BEYOND-THE-BUDGET") {
		t.Error("prompt contains text past the truncation budget")
	}
}

func TestSummarizeEmptyResponse(t *testing.T) {
	h := newHarness(t, func(prompt string) (string, error) {
		return "   \n ", nil
	})

	_, err := h.svc.Summarize(context.Background(), document.Set{mustDoc(t, "a.txt", "text")})
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if rows := h.logRows(t); len(rows) != 0 {
		t.Errorf("empty result must not be logged, got %d rows", len(rows))
	}
}

func TestSummarizeNoDocuments(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.svc.Summarize(context.Background(), nil); !errors.Is(err, ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestHighlightClausesGrounded(t *testing.T) {
	h := newHarness(t, func(prompt string) (string, error) {
		return "Termination: either party may terminate on 30 days notice.", nil
	})

	docs := document.Set{mustDoc(t, "contract.txt",
		"Termination Clause: either party may terminate this agreement with 30 days written notice.")}
	result, err := h.svc.HighlightClauses(context.Background(), docs)
	if err != nil {
		t.Fatalf("HighlightClauses failed: %v", err)
	}
	if !strings.Contains(result, "30 days notice") {
		t.Errorf("unexpected result: %q", result)
	}

	prompt := h.lastPrompt(t)
	if !strings.Contains(prompt, "[Document A, excerpt 1]") {
		t.Error("prompt missing grounding excerpt marker")
	}
	if !strings.Contains(prompt, "30 days written notice") {
		t.Error("prompt missing the document's own text")
	}

	rows := h.logRows(t)
	if len(rows) != 1 || rows[0][2] != "highlighted_clauses" {
		t.Errorf("unexpected log rows: %v", rows)
	}
}

func TestGroundedOperationCategories(t *testing.T) {
	h := newHarness(t, nil)
	docs := document.Set{mustDoc(t, "contract.txt", "The tenant shall maintain the premises in good repair.")}
	ctx := context.Background()

	type op func(context.Context, document.Set) (string, error)
	calls := []struct {
		run      op
		category string
	}{
		{h.svc.ClauseBreakdown, "clause_breakdown"},
		{h.svc.SimplifyJargon, "simplified"},
		{h.svc.ExtractEntities, "entities"},
	}

	for _, c := range calls {
		if _, err := c.run(ctx, docs); err != nil {
			t.Fatalf("%s failed: %v", c.category, err)
		}
	}

	rows := h.logRows(t)
	if len(rows) != len(calls) {
		t.Fatalf("expected %d log rows, got %d", len(calls), len(rows))
	}
	for i, c := range calls {
		if rows[i][2] != c.category {
			t.Errorf("row %d: expected category %q, got %q", i, c.category, rows[i][2])
		}
	}
}

func TestAnswerQueryRecordsTurn(t *testing.T) {
	h := newHarness(t, func(prompt string) (string, error) {
		return "Thirty days.", nil
	})

	sess := session.New()
	docs := document.Set{mustDoc(t, "lease.txt", "Notice period is thirty days.")}

	answer, err := h.svc.AnswerQuery(context.Background(), sess, docs, "What is the notice period?")
	if err != nil {
		t.Fatalf("AnswerQuery failed: %v", err)
	}
	if answer != "Thirty days." {
		t.Errorf("unexpected answer: %q", answer)
	}

	history := sess.History()
	if len(history) != 1 {
		t.Fatalf("expected exactly 1 recorded turn, got %d", len(history))
	}
	if history[0].Question != "What is the notice period?" || history[0].Answer != "Thirty days." {
		t.Errorf("unexpected turn: %+v", history[0])
	}

	rows := h.logRows(t)
	if len(rows) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(rows))
	}
	if rows[0][2] != "qa" {
		t.Errorf("expected qa category, got %q", rows[0][2])
	}
	if rows[0][3] != "Q: What is the notice period?\nA: Thirty days." {
		t.Errorf("unexpected log content: %q", rows[0][3])
	}
}

func TestAnswerQueryFailureLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t, func(prompt string) (string, error) {
		return "", errors.New("model unavailable")
	})

	sess := session.New()
	_, err := h.svc.AnswerQuery(context.Background(), sess, nil, "anything")
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(sess.History()) != 0 {
		t.Error("failed query must not append a turn")
	}
	if rows := h.logRows(t); len(rows) != 0 {
		t.Errorf("failed query must not be logged, got %d rows", len(rows))
	}
}

func TestAnswerQueryIncludesHistory(t *testing.T) {
	h := newHarness(t, nil)

	sess := session.New()
	sess.Record("Who are the parties?", "Alice and Bob.")

	docs := document.Set{mustDoc(t, "lease.txt", "lease text")}
	if _, err := h.svc.AnswerQuery(context.Background(), sess, docs, "And the term?"); err != nil {
		t.Fatal(err)
	}

	prompt := h.lastPrompt(t)
	if !strings.Contains(prompt, "User: Who are the parties?\nAI: Alice and Bob.") {
		t.Error("prompt missing the prior turn")
	}
	if !strings.Contains(prompt, "User: And the term?") {
		t.Error("prompt missing the current question")
	}
}

func TestAnswerQueryTruncatesDocument(t *testing.T) {
	h := newHarness(t, nil)

	// QADocumentBudget in the harness is 50 runes.
	text := strings.Repeat("b", 60) + " PAST-THE-CAP"
	docs := document.Set{mustDoc(t, "big.txt", text)}

	if _, err := h.svc.AnswerQuery(context.Background(), session.New(), docs, "q"); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(h.lastPrompt(t), "PAST-THE-CAP") {
		t.Error("prompt contains document text past the budget")
	}
}

func TestAnswerQueryWithoutDocument(t *testing.T) {
	h := newHarness(t, func(prompt string) (string, error) {
		return "General answer.", nil
	})

	answer, err := h.svc.AnswerQuery(context.Background(), session.New(), nil, "What is consideration?")
	if err != nil {
		t.Fatalf("document-free question should still be answered: %v", err)
	}
	if answer != "General answer." {
		t.Errorf("unexpected answer: %q", answer)
	}
	if !strings.Contains(h.lastPrompt(t), "No usable text found") {
		t.Error("prompt missing the no-document placeholder")
	}
}

func TestCompareDocuments(t *testing.T) {
	h := newHarness(t, func(prompt string) (string, error) {
		return "Document A allows subletting, Document B forbids it.", nil
	})

	docA := mustDoc(t, "lease-a.txt", "The tenant may sublet the premises with consent.")
	docB := mustDoc(t, "lease-b.txt", "Subletting of the premises is prohibited entirely.")

	result, err := h.svc.CompareDocuments(context.Background(), docA, docB)
	if err != nil {
		t.Fatalf("CompareDocuments failed: %v", err)
	}
	if result == "" {
		t.Fatal("empty comparison")
	}

	// Both documents must reach the model through the merged index.
	prompt := h.lastPrompt(t)
	if !strings.Contains(prompt, "sublet the premises with consent") {
		t.Error("prompt missing content from the first document")
	}
	if !strings.Contains(prompt, "prohibited entirely") {
		t.Error("prompt missing content from the second document")
	}
	if !strings.Contains(prompt, "[Document A") || !strings.Contains(prompt, "[Document B") {
		t.Error("prompt missing per-document excerpt labels")
	}

	rows := h.logRows(t)
	if len(rows) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(rows))
	}
	if rows[0][1] != "lease-a.txt vs lease-b.txt" || rows[0][2] != "comparison" {
		t.Errorf("unexpected log row: %v", rows[0])
	}
}

func TestCompareDocumentsRequiresBoth(t *testing.T) {
	h := newHarness(t, nil)

	docA := mustDoc(t, "a.txt", "some text")
	if _, err := h.svc.CompareDocuments(context.Background(), docA, document.Document{Name: "b.txt"}); !errors.Is(err, ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestLogRowCountMatchesSuccesses(t *testing.T) {
	failNext := false
	h := newHarness(t, func(prompt string) (string, error) {
		if failNext {
			return "", errors.New("flaky model")
		}
		return "ok", nil
	})

	ctx := context.Background()
	docs := document.Set{mustDoc(t, "d.txt", "document body text")}

	if _, err := h.svc.Summarize(ctx, docs); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.ExtractEntities(ctx, docs); err != nil {
		t.Fatal(err)
	}

	failNext = true
	if _, err := h.svc.SimplifyJargon(ctx, docs); err == nil {
		t.Fatal("expected a model failure")
	}

	if rows := h.logRows(t); len(rows) != 2 {
		t.Errorf("expected 2 rows for 2 successes, got %d", len(rows))
	}
}
