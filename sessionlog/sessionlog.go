// Package sessionlog keeps the append-only audit trail of completed
// operations: one CSV row per result, header written once.
package sessionlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category labels a log row with the operation that produced it.
type Category string

const (
	CategorySummary     Category = "summary"
	CategoryHighlighted Category = "highlighted_clauses"
	CategoryBreakdown   Category = "clause_breakdown"
	CategorySimplified  Category = "simplified"
	CategoryEntities    Category = "entities"
	CategoryQA          Category = "qa"
	CategoryComparison  Category = "comparison"
	CategoryExportedPDF Category = "exported_pdf"
)

var header = []string{"timestamp", "source_label", "category", "content"}

// Logger appends operation results to a CSV file. Appends are serialized
// through a mutex so concurrent operations cannot interleave rows.
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func New(logDir string) *Logger {
	return &Logger{
		path: filepath.Join(logDir, "session_log.csv"),
		now:  time.Now,
	}
}

// Append writes one row. The header row is created together with the file
// on first use.
func (l *Logger) Append(sourceLabel string, category Category, content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	writeHeader := false
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		writeHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write log header: %w", err)
		}
	}

	row := []string{l.now().Format(time.RFC3339), sourceLabel, string(category), content}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write log row: %w", err)
	}

	w.Flush()
	return w.Error()
}

// Path returns the location of the log file.
func (l *Logger) Path() string {
	return l.path
}
