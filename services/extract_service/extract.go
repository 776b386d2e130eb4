package extract_service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"

	"github.com/juridoc/juridoc/document"
)

var mimeTypes = map[string]string{
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// DocumentExtractor converts an uploaded file into a normalized text
// document. PDFs are tried through the text layer first; when that yields
// nothing (pure scans), extraction falls back to per-page OCR.
type DocumentExtractor struct {
	logger     *slog.Logger
	ocr        OCREngine
	ocrWorkers int
}

func NewDocumentExtractor(logger *slog.Logger, ocr OCREngine, ocrWorkers int) *DocumentExtractor {
	if ocrWorkers <= 0 {
		ocrWorkers = 1
	}
	return &DocumentExtractor{
		logger:     logger,
		ocr:        ocr,
		ocrWorkers: ocrWorkers,
	}
}

// Extract reads the file at path and returns its text as a Document.
func (e *DocumentExtractor) Extract(ctx context.Context, path string) (document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, &ExtractionError{
			Source: filepath.Base(path),
			Reason: "could not read file",
			Err:    err,
		}
	}
	return e.ExtractBytes(ctx, filepath.Base(path), data)
}

// ExtractBytes dispatches on the file extension and produces a Document.
// An output that is empty or whitespace-only is an ExtractionError, never
// an empty Document.
func (e *DocumentExtractor) ExtractBytes(ctx context.Context, filename string, data []byte) (document.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var text string
	var err error
	switch ext {
	case ".txt":
		text, err = e.extractPlainText(filename, data)
	case ".doc", ".docx":
		text, err = e.extractWord(filename, data)
	case ".pdf":
		text, err = e.extractPDF(ctx, filename, data)
	default:
		e.logger.Error("Unsupported file type",
			slog.String("filename", filename),
			slog.String("extension", ext))
		return document.Document{}, &ExtractionError{
			Source: filename,
			Reason: fmt.Sprintf("unsupported file type %q", ext),
		}
	}
	if err != nil {
		return document.Document{}, err
	}

	if strings.TrimSpace(text) == "" {
		e.logger.Error("No usable text extracted",
			slog.String("filename", filename))
		return document.Document{}, &ExtractionError{
			Source: filename,
			Reason: "no extractable text found in the document",
		}
	}

	e.logger.Info("Document extracted",
		slog.String("filename", filename),
		slog.String("content_type", getMimeType(ext)),
		slog.Int("text_length", len(text)))

	return document.Document{Name: filename, Text: text}, nil
}

func (e *DocumentExtractor) extractPlainText(filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &ExtractionError{
			Source: filename,
			Reason: "file is not valid UTF-8 text",
		}
	}
	return string(data), nil
}

func (e *DocumentExtractor) extractWord(filename string, data []byte) (string, error) {
	e.logger.Debug("Starting Word document text extraction",
		slog.String("filename", filename),
		slog.Int("data_size", len(data)))

	result, err := docconv.Convert(bytes.NewReader(data), mimeTypes[".docx"], false)
	if err != nil {
		e.logger.Error("Failed to convert Word document",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return "", &ExtractionError{
			Source: filename,
			Reason: "failed to convert Word document",
			Err:    err,
		}
	}

	return result.Body, nil
}

// extractPDF is a designed two-stage strategy: attempt text-layer
// extraction, inspect the result for emptiness, and only then run OCR over
// the rasterized pages.
func (e *DocumentExtractor) extractPDF(ctx context.Context, filename string, data []byte) (string, error) {
	text, err := e.extractPDFTextLayer(filename, data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}

	if err != nil {
		e.logger.Warn("PDF text layer unreadable, falling back to OCR",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
	} else {
		e.logger.Info("PDF has no text layer, falling back to OCR",
			slog.String("filename", filename))
	}

	ocrText, ocrErr := e.ocrPDFPages(ctx, filename, data)
	if ocrErr != nil {
		// Keep the original failure attached when both stages fail.
		if err != nil {
			return "", &ExtractionError{
				Source: filename,
				Reason: fmt.Sprintf("text layer failed (%v) and OCR fallback failed", err),
				Err:    ocrErr,
			}
		}
		return "", ocrErr
	}
	return ocrText, nil
}

func (e *DocumentExtractor) extractPDFTextLayer(filename string, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	totalPage := reader.NumPage()
	e.logger.Debug("Starting PDF text extraction",
		slog.String("filename", filename),
		slog.Int("total_pages", totalPage))

	var b strings.Builder
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			e.logger.Warn("Null page encountered",
				slog.String("filename", filename),
				slog.Int("page_number", pageIndex))
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", pageIndex, err)
		}

		e.logger.Debug("Extracted text from page",
			slog.Int("page_number", pageIndex),
			slog.Int("text_length", len(text)))

		b.WriteString(text)
	}

	return b.String(), nil
}

func getMimeType(ext string) string {
	if mime, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}
