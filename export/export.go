// Package export renders textual operation results as downloadable
// artifacts under the outputs directory.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

type Exporter struct {
	outputDir string
}

func NewExporter(outputDir string) *Exporter {
	return &Exporter{outputDir: outputDir}
}

// Text writes the result to <outputDir>/<name>.txt and returns the path.
func (e *Exporter) Text(name, content string) (string, error) {
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(e.outputDir, name+".txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write text export: %w", err)
	}
	return path, nil
}

// PDF renders the result as a fixed-layout document at
// <outputDir>/<name>.pdf and returns the path. Characters outside latin-1
// are replaced rather than rejected.
func (e *Exporter) PDF(name, content string) (string, error) {
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, line := range strings.Split(content, "\n") {
		pdf.MultiCell(0, 10, tr(line), "", "L", false)
	}

	path := filepath.Join(e.outputDir, name+".pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write PDF export: %w", err)
	}
	return path, nil
}
