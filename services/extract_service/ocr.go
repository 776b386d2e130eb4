package extract_service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
)

// OCREngine recognizes text on a single page image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// TesseractEngine runs OCR through the system tesseract installation.
type TesseractEngine struct {
	logger *slog.Logger
}

func NewTesseractEngine(logger *slog.Logger) *TesseractEngine {
	return &TesseractEngine{logger: logger}
}

func (t *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// gosseract clients are not safe for concurrent use; one per page.
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(image); err != nil {
		return "", err
	}
	return client.Text()
}

type pageImage struct {
	pageNr int
	objNr  int
	data   []byte
}

// ocrPDFPages rasterized-page fallback: pull every page image out of the
// PDF and OCR them. Pages are processed with bounded parallelism but the
// resulting text is concatenated strictly in page order.
func (e *DocumentExtractor) ocrPDFPages(ctx context.Context, filename string, data []byte) (string, error) {
	pageMaps, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, nil)
	if err != nil {
		return "", &ExtractionError{
			Source: filename,
			Reason: "failed to extract page images for OCR",
			Err:    err,
		}
	}

	var images []pageImage
	for _, m := range pageMaps {
		for objNr, img := range m {
			raw, err := io.ReadAll(img)
			if err != nil {
				return "", &ExtractionError{
					Source: filename,
					Reason: "failed to read page image",
					Err:    err,
				}
			}
			images = append(images, pageImage{pageNr: img.PageNr, objNr: objNr, data: raw})
		}
	}

	if len(images) == 0 {
		return "", &ExtractionError{
			Source: filename,
			Reason: "PDF has neither a text layer nor renderable page images",
		}
	}

	sort.Slice(images, func(i, j int) bool {
		if images[i].pageNr != images[j].pageNr {
			return images[i].pageNr < images[j].pageNr
		}
		return images[i].objNr < images[j].objNr
	})

	e.logger.Info("Starting OCR over PDF page images",
		slog.String("filename", filename),
		slog.Int("image_count", len(images)))

	texts := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.ocrWorkers)

	for i := range images {
		g.Go(func() error {
			text, err := e.ocr.Recognize(gctx, images[i].data)
			if err != nil {
				e.logger.Error("OCR failed on page image",
					slog.String("filename", filename),
					slog.Int("page_number", images[i].pageNr),
					slog.String("error", err.Error()))
				return err
			}
			texts[i] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", &ExtractionError{
			Source: filename,
			Reason: "OCR failed",
			Err:    err,
		}
	}

	return strings.Join(texts, "\n"), nil
}
