package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ledongthuc/pdf"

	"chatdocs-rag/internal/logger"
	"chatdocs-rag/models"
)

// maxPDFSize caps in-memory extraction to avoid OOM on huge uploads.
const maxPDFSize = 200 << 20 // 200MB

// PDFExtractor extracts text page by page, one SourceUnit per page so chunk
// provenance stays traceable to a page number.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(ctx context.Context, path string) ([]models.SourceUnit, error) {
	// Enforce context deadline before heavy operations
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= 0 {
		return nil, fmt.Errorf("%w: context deadline exceeded before extraction", models.ErrExtraction)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", models.ErrExtraction, path, err)
	}
	if stat.Size() > maxPDFSize {
		return nil, fmt.Errorf("%w: pdf too large for in-memory extraction", models.ErrExtraction)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrExtraction, path, err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", models.ErrExtraction, err)
	}

	pages := reader.NumPage()
	units := make([]models.SourceUnit, 0, pages)
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}

		units = append(units, models.SourceUnit{Text: text, UnitIndex: i - 1})
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no text extracted from %s", models.ErrExtraction, path)
	}
	return units, nil
}
