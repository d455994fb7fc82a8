package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"chatdocs-rag/internal/logger"
	"chatdocs-rag/models"
)

// XLSXExtractor yields one SourceUnit per worksheet, rows joined by
// newlines and cells by tabs.
type XLSXExtractor struct{}

func (e *XLSXExtractor) Extract(ctx context.Context, path string) ([]models.SourceUnit, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrExtraction, path, err)
	}
	defer f.Close()

	var units []models.SourceUnit
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			logger.Warn("Failed to read worksheet", "sheet", sheet, "error", err)
			continue
		}

		var b strings.Builder
		b.WriteString(sheet)
		b.WriteString("\n")
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}

		if b.Len() > len(sheet)+1 {
			units = append(units, models.SourceUnit{Text: b.String(), UnitIndex: len(units)})
		}
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no rows extracted from %s", models.ErrExtraction, path)
	}
	return units, nil
}
