package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"chatdocs-rag/models"
)

// TextExtractor reads plain text and Markdown files. Form feeds split the
// document into units; most files yield a single unit.
type TextExtractor struct{}

func (e *TextExtractor) Extract(ctx context.Context, path string) ([]models.SourceUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrExtraction, path, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("%w: %s is empty", models.ErrExtraction, path)
	}

	var units []models.SourceUnit
	for _, segment := range strings.Split(text, "\f") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		units = append(units, models.SourceUnit{Text: segment, UnitIndex: len(units)})
	}
	return units, nil
}
