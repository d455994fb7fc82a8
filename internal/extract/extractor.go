package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"chatdocs-rag/models"
)

// Extractor turns a source document into a sequence of SourceUnits (one per
// page, sheet, or file depending on the format). Failures wrap
// models.ErrExtraction and abort the whole ingestion.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]models.SourceUnit, error)
}

// Registry resolves an extractor from the file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry builds the default registry covering PDF, plain text/Markdown,
// HTML, and XLSX sources.
func NewRegistry() *Registry {
	return &Registry{byExt: map[string]Extractor{
		".pdf":  &PDFExtractor{},
		".txt":  &TextExtractor{},
		".md":   &TextExtractor{},
		".html": &HTMLExtractor{},
		".htm":  &HTMLExtractor{},
		".xlsx": &XLSXExtractor{},
	}}
}

// Register adds or replaces the extractor for an extension (with dot).
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// ForPath returns the extractor responsible for the given file.
func (r *Registry) ForPath(path string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported document type %q", models.ErrExtraction, ext)
	}
	return e, nil
}

// Extract dispatches on the file extension.
func (r *Registry) Extract(ctx context.Context, path string) ([]models.SourceUnit, error) {
	e, err := r.ForPath(path)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, path)
}
