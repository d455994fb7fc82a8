package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"chatdocs-rag/models"
)

// HTMLExtractor strips markup and yields the visible text as one unit.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(ctx context.Context, path string) ([]models.SourceUnit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrExtraction, path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: parse html %s: %v", models.ErrExtraction, path, err)
	}

	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		b.WriteString(sel.Text())
	})
	text := normalizeWhitespace(b.String())
	if text == "" {
		// Fragment without a body element
		text = normalizeWhitespace(doc.Text())
	}
	if text == "" {
		return nil, fmt.Errorf("%w: no text content in %s", models.ErrExtraction, path)
	}

	return []models.SourceUnit{{Text: text, UnitIndex: 0}}, nil
}

// normalizeWhitespace collapses runs of blank lines and trims each line.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
