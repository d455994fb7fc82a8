package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatdocs-rag/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestTextExtractorSingleUnit(t *testing.T) {
	path := writeFile(t, "doc.txt", "plain body text\nwith two lines")

	units, err := (&TextExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("got %d units, want 1", len(units))
	}
	if units[0].Text != "plain body text\nwith two lines" {
		t.Fatalf("text = %q", units[0].Text)
	}
}

func TestTextExtractorFormFeedUnits(t *testing.T) {
	path := writeFile(t, "doc.txt", "page one\fpage two\f\fpage three")

	units, err := (&TextExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("got %d units, want 3", len(units))
	}
	for i, want := range []string{"page one", "page two", "page three"} {
		if units[i].Text != want || units[i].UnitIndex != i {
			t.Fatalf("unit %d = %+v", i, units[i])
		}
	}
}

func TestTextExtractorEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.txt", "   \n  ")
	_, err := (&TextExtractor{}).Extract(context.Background(), path)
	if !errors.Is(err, models.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestHTMLExtractorStripsMarkup(t *testing.T) {
	html := `<html><head><style>body { color: red }</style></head>
<body><h1>Title</h1><p>First paragraph.</p><script>alert(1)</script></body></html>`
	path := writeFile(t, "page.html", html)

	units, err := (&HTMLExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("got %d units", len(units))
	}
	text := units[0].Text
	if !strings.Contains(text, "Title") || !strings.Contains(text, "First paragraph.") {
		t.Fatalf("visible text missing: %q", text)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, "color: red") {
		t.Fatalf("script/style leaked into text: %q", text)
	}
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()

	path := writeFile(t, "notes.md", "markdown content")
	units, err := r.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("registry dispatch failed: %v", err)
	}
	if len(units) != 1 || units[0].Text != "markdown content" {
		t.Fatalf("units = %+v", units)
	}
}

func TestRegistryUnsupportedExtension(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extract(context.Background(), "image.png")
	if !errors.Is(err, models.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestRegistryRegisterOverride(t *testing.T) {
	r := NewRegistry()
	r.Register(".csv", &TextExtractor{})

	path := writeFile(t, "data.csv", "a,b,c")
	units, err := r.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("registered extension not dispatched: %v", err)
	}
	if units[0].Text != "a,b,c" {
		t.Fatalf("text = %q", units[0].Text)
	}
}
