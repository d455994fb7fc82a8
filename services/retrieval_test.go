package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"chatdocs-rag/internal/storage"
	"chatdocs-rag/models"
)

// seedRecord inserts one record directly, tagged for the scope.
func seedRecord(t *testing.T, store *storage.MemoryStore, registry *ScopeRegistry, scope models.Scope, key, text string, vector []float32) {
	t.Helper()
	partition, err := registry.Resolve(scope)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	rec := models.ChunkRecord{
		Key:       key,
		Text:      text,
		Vector:    vector,
		Meta:      recordMeta(partition, nil),
		RefTitle:  "Seed Doc",
		RefLink:   "https://example.com/seed",
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Upsert(context.Background(), partition, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
}

func newTestRetrieval(embedder *stubEmbedder, store *storage.MemoryStore) (*RetrievalService, *ScopeRegistry) {
	registry := NewScopeRegistry("doc_chunks")
	return NewRetrievalService(embedder, store, registry, nil), registry
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store := storage.NewMemoryStore()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"billing question": {1, 0, 0},
	}}
	svc, registry := newTestRetrieval(embedder, store)

	scope := models.GlobalScope("support")
	seedRecord(t, store, registry, scope, "k1", "refund policy details", []float32{0.9, 0.1, 0})
	seedRecord(t, store, registry, scope, "k2", "shipping timelines", []float32{0, 1, 0})
	seedRecord(t, store, registry, scope, "k3", "office locations", []float32{0, 0, 1})

	results, err := svc.Search(context.Background(), scope, "billing question", 2)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Record.Key != "k1" {
		t.Fatalf("top result = %s, want k1", results[0].Record.Key)
	}
	if results[0].Score < results[1].Score {
		t.Fatal("results not sorted by score")
	}
}

func TestSearchScopeIsolation(t *testing.T) {
	store := storage.NewMemoryStore()
	embedder := &stubEmbedder{vectors: map[string][]float32{"query": {1, 0, 0}}}
	svc, registry := newTestRetrieval(embedder, store)

	scopeA := models.ConversationScope("conv-a")
	scopeB := models.ConversationScope("conv-b")
	seedRecord(t, store, registry, scopeA, "a1", "private to a", []float32{1, 0, 0})
	seedRecord(t, store, registry, scopeB, "b1", "private to b", []float32{1, 0, 0})

	results, err := svc.Search(context.Background(), scopeA, "query", 10)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	for _, r := range results {
		if r.Record.Key == "b1" {
			t.Fatal("search leaked a record from another conversation")
		}
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}

func TestDeleteAllIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	svc, registry := newTestRetrieval(&stubEmbedder{}, store)

	scope := models.ConversationScope("conv-x")
	for i := 0; i < 3; i++ {
		seedRecord(t, store, registry, scope, fmt.Sprintf("k%d", i), "text", []float32{1, 0, 0})
	}

	deleted, err := svc.DeleteAll(context.Background(), scope)
	if err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("deleted %d, want 3", deleted)
	}

	deleted, err = svc.DeleteAll(context.Background(), scope)
	if err != nil {
		t.Fatalf("second delete must not error: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("second delete removed %d records", deleted)
	}
}

func TestDeleteWithPredicate(t *testing.T) {
	store := storage.NewMemoryStore()
	svc, registry := newTestRetrieval(&stubEmbedder{}, store)

	scope := models.GlobalScope("manuals")
	partition, _ := registry.Resolve(scope)
	for i := 0; i < 2; i++ {
		rec := models.ChunkRecord{
			Key:    fmt.Sprintf("doc1-%d", i),
			Text:   "text",
			Vector: []float32{1, 0, 0},
			Meta:   recordMeta(partition, map[string]string{"document": "doc1"}),
		}
		if err := store.Upsert(context.Background(), partition, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	seedRecord(t, store, registry, scope, "doc2-0", "text", []float32{1, 0, 0})

	deleted, err := svc.Delete(context.Background(), scope, map[string]string{"document": "doc1"})
	if err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted %d, want 2", deleted)
	}
	if got := store.Count(partition); got != 1 {
		t.Fatalf("%d records left, want 1", got)
	}
}

func TestCallableTools(t *testing.T) {
	store := storage.NewMemoryStore()
	embedder := &stubEmbedder{vectors: map[string][]float32{"find it": {1, 0, 0}}}
	svc, registry := newTestRetrieval(embedder, store)

	scope := models.ConversationScope("conv-1")
	seedRecord(t, store, registry, scope, "k1", "the relevant passage", []float32{1, 0, 0})

	tools, handlers := svc.CallableTools(scope)
	if len(tools) != 1 || len(tools[0].FunctionDeclarations) != 1 {
		t.Fatalf("unexpected tool shape: %+v", tools)
	}
	decl := tools[0].FunctionDeclarations[0]
	if decl.Name != SearchDocumentsTool {
		t.Fatalf("tool name = %s", decl.Name)
	}

	handler, ok := handlers[SearchDocumentsTool]
	if !ok {
		t.Fatal("no handler registered for the declared tool")
	}
	out, err := handler(context.Background(), "find it")
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(out, "the relevant passage") {
		t.Fatalf("tool result missing passage text: %q", out)
	}
	if !strings.Contains(out, "Seed Doc") {
		t.Fatalf("tool result missing citation: %q", out)
	}
}

func TestCallableToolsPerScope(t *testing.T) {
	svc, _ := newTestRetrieval(&stubEmbedder{}, storage.NewMemoryStore())

	convTools, _ := svc.CallableTools(models.ConversationScope("conv-1"))
	globalTools, _ := svc.CallableTools(models.GlobalScope("manuals"))

	convDesc := convTools[0].FunctionDeclarations[0].Description
	globalDesc := globalTools[0].FunctionDeclarations[0].Description
	if convDesc == globalDesc {
		t.Fatal("tool description should reflect the scope it binds")
	}
	if !strings.Contains(globalDesc, "manuals") {
		t.Fatalf("global tool description missing category: %q", globalDesc)
	}
}

func TestFormatToolResultEmpty(t *testing.T) {
	out := FormatToolResult(nil)
	if out != "No matching passages found." {
		t.Fatalf("got %q", out)
	}
}

func TestSearchInvalidScope(t *testing.T) {
	svc, _ := newTestRetrieval(&stubEmbedder{}, storage.NewMemoryStore())
	if _, err := svc.Search(context.Background(), models.Scope{}, "q", 5); err == nil {
		t.Fatal("expected error for invalid scope")
	}
}
