package storage

import (
	"context"
	"testing"

	"chatdocs-rag/models"
)

func partition(meta map[string]string) models.Partition {
	return models.Partition{Collection: "doc_chunks", Meta: meta}
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	s := NewMemoryStore()
	p := partition(map[string]string{"scope": "global", "category": "m"})

	rec := models.ChunkRecord{Key: "k1", Text: "v1", Vector: []float32{1, 0}, Meta: p.Meta}
	if err := s.Upsert(context.Background(), p, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	rec.Text = "v2"
	if err := s.Upsert(context.Background(), p, rec); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if got := s.Count(p); got != 1 {
		t.Fatalf("count after overwrite = %d", got)
	}
	results, _ := s.Query(context.Background(), p, []float32{1, 0}, 1)
	if results[0].Record.Text != "v2" {
		t.Fatalf("overwrite lost: %q", results[0].Record.Text)
	}
}

func TestMemoryStoreUpsertRequiresKey(t *testing.T) {
	s := NewMemoryStore()
	p := partition(nil)
	err := s.Upsert(context.Background(), p, models.ChunkRecord{Text: "x"})
	if err == nil {
		t.Fatal("keyless record accepted")
	}
}

func TestMemoryStoreQueryOrdering(t *testing.T) {
	s := NewMemoryStore()
	p := partition(map[string]string{"scope": "global", "category": "m"})

	vectors := map[string][]float32{
		"far":     {0, 1},
		"near":    {1, 0.1},
		"nearest": {1, 0},
	}
	for key, vec := range vectors {
		rec := models.ChunkRecord{Key: key, Text: key, Vector: vec, Meta: p.Meta}
		if err := s.Upsert(context.Background(), p, rec); err != nil {
			t.Fatalf("upsert %s: %v", key, err)
		}
	}

	results, err := s.Query(context.Background(), p, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("topK not applied: %d results", len(results))
	}
	if results[0].Record.Key != "nearest" || results[1].Record.Key != "near" {
		t.Fatalf("wrong order: %s, %s", results[0].Record.Key, results[1].Record.Key)
	}
}

func TestMemoryStoreDeleteByPredicate(t *testing.T) {
	s := NewMemoryStore()
	base := map[string]string{"scope": "conversation", "conversation_id": "c1"}
	p := partition(base)

	for i, doc := range []string{"d1", "d1", "d2"} {
		meta := map[string]string{"scope": "conversation", "conversation_id": "c1", "document": doc}
		rec := models.ChunkRecord{Key: string(rune('a' + i)), Text: doc, Vector: []float32{1}, Meta: meta}
		if err := s.Upsert(context.Background(), p, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	deleted, err := s.Delete(context.Background(), p, map[string]string{"document": "d1"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted %d, want 2", deleted)
	}
	if got := s.Count(p); got != 1 {
		t.Fatalf("%d records left, want 1", got)
	}

	// Partition predicate still bounds a nil match
	deleted, err = s.Delete(context.Background(), p, nil)
	if err != nil || deleted != 1 {
		t.Fatalf("full delete: %d, %v", deleted, err)
	}
}

func TestMemoryStorePartitionFilter(t *testing.T) {
	s := NewMemoryStore()
	a := partition(map[string]string{"scope": "conversation", "conversation_id": "a"})
	b := partition(map[string]string{"scope": "conversation", "conversation_id": "b"})

	s.Upsert(context.Background(), a, models.ChunkRecord{Key: "ka", Text: "a", Vector: []float32{1}, Meta: a.Meta})
	s.Upsert(context.Background(), b, models.ChunkRecord{Key: "kb", Text: "b", Vector: []float32{1}, Meta: b.Meta})

	results, _ := s.Query(context.Background(), a, []float32{1}, 10)
	if len(results) != 1 || results[0].Record.Key != "ka" {
		t.Fatalf("partition filter failed: %+v", results)
	}
}
