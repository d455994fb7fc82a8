package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"chatdocs-rag/models"
)

// MemoryStore is a brute-force cosine-similarity store used in tests and
// local runs without MongoDB. Partitions map to in-process buckets.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]models.ChunkRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]models.ChunkRecord)}
}

func (s *MemoryStore) Upsert(ctx context.Context, partition models.Partition, rec models.ChunkRecord) error {
	if rec.Key == "" {
		return fmt.Errorf("%w: record key is required", models.ErrStorage)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.collections[partition.Collection]
	for i := range records {
		if records[i].Key == rec.Key {
			records[i] = rec
			return nil
		}
	}
	s.collections[partition.Collection] = append(records, rec)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, partition models.Partition, vector []float32, topK int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		topK = 5
	}

	var results []models.SearchResult
	for _, rec := range s.collections[partition.Collection] {
		if !metaMatches(rec.Meta, partition.Meta) {
			continue
		}
		results = append(results, models.SearchResult{
			Record: rec,
			Score:  cosineSimilarity(rec.Vector, vector),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *MemoryStore) Delete(ctx context.Context, partition models.Partition, match map[string]string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.collections[partition.Collection]
	kept := records[:0]
	var deleted int64
	for _, rec := range records {
		if metaMatches(rec.Meta, partition.Meta) && metaMatches(rec.Meta, match) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.collections[partition.Collection] = kept
	return deleted, nil
}

// Count reports how many records a partition currently holds.
func (s *MemoryStore) Count(partition models.Partition) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.collections[partition.Collection] {
		if metaMatches(rec.Meta, partition.Meta) {
			n++
		}
	}
	return n
}

// metaMatches reports whether rec carries every key/value in want.
func metaMatches(rec, want map[string]string) bool {
	for k, v := range want {
		if rec[k] != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
