package storage

import (
	"context"

	"chatdocs-rag/models"
)

// VectorStore persists chunk records and supports scoped similarity search.
// The partition's Meta predicate is applied to every operation, so records
// are only reachable through the scope that created them.
type VectorStore interface {
	// Upsert writes one record into the partition under its key.
	Upsert(ctx context.Context, partition models.Partition, rec models.ChunkRecord) error

	// Query returns the topK most similar records within the partition.
	Query(ctx context.Context, partition models.Partition, vector []float32, topK int) ([]models.SearchResult, error)

	// Delete removes records matching the partition predicate plus the
	// optional extra metadata match, returning the count removed. Deleting
	// absent records is not an error.
	Delete(ctx context.Context, partition models.Partition, match map[string]string) (int64, error)
}
