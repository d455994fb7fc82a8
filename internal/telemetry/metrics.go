package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all ingestion/retrieval pipeline metrics
type Metrics struct {
	ChunksStored      metric.Int64Counter
	ChunksFailed      metric.Int64Counter
	IngestionDuration metric.Float64Histogram
	EmbeddingDuration metric.Float64Histogram
	SearchRequests    metric.Int64Counter
	RecordsDeleted    metric.Int64Counter
}

// InitMetrics initializes all pipeline metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("chatdocs-rag")

	chunksStored, err := meter.Int64Counter(
		"rag.chunks.stored",
		metric.WithDescription("Chunks embedded and upserted into a partition"),
	)
	if err != nil {
		return nil, err
	}

	chunksFailed, err := meter.Int64Counter(
		"rag.chunks.failed",
		metric.WithDescription("Chunks skipped after embedding or storage failure"),
	)
	if err != nil {
		return nil, err
	}

	ingestionDuration, err := meter.Float64Histogram(
		"rag.ingestion.duration",
		metric.WithDescription("Time to ingest one document in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	embeddingDuration, err := meter.Float64Histogram(
		"rag.embedding.duration",
		metric.WithDescription("Time per embedding call in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	searchRequests, err := meter.Int64Counter(
		"rag.search.requests",
		metric.WithDescription("Scoped vector search requests"),
	)
	if err != nil {
		return nil, err
	}

	recordsDeleted, err := meter.Int64Counter(
		"rag.records.deleted",
		metric.WithDescription("Records removed by explicit delete or cascade"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ChunksStored:      chunksStored,
		ChunksFailed:      chunksFailed,
		IngestionDuration: ingestionDuration,
		EmbeddingDuration: embeddingDuration,
		SearchRequests:    searchRequests,
		RecordsDeleted:    recordsDeleted,
	}, nil
}

// RecordChunkStored increments the stored-chunk counter with scope attributes
func (m *Metrics) RecordChunkStored(ctx context.Context, scopeKind string) {
	if m == nil {
		return
	}
	m.ChunksStored.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scopeKind)))
}

// RecordChunkFailed increments the failed-chunk counter with the failure stage
func (m *Metrics) RecordChunkFailed(ctx context.Context, scopeKind, stage string) {
	if m == nil {
		return
	}
	m.ChunksFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scopeKind),
		attribute.String("stage", stage),
	))
}
