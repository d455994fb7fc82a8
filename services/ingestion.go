package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"chatdocs-rag/internal/ai"
	"chatdocs-rag/internal/extract"
	"chatdocs-rag/internal/logger"
	"chatdocs-rag/internal/storage"
	"chatdocs-rag/internal/telemetry"
	"chatdocs-rag/models"
	"chatdocs-rag/utils"
)

// IngestionCoordinator drives extraction -> chunking -> embedding -> storage
// for a whole document. Embedding and storage calls run concurrently within
// a batch, bounded by the request's batch size, with a pause between batches
// to stay under provider rate limits.
type IngestionCoordinator struct {
	extractor extract.Extractor
	embedder  ai.Embedder
	store     storage.VectorStore
	scopes    *ScopeRegistry
	planner   *SizePlanner
	keys      utils.KeyGenerator
	metrics   *telemetry.Metrics
}

// NewIngestionCoordinator wires the pipeline. keys defaults to UUID keys,
// which are safe for concurrent ingestions into the same scope.
func NewIngestionCoordinator(
	extractor extract.Extractor,
	embedder ai.Embedder,
	store storage.VectorStore,
	scopes *ScopeRegistry,
	keys utils.KeyGenerator,
	metrics *telemetry.Metrics,
) *IngestionCoordinator {
	if keys == nil {
		keys = utils.UUIDKeys()
	}
	return &IngestionCoordinator{
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		scopes:    scopes,
		planner:   NewSizePlanner(),
		keys:      keys,
		metrics:   metrics,
	}
}

// Ingest processes one document end to end and returns a report of per-chunk
// outcomes. An extraction or configuration failure aborts with an error and
// writes nothing; per-chunk embedding/storage failures are counted in the
// report and do not abort sibling chunks.
//
// On cancellation the in-flight batch finishes (no forced abort mid-write),
// no further batches start, and already-stored chunks are not rolled back.
func (c *IngestionCoordinator) Ingest(ctx context.Context, req models.IngestionRequest) (*models.IngestionReport, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	partition, err := c.scopes.Resolve(req.Scope)
	if err != nil {
		return nil, err
	}

	tracer := otel.Tracer("ingestion-coordinator")
	ctx, span := tracer.Start(ctx, "rag.ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("rag.scope", req.Scope.String()),
		attribute.String("rag.source", req.SourcePath),
		attribute.Int("rag.batch_size", req.BatchSize),
	)

	start := time.Now()

	units, err := c.extractor.Extract(ctx, req.SourcePath)
	if err != nil {
		if !errors.Is(err, models.ErrExtraction) {
			err = fmt.Errorf("%w: %v", models.ErrExtraction, err)
		}
		return nil, err
	}

	seg, err := c.segmenterFor(req, units)
	if err != nil {
		return nil, err
	}

	var chunks []models.TextChunk
	skipped := 0
	for _, unit := range units {
		// Binary-only units (image regions) carry no text to chunk yet;
		// count them so callers can tell a skipped page from an empty one.
		if strings.TrimSpace(unit.Text) == "" && len(unit.BinaryPayload) > 0 {
			skipped++
			logger.Warn("Skipping binary source unit",
				"source", req.SourcePath, "unit", unit.UnitIndex, "bytes", len(unit.BinaryPayload))
			continue
		}
		chunks = append(chunks, seg.Segment(unit.Text, req.Reference.Title, unit.UnitIndex)...)
	}

	report := &models.IngestionReport{
		SourcePath:   req.SourcePath,
		Scope:        req.Scope,
		Units:        len(units),
		UnitsSkipped: skipped,
		ChunksTotal:  len(chunks),
	}

	for batchStart := 0; batchStart < len(chunks); batchStart += req.BatchSize {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		batchEnd := batchStart + req.BatchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}
		c.processBatch(ctx, req, partition, chunks[batchStart:batchEnd], report)

		if batchEnd < len(chunks) {
			select {
			case <-time.After(req.InterBatchDelay):
			case <-ctx.Done():
				report.Cancelled = true
			}
			if report.Cancelled {
				break
			}
		}
	}

	report.Duration = time.Since(start)
	if c.metrics != nil {
		c.metrics.IngestionDuration.Record(ctx, report.Duration.Seconds())
	}

	logger.Info("Document ingested",
		"source", req.SourcePath,
		"scope", req.Scope.String(),
		"units", report.Units,
		"skipped", report.UnitsSkipped,
		"stored", report.ChunksStored,
		"failed", report.ChunksFailed,
		"cancelled", report.Cancelled,
		"duration", report.Duration.String(),
	)
	return report, nil
}

// segmenterFor applies the precedence rule: explicit request parameters win,
// the adaptive planner fills in the rest.
func (c *IngestionCoordinator) segmenterFor(req models.IngestionRequest, units []models.SourceUnit) (*Segmenter, error) {
	size := req.ChunkSize
	overlap := req.ChunkOverlap

	if size == 0 {
		var b strings.Builder
		for _, u := range units {
			b.WriteString(u.Text)
			b.WriteString("\n")
		}
		size = c.planner.PlanChunkSize(b.String())
	}
	if overlap == 0 {
		overlap = c.planner.PlanOverlap(size)
	}

	return NewSegmenter(size, overlap, nil)
}

// processBatch embeds and stores one batch of chunks concurrently. The batch
// is the concurrency bound: at most len(batch) <= BatchSize calls in flight.
// Work runs on a cancellation-detached context so a cancel mid-batch never
// leaves a half-written record behind.
func (c *IngestionCoordinator) processBatch(ctx context.Context, req models.IngestionRequest, partition models.Partition, batch []models.TextChunk, report *models.IngestionReport) {
	workCtx := context.WithoutCancel(ctx)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, chunk := range batch {
		wg.Add(1)
		go func(chunk models.TextChunk) {
			defer wg.Done()

			failure := c.processChunk(workCtx, req, partition, chunk)

			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				report.ChunksFailed++
				report.Failures = append(report.Failures, *failure)
			} else {
				report.ChunksStored++
			}
		}(chunk)
	}
	wg.Wait()
}

func (c *IngestionCoordinator) processChunk(ctx context.Context, req models.IngestionRequest, partition models.Partition, chunk models.TextChunk) *models.ChunkFailure {
	embedStart := time.Now()
	vector, err := c.embedder.Embed(ctx, chunk.Content)
	if c.metrics != nil {
		c.metrics.EmbeddingDuration.Record(ctx, time.Since(embedStart).Seconds())
	}
	if err != nil {
		logger.Warn("Chunk embedding failed",
			"source", req.SourcePath, "unit", chunk.SourceUnitIndex, "sequence", chunk.SequenceInUnit, "error", err)
		if c.metrics != nil {
			c.metrics.RecordChunkFailed(ctx, string(req.Scope.Kind), "embed")
		}
		return &models.ChunkFailure{
			SourceUnit: chunk.SourceUnitIndex,
			Sequence:   chunk.SequenceInUnit,
			Stage:      "embed",
			Err:        err.Error(),
		}
	}

	rec := models.ChunkRecord{
		Key:        c.keys(chunk.Content, chunk.SourceUnitIndex, chunk.SequenceInUnit),
		Text:       chunk.Content,
		Vector:     vector,
		Meta:       recordMeta(partition, req.Metadata),
		SourceUnit: chunk.SourceUnitIndex,
		Sequence:   chunk.SequenceInUnit,
		TokenCount: len(strings.Fields(chunk.Content)),
		RefTitle:   req.Reference.Title,
		RefLink:    req.Reference.Link,
		CreatedAt:  time.Now().UTC(),
	}

	if err := c.store.Upsert(ctx, partition, rec); err != nil {
		logger.Warn("Chunk storage failed",
			"source", req.SourcePath, "unit", chunk.SourceUnitIndex, "sequence", chunk.SequenceInUnit, "error", err)
		if c.metrics != nil {
			c.metrics.RecordChunkFailed(ctx, string(req.Scope.Kind), "store")
		}
		return &models.ChunkFailure{
			SourceUnit: chunk.SourceUnitIndex,
			Sequence:   chunk.SequenceInUnit,
			Stage:      "store",
			Err:        err.Error(),
		}
	}

	if c.metrics != nil {
		c.metrics.RecordChunkStored(ctx, string(req.Scope.Kind))
	}
	return nil
}

// recordMeta merges the partition predicate with caller metadata. Partition
// tags win on key collisions: scope isolation is not overridable.
func recordMeta(partition models.Partition, extra map[string]string) map[string]string {
	meta := make(map[string]string, len(partition.Meta)+len(extra))
	for k, v := range extra {
		meta[k] = v
	}
	for k, v := range partition.Meta {
		meta[k] = v
	}
	return meta
}
