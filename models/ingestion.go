package models

import (
	"fmt"
	"runtime"
	"time"
)

const (
	// DefaultInterBatchDelay throttles between embedding batches to stay
	// under provider rate limits.
	DefaultInterBatchDelay = 100 * time.Millisecond

	maxDefaultBatchSize = 4
)

// Reference carries optional citation metadata attached to every record of a
// document.
type Reference struct {
	Title string `json:"title,omitempty"`
	Link  string `json:"link,omitempty"`
}

// IngestionRequest describes one document to ingest into a scope.
// ChunkSize/ChunkOverlap of 0 mean "let the adaptive planner decide".
type IngestionRequest struct {
	SourcePath      string            `json:"source_path"`
	Scope           Scope             `json:"scope"`
	ChunkSize       int               `json:"chunk_size,omitempty"`
	ChunkOverlap    int               `json:"chunk_overlap,omitempty"`
	BatchSize       int               `json:"batch_size,omitempty"`
	InterBatchDelay time.Duration     `json:"inter_batch_delay,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Reference       Reference         `json:"reference,omitempty"`
}

// DefaultBatchSize derives the embedding concurrency from available
// parallelism, capped small to protect rate-limited backends.
func DefaultBatchSize() int {
	n := runtime.GOMAXPROCS(0)
	if n > maxDefaultBatchSize {
		n = maxDefaultBatchSize
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ApplyDefaults fills BatchSize and InterBatchDelay when unset.
func (r *IngestionRequest) ApplyDefaults() {
	if r.BatchSize == 0 {
		r.BatchSize = DefaultBatchSize()
	}
	if r.InterBatchDelay == 0 {
		r.InterBatchDelay = DefaultInterBatchDelay
	}
}

// Validate rejects invalid requests before any I/O happens.
func (r *IngestionRequest) Validate() error {
	if r.SourcePath == "" {
		return fmt.Errorf("%w: source path is required", ErrConfiguration)
	}
	if err := r.Scope.Validate(); err != nil {
		return err
	}
	if r.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be >= 1, got %d", ErrConfiguration, r.BatchSize)
	}
	if r.InterBatchDelay < 0 {
		return fmt.Errorf("%w: inter-batch delay must not be negative", ErrConfiguration)
	}
	if r.ChunkSize < 0 || r.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk size and overlap must not be negative", ErrConfiguration)
	}
	return nil
}

// ChunkFailure records one chunk that could not be embedded or stored.
type ChunkFailure struct {
	SourceUnit int    `json:"source_unit"`
	Sequence   int    `json:"sequence"`
	Stage      string `json:"stage"` // "embed" or "store"
	Err        string `json:"error"`
}

// IngestionReport summarizes a completed (possibly partial) ingestion.
// A document with failed chunks is still partially searchable; callers
// inspect ChunksFailed to decide whether to re-run.
type IngestionReport struct {
	SourcePath   string         `json:"source_path"`
	Scope        Scope          `json:"scope"`
	Units        int            `json:"units"`
	UnitsSkipped int            `json:"units_skipped,omitempty"`
	ChunksTotal  int            `json:"chunks_total"`
	ChunksStored int            `json:"chunks_stored"`
	ChunksFailed int            `json:"chunks_failed"`
	Failures     []ChunkFailure `json:"failures,omitempty"`
	Cancelled    bool           `json:"cancelled,omitempty"`
	Duration     time.Duration  `json:"duration"`
}
