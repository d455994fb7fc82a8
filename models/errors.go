package models

import "errors"

// Error taxonomy for the ingestion/retrieval pipeline. Callers match with
// errors.Is; concrete causes are wrapped underneath.
var (
	// ErrExtraction means the source document could not be read or parsed.
	// Fatal to the whole ingestion, nothing is written for the document.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding means the embedding backend rejected or failed a request.
	// Skipped per-chunk during ingestion, fatal for search queries.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStorage means the vector store was unavailable or rejected a write.
	ErrStorage = errors.New("storage failed")

	// ErrConfiguration means invalid parameters were rejected before any I/O.
	ErrConfiguration = errors.New("invalid configuration")
)
