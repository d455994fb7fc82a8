package models

// SourceUnit is one page/segment of raw content produced by an extractor.
// For text documents Text is set; image regions carry BinaryPayload instead.
// Units are immutable and consumed once by the segmenter.
type SourceUnit struct {
	Text          string
	BinaryPayload []byte
	UnitIndex     int
}

// TextChunk is a bounded span of text ready for embedding. Chunks never span
// two source units, so every stored record traces back to one page.
// Chunks are ephemeral: created, embedded, and discarded after storage.
type TextChunk struct {
	Content         string
	SourceUnitIndex int
	SequenceInUnit  int
}
