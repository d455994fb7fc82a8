package models

import "time"

// ChunkRecord is a stored retrieval unit in a scope's partition. Keeping a
// denormalized collection of these enables efficient $search/$vectorSearch.
// Records are append-only: corrections are modeled as delete + re-insert.
type ChunkRecord struct {
	Key         string            `bson:"key" json:"key"`
	Text        string            `bson:"text" json:"text"`
	Compressed  bool              `bson:"compressed,omitempty" json:"-"`
	Compression string            `bson:"compression,omitempty" json:"-"`
	Vector      []float32         `bson:"vector,omitempty" json:"-"`
	Meta        map[string]string `bson:"meta" json:"meta,omitempty"`
	SourceUnit  int               `bson:"source_unit" json:"source_unit"`
	Sequence    int               `bson:"sequence" json:"sequence"`
	TokenCount  int               `bson:"token_count,omitempty" json:"token_count,omitempty"`
	RefTitle    string            `bson:"ref_title,omitempty" json:"ref_title,omitempty"`
	RefLink     string            `bson:"ref_link,omitempty" json:"ref_link,omitempty"`
	CreatedAt   time.Time         `bson:"created_at" json:"created_at"`
}

// SearchResult is a record with its similarity score.
type SearchResult struct {
	Record ChunkRecord `json:"record"`
	Score  float64     `json:"score"`
}
