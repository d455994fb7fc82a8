package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatdocs-rag/internal/logger"
	"chatdocs-rag/models"
	"chatdocs-rag/utils"
)

// MongoStore keeps chunk records in a denormalized MongoDB collection, one
// document per chunk, scoped by metadata fields. Search uses Atlas
// $vectorSearch when a vector index is configured and falls back to
// in-process cosine scoring otherwise.
type MongoStore struct {
	db                   *mongo.Database
	vectorIndex          string
	dimensions           int
	compressionEnabled   bool
	compressionThreshold int
}

func NewMongoStore(db *mongo.Database, vectorIndex string) *MongoStore {
	return &MongoStore{db: db, vectorIndex: vectorIndex}
}

// SetDimensions makes Upsert reject vectors whose length does not match the
// search index definition, which otherwise fails only at query time.
func (s *MongoStore) SetDimensions(n int) {
	s.dimensions = n
}

// EnableCompression turns on brotli compression for chunk text payloads
// larger than threshold bytes.
func (s *MongoStore) EnableCompression(threshold int) {
	s.compressionEnabled = true
	s.compressionThreshold = threshold
}

func (s *MongoStore) Upsert(ctx context.Context, partition models.Partition, rec models.ChunkRecord) error {
	if rec.Key == "" {
		return fmt.Errorf("%w: record key is required", models.ErrStorage)
	}
	if s.dimensions > 0 && len(rec.Vector) != s.dimensions {
		return fmt.Errorf("%w: vector has %d dimensions, index expects %d", models.ErrStorage, len(rec.Vector), s.dimensions)
	}

	if s.compressionEnabled && len(rec.Text) > s.compressionThreshold {
		compressed, algorithm, err := utils.CompressText(rec.Text)
		if err != nil {
			return fmt.Errorf("%w: compress chunk text: %v", models.ErrStorage, err)
		}
		rec.Text = base64.StdEncoding.EncodeToString(compressed)
		rec.Compressed = true
		rec.Compression = string(algorithm)
	}

	col := s.db.Collection(partition.Collection)
	_, err := col.UpdateOne(ctx,
		bson.M{"key": rec.Key},
		bson.M{"$set": rec},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert key %s: %v", models.ErrStorage, rec.Key, err)
	}
	return nil
}

func (s *MongoStore) Query(ctx context.Context, partition models.Partition, vector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	if s.vectorIndex != "" {
		results, err := s.vectorSearch(ctx, partition, vector, topK)
		if err == nil {
			return results, nil
		}
		logger.Warn("Vector search failed, falling back to in-process scoring", "error", err)
	}
	return s.bruteForceSearch(ctx, partition, vector, topK)
}

// scoredRecord decodes a $vectorSearch projection.
type scoredRecord struct {
	models.ChunkRecord `bson:",inline"`
	Score              float64 `bson:"score"`
}

func (s *MongoStore) vectorSearch(ctx context.Context, partition models.Partition, vector []float32, topK int) ([]models.SearchResult, error) {
	col := s.db.Collection(partition.Collection)

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.M{
			"index":         s.vectorIndex,
			"path":          "vector",
			"queryVector":   vector,
			"numCandidates": topK * 10,
			"limit":         topK,
			"filter":        s.metaFilter(partition, nil),
		}}},
		{{Key: "$addFields", Value: bson.M{
			"score": bson.M{"$meta": "vectorSearchScore"},
		}}},
	}

	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scored []scoredRecord
	if err := cursor.All(ctx, &scored); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(scored))
	for _, sr := range scored {
		rec, err := decompressRecord(sr.ChunkRecord)
		if err != nil {
			return nil, err
		}
		results = append(results, models.SearchResult{Record: rec, Score: sr.Score})
	}
	return results, nil
}

func (s *MongoStore) bruteForceSearch(ctx context.Context, partition models.Partition, vector []float32, topK int) ([]models.SearchResult, error) {
	col := s.db.Collection(partition.Collection)

	cursor, err := col.Find(ctx, s.metaFilter(partition, nil))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	defer cursor.Close(ctx)

	var results []models.SearchResult
	for cursor.Next(ctx) {
		var rec models.ChunkRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: decode record: %v", models.ErrStorage, err)
		}
		rec, err := decompressRecord(rec)
		if err != nil {
			return nil, err
		}
		results = append(results, models.SearchResult{
			Record: rec,
			Score:  cosineSimilarity(rec.Vector, vector),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *MongoStore) Delete(ctx context.Context, partition models.Partition, match map[string]string) (int64, error) {
	col := s.db.Collection(partition.Collection)

	res, err := col.DeleteMany(ctx, s.metaFilter(partition, match))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return res.DeletedCount, nil
}

// StaleConversations returns the conversation ids with at least one chunk
// older than the cutoff. The retention sweeper uses this to decide which
// partitions to purge.
func (s *MongoStore) StaleConversations(ctx context.Context, collection string, before time.Time) ([]string, error) {
	col := s.db.Collection(collection)

	raw, err := col.Distinct(ctx, "meta.conversation_id", bson.M{
		"meta.scope": "conversation",
		"created_at": bson.M{"$lt": before},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// metaFilter builds the scope predicate, optionally narrowed by extra
// metadata.
func (s *MongoStore) metaFilter(partition models.Partition, match map[string]string) bson.M {
	filter := bson.M{}
	for k, v := range partition.Meta {
		filter["meta."+k] = v
	}
	for k, v := range match {
		filter["meta."+k] = v
	}
	return filter
}

func decompressRecord(rec models.ChunkRecord) (models.ChunkRecord, error) {
	if !rec.Compressed {
		return rec, nil
	}
	compressed, err := base64.StdEncoding.DecodeString(rec.Text)
	if err != nil {
		return rec, fmt.Errorf("%w: decode chunk text: %v", models.ErrStorage, err)
	}
	text, err := utils.DecompressText(compressed, utils.CompressionAlgorithm(rec.Compression))
	if err != nil {
		return rec, fmt.Errorf("%w: decompress chunk text: %v", models.ErrStorage, err)
	}
	rec.Text = text
	rec.Compressed = false
	rec.Compression = ""
	return rec, nil
}
