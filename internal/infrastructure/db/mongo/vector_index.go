package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/personar/profile-service/internal/core/domain"
)

const (
	collectionEmbeddings = "face_embeddings"
	collectionCounters   = "counters"

	// DefaultVectorIndexName is the Atlas Search index queried by $vectorSearch.
	DefaultVectorIndexName = "face_vector_index"
)

// VectorIndex answers similarity queries with Atlas Vector Search. Each
// vector is its own document so the search covers the union of all sets.
type VectorIndex struct {
	col        *mongo.Collection
	counters   *mongo.Collection
	indexName  string
	candidates int
	log        zerolog.Logger
}

func NewVectorIndex(db *mongo.Database, indexName string, candidates int, log zerolog.Logger) *VectorIndex {
	if indexName == "" {
		indexName = DefaultVectorIndexName
	}
	if candidates < 1 {
		candidates = 10
	}
	return &VectorIndex{
		col:        db.Collection(collectionEmbeddings),
		counters:   db.Collection(collectionCounters),
		indexName:  indexName,
		candidates: candidates,
		log:        log,
	}
}

type embeddingDoc struct {
	UserID   string    `bson:"user_id"`
	Position int       `bson:"position"`
	Vector   []float32 `bson:"vector"`
	Seq      int64     `bson:"seq"`
}

type searchHit struct {
	UserID string    `bson:"user_id"`
	Seq    int64     `bson:"seq"`
	Vector []float32 `bson:"vector"`
	Score  float64   `bson:"score"`
}

// Register replaces the user's vectors. The delete and insert are separate
// round trips; a failure in between is repaired by the enrollment queue.
func (x *VectorIndex) Register(ctx context.Context, userID string, set domain.EmbeddingSet) error {
	for i, v := range set {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("register vector %d: %w", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := x.col.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return classify("delete embeddings", err)
	}

	base, err := x.reserveSeqs(ctx, len(set))
	if err != nil {
		return err
	}
	docs := make([]interface{}, len(set))
	for i, v := range set {
		docs[i] = embeddingDoc{
			UserID:   userID,
			Position: i,
			Vector:   []float32(v),
			Seq:      base + int64(i),
		}
	}
	if _, err := x.col.InsertMany(ctx, docs); err != nil {
		return classify("insert embeddings", err)
	}
	return nil
}

type counterDoc struct {
	Seq int64 `bson:"seq"`
}

// reserveSeqs claims n consecutive insertion sequence numbers from a shared
// counter document and returns the first. The $inc is atomic on the server,
// so every instance draws from one ordering.
func (x *VectorIndex) reserveSeqs(ctx context.Context, n int) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := x.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": collectionEmbeddings},
		bson.M{"$inc": bson.M{"seq": int64(n)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, classify("reserve embedding sequence", err)
	}
	return firstReserved(doc.Seq, n), nil
}

// firstReserved returns the first of the n values ending at last.
func firstReserved(last int64, n int) int64 {
	return last - int64(n) + 1
}

func (x *VectorIndex) Query(ctx context.Context, v domain.Vector) (domain.Match, bool, error) {
	if err := v.Validate(); err != nil {
		return domain.Match{}, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: x.indexName},
			{Key: "path", Value: "vector"},
			{Key: "queryVector", Value: []float32(v)},
			{Key: "numCandidates", Value: x.candidates},
			{Key: "limit", Value: x.candidates},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "user_id", Value: 1},
			{Key: "seq", Value: 1},
			{Key: "vector", Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	cur, err := x.col.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.Match{}, false, classify("vector search", err)
	}
	defer cur.Close(ctx)

	var hits []searchHit
	if err := cur.All(ctx, &hits); err != nil {
		return domain.Match{}, false, classify("vector search", err)
	}

	m, ok := domain.BestCandidate(candidatesFromHits(hits, v))
	return m, ok, nil
}

// candidatesFromHits rescores each hit with the raw cosine of its stored
// vector, falling back to the converted Atlas score.
func candidatesFromHits(hits []searchHit, query domain.Vector) []domain.Candidate {
	cands := make([]domain.Candidate, 0, len(hits))
	for _, h := range hits {
		score := atlasScoreToCosine(h.Score)
		if len(h.Vector) == len(query) {
			score = domain.CosineSimilarity(h.Vector, query)
		}
		cands = append(cands, domain.Candidate{UserID: h.UserID, Seq: h.Seq, Score: score})
	}
	return cands
}

// atlasScoreToCosine undoes the (1 + cosine) / 2 normalisation Atlas applies
// to cosine similarity scores.
func atlasScoreToCosine(score float64) float64 {
	return 2*score - 1
}

func (x *VectorIndex) Len(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := x.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, classify("count embeddings", err)
	}
	return int(n), nil
}

// EnsureIndexes creates the user_id index and the Atlas vector search index.
// Deployments without Atlas Search reject the latter; that is logged and
// otherwise ignored.
func (x *VectorIndex) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := x.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	}); err != nil {
		return classify("create embedding indexes", err)
	}

	model := mongo.SearchIndexModel{
		Definition: bson.D{{Key: "fields", Value: bson.A{
			bson.D{
				{Key: "type", Value: "vector"},
				{Key: "path", Value: "vector"},
				{Key: "numDimensions", Value: domain.EmbeddingDimensions},
				{Key: "similarity", Value: "cosine"},
			},
			bson.D{
				{Key: "type", Value: "filter"},
				{Key: "path", Value: "user_id"},
			},
		}}},
		Options: options.SearchIndexes().SetName(x.indexName).SetType("vectorSearch"),
	}
	if _, err := x.col.SearchIndexes().CreateOne(ctx, model); err != nil {
		x.log.Warn().Err(err).Str("index", x.indexName).Msg("could not create vector search index")
	}
	return nil
}
