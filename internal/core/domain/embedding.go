package domain

import (
	"fmt"
	"math"
)

const (
	// EmbeddingDimensions is the length of every face embedding vector.
	EmbeddingDimensions = 128
	// EmbeddingSetSize is the number of vectors captured at enrollment.
	EmbeddingSetSize = 3
)

// Vector is a single face embedding.
type Vector []float32

// EmbeddingSet is the ordered set of vectors captured for one user.
type EmbeddingSet []Vector

// Validate checks the vector can take part in a cosine comparison.
func (v Vector) Validate() error {
	if len(v) != EmbeddingDimensions {
		return fmt.Errorf("%w: expected %d dimensions, got %d", ErrInvalidEmbedding, EmbeddingDimensions, len(v))
	}
	var norm float64
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is not finite", ErrInvalidEmbedding, i)
		}
		norm += f * f
	}
	if norm == 0 {
		return fmt.Errorf("%w: zero-magnitude vector", ErrInvalidEmbedding)
	}
	return nil
}

// Validate checks the set has exactly EmbeddingSetSize valid vectors.
func (s EmbeddingSet) Validate() error {
	if len(s) != EmbeddingSetSize {
		return fmt.Errorf("%w: expected %d vectors, got %d", ErrInvalidEmbedding, EmbeddingSetSize, len(s))
	}
	for i, v := range s {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can't mutate indexed data.
func (s EmbeddingSet) Clone() EmbeddingSet {
	out := make(EmbeddingSet, len(s))
	for i, v := range s {
		out[i] = append(Vector(nil), v...)
	}
	return out
}

// CosineSimilarity computes cosine similarity over the raw vectors.
// Mismatched lengths or zero-magnitude input yield -1, the worst score.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return -1
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// clamp floating point drift
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Candidate is one vector returned by an index backend before final selection.
// Seq orders vectors by insertion; lower is earlier.
type Candidate struct {
	UserID string
	Seq    int64
	Score  float64
}

// Match is the winning candidate of a similarity query.
type Match struct {
	UserID string
	Score  float64
}

// BestCandidate picks the highest score, breaking ties by earliest insertion.
func BestCandidate(cands []Candidate) (Match, bool) {
	if len(cands) == 0 {
		return Match{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score || (c.Score == best.Score && c.Seq < best.Seq) {
			best = c
		}
	}
	return Match{UserID: best.UserID, Score: best.Score}, true
}
