package domain

import (
	"errors"
	"math"
	"testing"
)

func unitVector(axis int) Vector {
	v := make(Vector, EmbeddingDimensions)
	v[axis] = 1
	return v
}

func TestVector_Validate(t *testing.T) {
	if err := unitVector(0).Validate(); err != nil {
		t.Fatalf("expected valid vector, got %v", err)
	}

	short := make(Vector, 64)
	short[0] = 1
	if err := short.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for 64 dims, got %v", err)
	}

	zero := make(Vector, EmbeddingDimensions)
	if err := zero.Validate(); !errors.Is(err, ErrInvalidEmbedding) {
		t.Fatalf("expected ErrInvalidEmbedding for zero vector, got %v", err)
	}

	nan := unitVector(1)
	nan[5] = float32(math.NaN())
	if err := nan.Validate(); !errors.Is(err, ErrInvalidEmbedding) {
		t.Fatalf("expected ErrInvalidEmbedding for NaN, got %v", err)
	}
}

func TestEmbeddingSet_Validate(t *testing.T) {
	ok := EmbeddingSet{unitVector(0), unitVector(1), unitVector(2)}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid set, got %v", err)
	}

	if err := (EmbeddingSet{unitVector(0)}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for short set, got %v", err)
	}

	bad := EmbeddingSet{unitVector(0), unitVector(1), make(Vector, 10)}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad member, got %v", err)
	}
}

func TestCosineSimilarity_RawVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{10, 0}
	if got := CosineSimilarity(a, b); got != 1 {
		t.Fatalf("parallel vectors of different length should score 1, got %v", got)
	}

	c := []float32{0, 3}
	if got := CosineSimilarity(a, c); got != 0 {
		t.Fatalf("orthogonal vectors should score 0, got %v", got)
	}

	d := []float32{-2, 0}
	if got := CosineSimilarity(a, d); got != -1 {
		t.Fatalf("opposite vectors should score -1, got %v", got)
	}

	if got := CosineSimilarity(a, []float32{1, 0, 0}); got != -1 {
		t.Fatalf("length mismatch should score -1, got %v", got)
	}
}

func TestBestCandidate_TieBreaksOnInsertionOrder(t *testing.T) {
	if _, ok := BestCandidate(nil); ok {
		t.Fatalf("expected no match for empty candidates")
	}

	m, ok := BestCandidate([]Candidate{
		{UserID: "late", Seq: 9, Score: 0.9},
		{UserID: "early", Seq: 2, Score: 0.9},
		{UserID: "worse", Seq: 1, Score: 0.5},
	})
	if !ok || m.UserID != "early" {
		t.Fatalf("expected earliest of tied candidates, got %+v", m)
	}
}

func TestEmbeddingSet_Clone(t *testing.T) {
	orig := EmbeddingSet{unitVector(0), unitVector(1), unitVector(2)}
	clone := orig.Clone()
	clone[0][0] = 42
	if orig[0][0] != 1 {
		t.Fatalf("clone shares backing array with original")
	}
}
