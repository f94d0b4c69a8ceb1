// Package vectorindex holds the in-process face embedding index.
package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/personar/profile-service/internal/api/metrics"
	"github.com/personar/profile-service/internal/core/domain"
)

const (
	// DefaultCandidates is the number of graph neighbours examined per query.
	DefaultCandidates = 10

	maxNeighbors = 16
)

type entry struct {
	userID string
	vec    domain.Vector
}

// HNSWIndex wraps an HNSW graph keyed by insertion sequence. Re-registered
// vectors are tombstoned and skipped at query time; the graph is rebuilt from
// live vectors once tombstones dominate.
type HNSWIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	live       map[uint64]entry
	byUser     map[string][]uint64
	nodes      int // graph nodes, live and tombstoned
	nextSeq    uint64
	candidates int
}

func NewHNSWIndex(candidates int) *HNSWIndex {
	if candidates < 1 {
		candidates = DefaultCandidates
	}
	return &HNSWIndex{
		graph:      newGraph(candidates),
		live:       make(map[uint64]entry),
		byUser:     make(map[string][]uint64),
		candidates: candidates,
	}
}

func newGraph(candidates int) *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.EfSearch = candidates
	g.Distance = cosineDistance
	return g
}

// cosineDistance keeps graph ordering consistent with the similarity reported
// to callers. Vectors are never normalized on the way in.
func cosineDistance(a, b []float32) float32 {
	return float32(1 - domain.CosineSimilarity(a, b))
}

// Register replaces every vector previously stored for userID with set.
func (x *HNSWIndex) Register(_ context.Context, userID string, set domain.EmbeddingSet) error {
	for i, v := range set {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("register vector %d: %w", i, err)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for _, seq := range x.byUser[userID] {
		delete(x.live, seq)
	}

	seqs := make([]uint64, 0, len(set))
	for _, v := range set {
		x.nextSeq++
		vec := append(domain.Vector(nil), v...)
		x.graph.Add(hnsw.MakeNode(x.nextSeq, []float32(vec)))
		x.live[x.nextSeq] = entry{userID: userID, vec: vec}
		seqs = append(seqs, x.nextSeq)
		x.nodes++
	}
	x.byUser[userID] = seqs

	stale := x.nodes - len(x.live)
	if stale > len(x.live) && stale > x.candidates {
		x.rebuild()
	}

	metrics.IndexedVectors.Set(float64(len(x.live)))
	return nil
}

// rebuild replaces the graph with one holding only live vectors, re-added in
// sequence order. Callers hold the write lock.
func (x *HNSWIndex) rebuild() {
	seqs := make([]uint64, 0, len(x.live))
	for seq := range x.live {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	g := newGraph(x.candidates)
	for _, seq := range seqs {
		g.Add(hnsw.MakeNode(seq, []float32(x.live[seq].vec)))
	}
	x.graph = g
	x.nodes = len(seqs)
}

// Query returns the owner of the vector most similar to v. The search is exact
// while no more vectors are live than the candidate budget, whatever the number
// of tombstoned nodes still in the graph.
func (x *HNSWIndex) Query(_ context.Context, v domain.Vector) (domain.Match, bool, error) {
	if err := v.Validate(); err != nil {
		return domain.Match{}, false, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.live) == 0 {
		return domain.Match{}, false, nil
	}

	if len(x.live) > x.candidates {
		neighbors := x.graph.Search([]float32(v), x.candidates)
		cands := make([]domain.Candidate, 0, len(neighbors))
		for _, n := range neighbors {
			e, ok := x.live[n.Key]
			if !ok {
				continue
			}
			cands = append(cands, domain.Candidate{
				UserID: e.userID,
				Seq:    int64(n.Key),
				Score:  domain.CosineSimilarity(e.vec, v),
			})
		}
		if m, ok := domain.BestCandidate(cands); ok {
			return m, true, nil
		}
	}

	return x.scan(v), true, nil
}

// scan is the exact fallback over every live vector.
func (x *HNSWIndex) scan(v domain.Vector) domain.Match {
	cands := make([]domain.Candidate, 0, len(x.live))
	for seq, e := range x.live {
		cands = append(cands, domain.Candidate{
			UserID: e.userID,
			Seq:    int64(seq),
			Score:  domain.CosineSimilarity(e.vec, v),
		})
	}
	m, _ := domain.BestCandidate(cands)
	return m
}

func (x *HNSWIndex) Len(context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.live), nil
}
