package vectorindex

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personar/profile-service/internal/core/domain"
)

func randomVector(rng *rand.Rand) domain.Vector {
	v := make(domain.Vector, domain.EmbeddingDimensions)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

func randomSet(rng *rand.Rand) domain.EmbeddingSet {
	return domain.EmbeddingSet{randomVector(rng), randomVector(rng), randomVector(rng)}
}

func TestHNSWIndex_EmptyIndexHasNoMatch(t *testing.T) {
	idx := NewHNSWIndex(10)
	rng := rand.New(rand.NewSource(1))

	_, found, err := idx.Query(context.Background(), randomVector(rng))
	require.NoError(t, err)
	assert.False(t, found)

	n, err := idx.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHNSWIndex_RoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWIndex(10)
	rng := rand.New(rand.NewSource(2))

	sets := map[string]domain.EmbeddingSet{}
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("user-%d", i)
		sets[id] = randomSet(rng)
		require.NoError(t, idx.Register(ctx, id, sets[id]))
	}

	for id, set := range sets {
		for _, v := range set {
			m, found, err := idx.Query(ctx, v)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, id, m.UserID)
			assert.InDelta(t, 1.0, m.Score, 1e-6)
		}
	}
}

// arcVector places vectors on a half circle so neighbouring users are
// neighbouring in cosine distance.
func arcVector(step, steps int) domain.Vector {
	theta := math.Pi * float64(step+1) / float64(steps+2)
	v := make(domain.Vector, domain.EmbeddingDimensions)
	v[0] = float32(math.Cos(theta))
	v[1] = float32(math.Sin(theta))
	return v
}

func TestHNSWIndex_RoundTripBeyondCandidateBudget(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWIndex(10)

	const users = 200
	sets := map[string]domain.EmbeddingSet{}
	for i := 0; i < users; i++ {
		id := fmt.Sprintf("user-%d", i)
		sets[id] = domain.EmbeddingSet{
			arcVector(3*i, 3*users),
			arcVector(3*i+1, 3*users),
			arcVector(3*i+2, 3*users),
		}
		require.NoError(t, idx.Register(ctx, id, sets[id]))
	}

	for _, id := range []string{"user-0", "user-57", "user-199"} {
		m, found, err := idx.Query(ctx, sets[id][1])
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, id, m.UserID)
	}
}

func TestHNSWIndex_ScoreIsRawCosine(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWIndex(10)
	rng := rand.New(rand.NewSource(4))

	set := randomSet(rng)
	require.NoError(t, idx.Register(ctx, "u", set))

	scaled := make(domain.Vector, len(set[0]))
	for i, x := range set[0] {
		scaled[i] = x * 7
	}
	query := randomVector(rng)

	m, found, err := idx.Query(ctx, scaled)
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 1.0, m.Score, 1e-6)

	m, _, err = idx.Query(ctx, query)
	require.NoError(t, err)
	best := -1.0
	for _, v := range set {
		if s := domain.CosineSimilarity(v, query); s > best {
			best = s
		}
	}
	assert.InDelta(t, best, m.Score, 1e-9)
}

func TestHNSWIndex_ReRegisterReplaces(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWIndex(10)
	rng := rand.New(rand.NewSource(5))

	first := randomSet(rng)
	other := randomSet(rng)
	second := randomSet(rng)

	require.NoError(t, idx.Register(ctx, "1", first))
	require.NoError(t, idx.Register(ctx, "2", other))
	require.NoError(t, idx.Register(ctx, "1", second))

	n, err := idx.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	m, found, err := idx.Query(ctx, first[0])
	require.NoError(t, err)
	require.True(t, found)
	assert.Less(t, m.Score, 0.99, "replaced vector must not match exactly")

	m, _, err = idx.Query(ctx, second[2])
	require.NoError(t, err)
	assert.Equal(t, "1", m.UserID)
	assert.InDelta(t, 1.0, m.Score, 1e-6)
}

func TestHNSWIndex_TieBrokenByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWIndex(10)
	rng := rand.New(rand.NewSource(6))

	shared := randomVector(rng)
	setA := domain.EmbeddingSet{randomVector(rng), shared, randomVector(rng)}
	setB := domain.EmbeddingSet{shared, randomVector(rng), randomVector(rng)}

	require.NoError(t, idx.Register(ctx, "earlier", setA))
	require.NoError(t, idx.Register(ctx, "later", setB))

	m, found, err := idx.Query(ctx, shared)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "earlier", m.UserID)
}

func TestHNSWIndex_RebuildDropsTombstones(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWIndex(4)
	rng := rand.New(rand.NewSource(7))

	var last domain.EmbeddingSet
	for i := 0; i < 20; i++ {
		last = randomSet(rng)
		require.NoError(t, idx.Register(ctx, "same", last))
	}

	idx.mu.RLock()
	nodes, live := idx.nodes, len(idx.live)
	idx.mu.RUnlock()
	assert.Equal(t, 3, live)
	assert.LessOrEqual(t, nodes-live, idx.candidates+live, "tombstones should be compacted")

	m, found, err := idx.Query(ctx, last[0])
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "same", m.UserID)
	assert.InDelta(t, 1.0, m.Score, 1e-6)
}

func TestHNSWIndex_RejectsInvalidVectors(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWIndex(10)

	short := make(domain.Vector, 64)
	short[0] = 1
	_, _, err := idx.Query(ctx, short)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	zero := make(domain.Vector, domain.EmbeddingDimensions)
	err = idx.Register(ctx, "u", domain.EmbeddingSet{zero})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	n, _ := idx.Len(ctx)
	assert.Zero(t, n)
}

func TestHNSWIndex_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWIndex(10)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(100 + w)))
			for i := 0; i < 20; i++ {
				id := fmt.Sprintf("w%d-u%d", w, i%5)
				set := randomSet(rng)
				if err := idx.Register(ctx, id, set); err != nil {
					t.Errorf("register: %v", err)
					return
				}
				if _, _, err := idx.Query(ctx, set[0]); err != nil {
					t.Errorf("query: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	n, err := idx.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8*5*domain.EmbeddingSetSize, n)
}

func TestHNSWIndex_ExactWithTombstonesWithinBudget(t *testing.T) {
	ctx := context.Background()

	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		idx := NewHNSWIndex(10)

		users := []string{"u-1", "u-2", "u-3"}
		for _, u := range users {
			require.NoError(t, idx.Register(ctx, u, randomSet(rng)))
		}
		for _, u := range users {
			require.NoError(t, idx.Register(ctx, u, randomSet(rng)))
		}

		// 9 live and 9 tombstoned: the graph exceeds the budget, the live set does not.
		require.Equal(t, 9, len(idx.live))
		require.Equal(t, 18, idx.nodes)

		for q := 0; q < 20; q++ {
			v := randomVector(rng)
			got, found, err := idx.Query(ctx, v)
			require.NoError(t, err)
			require.True(t, found)

			want := idx.scan(v)
			assert.Equal(t, want.UserID, got.UserID, "seed %d query %d", seed, q)
			assert.InDelta(t, want.Score, got.Score, 1e-9)
		}
	}
}
