package ports

import (
	"context"

	"github.com/personar/profile-service/internal/core/domain"
)

// VectorIndex answers nearest-neighbour queries over enrolled face embeddings.
// Implementations must be safe for concurrent use.
type VectorIndex interface {
	// Register stores every vector of set tagged with userID, replacing any
	// vectors previously registered for that user.
	Register(ctx context.Context, userID string, set domain.EmbeddingSet) error
	// Query returns the closest vector's owner by cosine similarity. found is
	// false when the index holds no vectors.
	Query(ctx context.Context, v domain.Vector) (match domain.Match, found bool, err error)
	// Len reports the number of live vectors.
	Len(ctx context.Context) (int, error)
}

// EnrollmentQueue accepts users whose index registration must be retried.
type EnrollmentQueue interface {
	Enqueue(userID string)
}
