package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/personar/profile-service/internal/core/domain"
	"github.com/personar/profile-service/internal/core/ports"
)

// Reindex registers every stored embedding set in index and returns the number
// of users registered. Records whose set fails validation are skipped.
func Reindex(ctx context.Context, users ports.UserRepository, index ports.VectorIndex, log zerolog.Logger) (int, error) {
	var registered, skipped int
	err := users.ForEachEnrollment(ctx, func(id string, set domain.EmbeddingSet) error {
		if err := set.Validate(); err != nil {
			skipped++
			log.Warn().Err(err).Str("user_id", id).Msg("skipping record with invalid embeddings")
			return nil
		}
		if err := index.Register(ctx, id, set); err != nil {
			return fmt.Errorf("register %s: %w", id, err)
		}
		registered++
		return nil
	})
	if err != nil {
		return registered, fmt.Errorf("reindex: %w", err)
	}

	log.Info().Int("registered", registered).Int("skipped", skipped).Msg("vector index rebuilt")
	return registered, nil
}
