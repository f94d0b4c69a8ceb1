package ports

import (
	"context"

	"github.com/personar/profile-service/internal/core/domain"
)

// UserRepository persists user records keyed by id with unique email and
// handle secondary keys.
type UserRepository interface {
	// Insert fails with domain.ErrDuplicateKey when email or handle is taken.
	Insert(ctx context.Context, user *domain.UserRecord) error
	FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error)
	// FindByHandle and FindByID never populate CredentialHash.
	FindByHandle(ctx context.Context, handle string) (*domain.UserRecord, error)
	FindByID(ctx context.Context, id string) (*domain.UserRecord, error)
	// UpdateFields applies only the non-nil fields of patch. An empty patch is
	// a no-op; an unknown id yields domain.ErrUserNotFound.
	UpdateFields(ctx context.Context, id string, patch domain.ProfilePatch) error
	ReplaceEmbeddings(ctx context.Context, id string, set domain.EmbeddingSet) error
	// ForEachEnrollment streams every record's embedding set.
	ForEachEnrollment(ctx context.Context, fn func(id string, set domain.EmbeddingSet) error) error
}
