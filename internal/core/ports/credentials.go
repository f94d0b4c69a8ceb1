package ports

import (
	"context"

	"github.com/personar/profile-service/internal/core/domain"
)

// CredentialStore hashes passwords and issues bearer tokens.
type CredentialStore interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	IssueToken(claims domain.Claims) (string, error)
	ValidateToken(token string) (domain.Claims, error)
}

// IdentityVerifier checks an assertion produced by an external identity
// provider and returns the identity it vouches for.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (domain.ExternalIdentity, error)
}
