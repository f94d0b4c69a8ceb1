package ports

import (
	"context"

	"github.com/personar/profile-service/internal/core/domain"
)

// SignupInput is the DTO passed from the transport layer to Signup.
type SignupInput struct {
	Email       string
	Handle      string
	Password    string
	DisplayName string
	StatusText  string
	BioText     string
	Location    string
	Embeddings  domain.EmbeddingSet
}

// ExternalSignupInput enrolls a user vouched for by an identity provider.
// Email and display name come from the assertion.
type ExternalSignupInput struct {
	Assertion  string
	Handle     string
	StatusText string
	BioText    string
	Location   string
	Embeddings domain.EmbeddingSet
}

// ProfileService defines the use cases of the profile backend.
type ProfileService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.PublicProfile, error)
	SignupExternal(ctx context.Context, in ExternalSignupInput) (*domain.PublicProfile, error)
	Login(ctx context.Context, email, password string) (string, error)
	LoginExternal(ctx context.Context, assertion string) (string, error)
	Me(ctx context.Context, email string) (*domain.PublicProfile, error)
	UpdateProfile(ctx context.Context, email string, patch domain.ProfilePatch) (*domain.PublicProfile, error)
	ReEnroll(ctx context.Context, email string, set domain.EmbeddingSet) (*domain.PublicProfile, error)
	LookupByHandle(ctx context.Context, handle string) (*domain.PublicProfile, error)
	LookupByVector(ctx context.Context, v domain.Vector) (*domain.VectorMatch, error)
}
