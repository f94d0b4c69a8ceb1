// Package identity verifies assertions issued by the external identity
// provider. Assertions are PASETO v4.local tokens sealed with a shared key.
package identity

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/personar/profile-service/internal/core/domain"
)

const (
	claimEmail = "email"
	claimName  = "name"
)

// AssertionVerifier opens v4.local assertions carrying email and name claims.
type AssertionVerifier struct {
	key paseto.V4SymmetricKey
}

func NewAssertionVerifier(symmetricKey []byte) (*AssertionVerifier, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}
	return &AssertionVerifier{key: key}, nil
}

// NewAssertionVerifierFromHex decodes a hex-encoded 32-byte key.
func NewAssertionVerifierFromHex(hexKey string) (*AssertionVerifier, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode identity key: %w", err)
	}
	return NewAssertionVerifier(raw)
}

// Verify checks the assertion's seal and expiry and returns the identity it
// carries. Every failure is reported as domain.ErrUnauthorized.
func (v *AssertionVerifier) Verify(_ context.Context, assertion string) (domain.ExternalIdentity, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(v.key, assertion, nil)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: identity assertion rejected", domain.ErrUnauthorized)
	}

	email, err := token.GetString(claimEmail)
	if err != nil || email == "" {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: identity assertion has no email", domain.ErrUnauthorized)
	}

	// name is optional
	name, _ := token.GetString(claimName)

	return domain.ExternalIdentity{Email: email, DisplayName: name}, nil
}

// Issue seals an assertion for ident. It plays the provider's side for local
// development and tests.
func (v *AssertionVerifier) Issue(ident domain.ExternalIdentity, ttl time.Duration) string {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(ttl))
	token.SetString(claimEmail, ident.Email)
	if ident.DisplayName != "" {
		token.SetString(claimName, ident.DisplayName)
	}

	return token.V4Encrypt(v.key, nil)
}
