package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/personar/profile-service/internal/core/domain"
)

// CredentialStore implements password hashing and bearer token handling.
type CredentialStore struct {
	jwtSecret []byte
	tokenTTL  time.Duration
	cost      int
}

func NewCredentialStore(jwtSecret string, tokenTTL time.Duration) *CredentialStore {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &CredentialStore{jwtSecret: []byte(jwtSecret), tokenTTL: tokenTTL, cost: bcrypt.DefaultCost}
}

func (s *CredentialStore) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", domain.Invalid("password", "is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.Invalid("password", "is too long")
		}
		return "", err
	}
	return string(hash), nil
}

func (s *CredentialStore) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// IssueToken signs an HS256 token whose subject is the caller's email.
func (s *CredentialStore) IssueToken(claims domain.Claims) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   claims.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	})
	return t.SignedString(s.jwtSecret)
}

func (s *CredentialStore) ValidateToken(token string) (domain.Claims, error) {
	if token == "" {
		return domain.Claims{}, domain.ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return domain.Claims{}, domain.ErrInvalidToken
	}

	return domain.Claims{Email: claims.Subject}, nil
}
