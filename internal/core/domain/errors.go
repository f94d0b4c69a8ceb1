package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these so
// transports can classify it with errors.Is.
var (
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("store unavailable")
)

var (
	ErrEmailTaken   = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrHandleTaken  = fmt.Errorf("%w: handle already taken", ErrConflict)
	ErrDuplicateKey = fmt.Errorf("%w: duplicate key", ErrConflict)

	ErrUserNotFound = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrNoMatch      = fmt.Errorf("%w: no similar user found", ErrNotFound)

	ErrInvalidCredentials = fmt.Errorf("%w: incorrect email or password", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrUnauthorized)

	ErrInvalidEmbedding = fmt.Errorf("%w: embedding", ErrInvalidInput)
)

// Invalid builds an ErrInvalidInput error describing a single field problem.
func Invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidInput, field, reason)
}
