package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/personar/profile-service/internal/api/metrics"
	"github.com/personar/profile-service/internal/core/domain"
	"github.com/personar/profile-service/internal/core/ports"
	"github.com/personar/profile-service/internal/pkg/keylock"
)

// ProfileCache abstracts the read-through cache of public profiles (Redis).
type ProfileCache interface {
	Get(ctx context.Context, handle string) (*domain.PublicProfile, bool, error)
	Set(ctx context.Context, profile *domain.PublicProfile) error
	Invalidate(ctx context.Context, handle string) error
}

// Options carries the optional collaborators of ProfileService.
type Options struct {
	Identity ports.IdentityVerifier
	Cache    ProfileCache
	Enroller ports.EnrollmentQueue
	// Locks serializes index registration per user. Share it with the
	// enrollment queue so retries and re-enrollments cannot interleave.
	Locks    *keylock.Striped
	LinkBase string
}

type ProfileService struct {
	users    ports.UserRepository
	index    ports.VectorIndex
	creds    ports.CredentialStore
	identity ports.IdentityVerifier
	cache    ProfileCache
	enroller ports.EnrollmentQueue
	locks    *keylock.Striped
	linkBase string
	log      zerolog.Logger
}

func NewProfileService(
	users ports.UserRepository,
	index ports.VectorIndex,
	creds ports.CredentialStore,
	opts Options,
	log zerolog.Logger,
) *ProfileService {
	s := &ProfileService{
		users:    users,
		index:    index,
		creds:    creds,
		identity: opts.Identity,
		cache:    opts.Cache,
		enroller: opts.Enroller,
		locks:    opts.Locks,
		linkBase: opts.LinkBase,
		log:      log,
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.enroller == nil {
		s.enroller = noopEnroller{}
	}
	if s.locks == nil {
		s.locks = &keylock.Striped{}
	}
	return s
}

// Signup enrolls a password-authenticated user.
func (s *ProfileService) Signup(ctx context.Context, in ports.SignupInput) (*domain.PublicProfile, error) {
	if in.Password == "" {
		return nil, domain.Invalid("password", "is required")
	}
	rec, err := s.newRecord(in.Email, in.Handle, in.Embeddings)
	if err != nil {
		return nil, err
	}
	rec.DisplayName = in.DisplayName
	rec.StatusText = in.StatusText
	rec.BioText = in.BioText
	rec.Location = in.Location

	if err := s.ensureUnique(ctx, rec.Email, rec.Handle); err != nil {
		return nil, err
	}

	hash, err := s.creds.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	rec.CredentialHash = hash

	if err := s.persist(ctx, rec); err != nil {
		return nil, err
	}
	metrics.SignupsTotal.WithLabelValues("password").Inc()
	return rec.Public(), nil
}

// SignupExternal enrolls a user whose identity was verified by an external
// provider. The record carries no credential hash.
func (s *ProfileService) SignupExternal(ctx context.Context, in ports.ExternalSignupInput) (*domain.PublicProfile, error) {
	ident, err := s.verifyAssertion(ctx, in.Assertion)
	if err != nil {
		return nil, err
	}
	rec, err := s.newRecord(ident.Email, in.Handle, in.Embeddings)
	if err != nil {
		return nil, err
	}
	rec.DisplayName = ident.DisplayName
	rec.StatusText = in.StatusText
	rec.BioText = in.BioText
	rec.Location = in.Location

	if err := s.ensureUnique(ctx, rec.Email, rec.Handle); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, rec); err != nil {
		return nil, err
	}
	metrics.SignupsTotal.WithLabelValues("external").Inc()
	return rec.Public(), nil
}

// Login verifies a password and issues a token bound to the email.
func (s *ProfileService) Login(ctx context.Context, email, password string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues("password", "rejected").Inc()
		return "", domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("password", "rejected").Inc()
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("login: %w", err)
	}

	if !user.HasCredential() || !s.creds.Verify(password, user.CredentialHash) {
		metrics.LoginsTotal.WithLabelValues("password", "rejected").Inc()
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.creds.IssueToken(domain.Claims{Email: user.Email})
	if err != nil {
		return "", fmt.Errorf("login: issue token: %w", err)
	}
	metrics.LoginsTotal.WithLabelValues("password", "ok").Inc()
	return token, nil
}

// LoginExternal issues a token for an already enrolled, externally verified identity.
func (s *ProfileService) LoginExternal(ctx context.Context, assertion string) (string, error) {
	ident, err := s.verifyAssertion(ctx, assertion)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("external", "rejected").Inc()
		return "", err
	}

	user, err := s.users.FindByEmail(ctx, ident.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("external", "rejected").Inc()
			return "", fmt.Errorf("%w: identity is not enrolled", domain.ErrUnauthorized)
		}
		return "", fmt.Errorf("login external: %w", err)
	}

	token, err := s.creds.IssueToken(domain.Claims{Email: user.Email})
	if err != nil {
		return "", fmt.Errorf("login external: issue token: %w", err)
	}
	metrics.LoginsTotal.WithLabelValues("external", "ok").Inc()
	return token, nil
}

// Me returns the caller's own profile.
func (s *ProfileService) Me(ctx context.Context, email string) (*domain.PublicProfile, error) {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	return user.Public(), nil
}

// UpdateProfile applies the supplied fields and returns the updated view.
func (s *ProfileService) UpdateProfile(ctx context.Context, email string, patch domain.ProfilePatch) (*domain.PublicProfile, error) {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if !patch.IsEmpty() {
		if err := s.users.UpdateFields(ctx, user.ID, patch); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		if err := s.cache.Invalidate(ctx, user.Handle); err != nil {
			s.log.Warn().Err(err).Str("handle", user.Handle).Msg("failed to invalidate cached profile")
		}
	}

	updated, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	profile := updated.Public()

	// A lookup that missed before the write may still Set the old view;
	// writing the re-read record last keeps the cache on the stored state.
	if !patch.IsEmpty() {
		if err := s.cache.Set(ctx, profile); err != nil {
			s.log.Warn().Err(err).Str("handle", profile.Handle).Msg("profile cache write failed")
		}
	}
	return profile, nil
}

// ReEnroll replaces the caller's embedding set and re-registers it.
func (s *ProfileService) ReEnroll(ctx context.Context, email string, set domain.EmbeddingSet) (*domain.PublicProfile, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("re-enroll: %w", err)
	}

	// Held across the write and the registration so the index always ends on
	// the set the store holds.
	unlock := s.locks.Lock(user.ID)
	defer unlock()

	if err := s.users.ReplaceEmbeddings(ctx, user.ID, set); err != nil {
		return nil, fmt.Errorf("re-enroll: %w", err)
	}
	s.register(ctx, user.ID, set)

	s.log.Info().Str("user_id", user.ID).Msg("embeddings re-enrolled")
	return user.Public(), nil
}

// LookupByHandle resolves a public profile by handle.
func (s *ProfileService) LookupByHandle(ctx context.Context, handle string) (*domain.PublicProfile, error) {
	handle = domain.NormalizeHandle(handle)
	if handle == "" {
		return nil, domain.Invalid("handle", "is required")
	}

	cached, ok, err := s.cache.Get(ctx, handle)
	if err != nil {
		s.log.Warn().Err(err).Str("handle", handle).Msg("profile cache read failed")
	} else if ok {
		metrics.ProfileCacheTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.ProfileCacheTotal.WithLabelValues("miss").Inc()

	user, err := s.users.FindByHandle(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("lookup by handle: %w", err)
	}

	profile := user.Public()
	if err := s.cache.Set(ctx, profile); err != nil {
		s.log.Warn().Err(err).Str("handle", handle).Msg("profile cache write failed")
	}
	return profile, nil
}

// LookupByVector resolves the enrolled user whose face embedding is closest to v.
func (s *ProfileService) LookupByVector(ctx context.Context, v domain.Vector) (*domain.VectorMatch, error) {
	if err := v.Validate(); err != nil {
		metrics.VectorLookupsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	start := time.Now()
	match, found, err := s.index.Query(ctx, v)
	metrics.VectorQueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VectorLookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("lookup by vector: %w", err)
	}
	if !found {
		metrics.VectorLookupsTotal.WithLabelValues("no_match").Inc()
		return nil, domain.ErrNoMatch
	}

	// The record may have vanished between query and resolve; that is
	// reported as no match rather than retried.
	user, err := s.users.FindByID(ctx, match.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.VectorLookupsTotal.WithLabelValues("no_match").Inc()
			s.log.Debug().Str("user_id", match.UserID).Msg("indexed user no longer resolves")
			return nil, domain.ErrNoMatch
		}
		metrics.VectorLookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("lookup by vector: %w", err)
	}

	metrics.VectorLookupsTotal.WithLabelValues("match").Inc()
	return &domain.VectorMatch{Profile: user.Public(), Score: match.Score}, nil
}

// newRecord validates identity fields and embeddings and builds a fresh record.
func (s *ProfileService) newRecord(email, handle string, set domain.EmbeddingSet) (*domain.UserRecord, error) {
	email = domain.NormalizeEmail(email)
	handle = domain.NormalizeHandle(handle)
	if email == "" {
		return nil, domain.Invalid("email", "is required")
	}
	if !domain.ValidHandle(handle) {
		return nil, domain.Invalid("handle", "must be 3-32 characters of a-z, 0-9, '.', '_' or '-'")
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &domain.UserRecord{
		ID:         uuid.NewString(),
		Email:      email,
		Handle:     handle,
		Link:       domain.ProfileLink(s.linkBase, handle),
		Embeddings: set.Clone(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ensureUnique checks email first, then handle.
func (s *ProfileService) ensureUnique(ctx context.Context, email, handle string) error {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("signup: %w", err)
	}

	if _, err := s.users.FindByHandle(ctx, handle); err == nil {
		return domain.ErrHandleTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("signup: %w", err)
	}
	return nil
}

// persist inserts the record and registers its embeddings.
func (s *ProfileService) persist(ctx context.Context, rec *domain.UserRecord) error {
	unlock := s.locks.Lock(rec.ID)
	defer unlock()

	if err := s.users.Insert(ctx, rec); err != nil {
		// a concurrent signup won the unique index
		if errors.Is(err, domain.ErrConflict) {
			return err
		}
		s.log.Error().Err(err).Str("handle", rec.Handle).Msg("failed to insert user")
		return fmt.Errorf("signup: %w", err)
	}
	s.register(ctx, rec.ID, rec.Embeddings)

	s.log.Info().Str("user_id", rec.ID).Str("handle", rec.Handle).Msg("user enrolled")
	return nil
}

// register adds the set to the index. Callers hold the user's lock. A failure
// leaves the record without a registered embedding until the enrollment queue
// catches up.
func (s *ProfileService) register(ctx context.Context, userID string, set domain.EmbeddingSet) {
	if err := s.index.Register(ctx, userID, set); err != nil {
		metrics.EnrollmentErrorsTotal.WithLabelValues("register").Inc()
		s.log.Warn().Err(err).Str("user_id", userID).Msg("index registration failed, queued for retry")
		s.enroller.Enqueue(userID)
	}
}

func (s *ProfileService) verifyAssertion(ctx context.Context, assertion string) (domain.ExternalIdentity, error) {
	if s.identity == nil {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: external identities are not enabled", domain.ErrUnauthorized)
	}
	if assertion == "" {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: missing identity assertion", domain.ErrUnauthorized)
	}
	ident, err := s.identity.Verify(ctx, assertion)
	if err != nil {
		return domain.ExternalIdentity{}, err
	}
	ident.Email = domain.NormalizeEmail(ident.Email)
	if ident.Email == "" {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: assertion has no email", domain.ErrUnauthorized)
	}
	return ident, nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.PublicProfile, bool, error) { return nil, false, nil }
func (noopCache) Set(context.Context, *domain.PublicProfile) error                 { return nil }
func (noopCache) Invalidate(context.Context, string) error                         { return nil }

type noopEnroller struct{}

func (noopEnroller) Enqueue(string) {}
