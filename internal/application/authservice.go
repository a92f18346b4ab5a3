package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/bcrypt"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

// Authentication errors.
var (
	// ErrInvalidCredentials is returned when a username/password pair does not match.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrUnauthenticated is returned for missing, unknown, or expired tokens.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrInvalidSignup is returned when signup input fails validation.
	ErrInvalidSignup = errors.New("invalid signup")
)

const (
	tokenBytes        = 32
	minPasswordLength = 8
)

// AuthService manages operator accounts and bearer tokens. The rest of the
// application trusts the owner identity it resolves without re-checking.
type AuthService struct {
	owners driven.OwnerStore
	tokens driven.TokenStore
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService creates an AuthService issuing tokens valid for ttl.
func NewAuthService(owners driven.OwnerStore, tokens driven.TokenStore, ttl time.Duration) *AuthService {
	return &AuthService{owners: owners, tokens: tokens, ttl: ttl, now: time.Now}
}

// Signup is the input for creating an operator account.
type Signup struct {
	Username string
	Password string
	Name     string
	Email    string
}

// Signup creates an owner with a bcrypt-hashed password.
// Returns driven.ErrOwnerExists if the username is taken.
func (s *AuthService) Signup(ctx context.Context, in Signup) (model.Owner, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return model.Owner{}, fmt.Errorf("%w: username is required", ErrInvalidSignup)
	}
	if len(in.Password) < minPasswordLength {
		return model.Owner{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignup, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.Owner{}, fmt.Errorf("%w: %v", ErrInvalidSignup, err)
	}

	return s.owners.Add(ctx, model.Owner{
		Username:     in.Username,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	})
}

// IssueToken verifies the credentials and returns a new raw bearer token
// with its expiry. Only the token's digest is stored.
func (s *AuthService) IssueToken(ctx context.Context, username, password string) (string, time.Time, error) {
	owner, err := s.owners.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", time.Time{}, err
	}
	if owner == nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	raw, err := generateToken()
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	if err := s.tokens.Add(ctx, model.APIToken{
		Digest:    digestToken(raw),
		OwnerID:   owner.ID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}); err != nil {
		return "", time.Time{}, err
	}

	return raw, expiresAt, nil
}

// Authenticate resolves a raw bearer token to its owner.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (model.Owner, error) {
	if raw == "" {
		return model.Owner{}, ErrUnauthenticated
	}

	token, err := s.tokens.Get(ctx, digestToken(raw))
	if errors.Is(err, driven.ErrTokenNotFound) {
		return model.Owner{}, ErrUnauthenticated
	}
	if err != nil {
		return model.Owner{}, err
	}
	if token.Expired(s.now()) {
		return model.Owner{}, ErrUnauthenticated
	}

	owner, err := s.owners.GetByID(ctx, token.OwnerID)
	if err != nil {
		return model.Owner{}, err
	}
	if owner == nil {
		return model.Owner{}, ErrUnauthenticated
	}
	return *owner, nil
}

// PurgeExpiredTokens deletes expired token digests.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx)
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// digestToken is the storage key for a raw token.
func digestToken(raw string) string {
	sum := blake3.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
