package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
)

// Sentinel errors returned by OwnerStore and TokenStore implementations.
var (
	// ErrOwnerExists indicates the username is already taken.
	ErrOwnerExists = errors.New("username already registered")

	// ErrTokenNotFound indicates no token matches the presented digest.
	ErrTokenNotFound = errors.New("token not found")
)

// OwnerStore defines the driven port for operator accounts.
// GetByUsername and GetByID return nil, nil when no owner matches.
type OwnerStore interface {
	Add(ctx context.Context, owner model.Owner) (model.Owner, error)
	GetByUsername(ctx context.Context, username string) (*model.Owner, error)
	GetByID(ctx context.Context, id int64) (*model.Owner, error)
}

// TokenStore defines the driven port for issued bearer tokens.
type TokenStore interface {
	Add(ctx context.Context, token model.APIToken) error
	Get(ctx context.Context, digest string) (*model.APIToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
