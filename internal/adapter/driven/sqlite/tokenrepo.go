package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenStore = (*TokenRepo)(nil)

// TokenRepo is the SQLite implementation of the TokenStore port interface.
// Only token digests are stored.
type TokenRepo struct {
	db  *DB
	now func() time.Time
}

// NewTokenRepo creates a new TokenRepo backed by the given DB.
func NewTokenRepo(db *DB) *TokenRepo {
	return &TokenRepo{db: db, now: time.Now}
}

// Add stores a token digest.
func (r *TokenRepo) Add(ctx context.Context, token model.APIToken) error {
	const query = `INSERT INTO api_tokens (digest, owner_id, expires_at, created_at) VALUES (?, ?, ?, ?)`

	createdAt := token.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query, token.Digest, token.OwnerID, token.ExpiresAt.UTC(), createdAt.UTC())
	if err != nil {
		return fmt.Errorf("add token for owner %d: %w", token.OwnerID, err)
	}
	return nil
}

// Get returns the token with the given digest, or ErrTokenNotFound.
func (r *TokenRepo) Get(ctx context.Context, digest string) (*model.APIToken, error) {
	const query = `SELECT digest, owner_id, expires_at, created_at FROM api_tokens WHERE digest = ?`

	var token model.APIToken
	var expiresAt, createdAt string

	err := r.db.Reader.QueryRowContext(ctx, query, digest).Scan(&token.Digest, &token.OwnerID, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	if token.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	if token.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &token, nil
}

// DeleteExpired removes every token whose expiry has passed and returns the count.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM api_tokens WHERE expires_at <= ?`

	result, err := r.db.Writer.ExecContext(ctx, query, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}
