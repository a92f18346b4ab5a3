package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.OwnerStore = (*OwnerRepo)(nil)

// OwnerRepo is the SQLite implementation of the OwnerStore port interface.
type OwnerRepo struct {
	db *DB
}

// NewOwnerRepo creates a new OwnerRepo backed by the given DB.
func NewOwnerRepo(db *DB) *OwnerRepo {
	return &OwnerRepo{db: db}
}

const ownerColumns = `id, username, name, email, password_hash, created_at`

// Add inserts a new owner. Returns ErrOwnerExists if the username is taken.
func (r *OwnerRepo) Add(ctx context.Context, owner model.Owner) (model.Owner, error) {
	const query = `INSERT INTO owners (username, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`

	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		owner.Username, owner.Name, owner.Email, owner.PasswordHash, owner.CreatedAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.Owner{}, fmt.Errorf("add owner %s: %w", owner.Username, driven.ErrOwnerExists)
		}
		return model.Owner{}, fmt.Errorf("add owner %s: %w", owner.Username, err)
	}

	owner.ID, err = result.LastInsertId()
	if err != nil {
		return model.Owner{}, fmt.Errorf("read owner id: %w", err)
	}

	return owner, nil
}

// GetByUsername returns nil, nil if no owner has the username.
func (r *OwnerRepo) GetByUsername(ctx context.Context, username string) (*model.Owner, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE username = ?`
	return r.getOne(ctx, query, username)
}

// GetByID returns nil, nil if no owner has the ID.
func (r *OwnerRepo) GetByID(ctx context.Context, id int64) (*model.Owner, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE id = ?`
	return r.getOne(ctx, query, id)
}

func (r *OwnerRepo) getOne(ctx context.Context, query string, arg any) (*model.Owner, error) {
	var owner model.Owner
	var createdAt string

	err := r.db.Reader.QueryRowContext(ctx, query, arg).Scan(
		&owner.ID, &owner.Username, &owner.Name, &owner.Email, &owner.PasswordHash, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get owner %v: %w", arg, err)
	}

	owner.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &owner, nil
}
