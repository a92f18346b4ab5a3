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
var _ driven.HostStore = (*HostRepo)(nil)

// HostRepo is the SQLite implementation of the HostStore port interface.
type HostRepo struct {
	db *DB
}

// NewHostRepo creates a new HostRepo backed by the given DB.
func NewHostRepo(db *DB) *HostRepo {
	return &HostRepo{db: db}
}

const hostColumns = `id, address, username, encrypted_secret, description, owner_id, created_at`

// Add inserts a new host and returns it with its assigned ID. Returns
// ErrDuplicateHost if a host with the same address already exists; the
// single INSERT statement guarantees nothing is written in that case.
func (r *HostRepo) Add(ctx context.Context, host model.Host) (model.Host, error) {
	const query = `
		INSERT INTO hosts (address, username, encrypted_secret, description, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if host.CreatedAt.IsZero() {
		host.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		host.Address, host.Username, host.EncryptedSecret, host.Description, host.OwnerID, host.CreatedAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.Host{}, fmt.Errorf("add host %s: %w", host.Address, driven.ErrDuplicateHost)
		}
		return model.Host{}, fmt.Errorf("add host %s: %w", host.Address, err)
	}

	host.ID, err = result.LastInsertId()
	if err != nil {
		return model.Host{}, fmt.Errorf("read host id: %w", err)
	}

	return host, nil
}

// Remove deletes a host by ID. Returns ErrHostNotFound if the host does not
// exist. Due to foreign key cascade, all of the host's services are also deleted.
func (r *HostRepo) Remove(ctx context.Context, id int64) error {
	const query = `DELETE FROM hosts WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("remove host %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("remove host %d: %w", id, driven.ErrHostNotFound)
	}

	return nil
}

// GetByID retrieves a host by ID. Returns nil, nil if the host does not exist.
func (r *HostRepo) GetByID(ctx context.Context, id int64) (*model.Host, error) {
	query := `SELECT ` + hostColumns + ` FROM hosts WHERE id = ?`

	host, err := scanHost(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get host %d: %w", id, err)
	}

	return host, nil
}

// ListByOwner returns all hosts owned by ownerID, ordered by address.
func (r *HostRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.Host, error) {
	query := `SELECT ` + hostColumns + ` FROM hosts WHERE owner_id = ? ORDER BY address`

	rows, err := r.db.Reader.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list hosts for owner %d: %w", ownerID, err)
	}
	defer rows.Close()

	var hosts []model.Host
	for rows.Next() {
		host, err := scanHost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan host: %w", err)
		}
		hosts = append(hosts, *host)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hosts: %w", err)
	}

	return hosts, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanHost(s scanner) (*model.Host, error) {
	var host model.Host
	var createdAt string

	err := s.Scan(&host.ID, &host.Address, &host.Username, &host.EncryptedSecret,
		&host.Description, &host.OwnerID, &createdAt)
	if err != nil {
		return nil, err
	}

	host.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &host, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
