package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ServiceStore = (*ServiceRepo)(nil)

// ServiceRepo is the SQLite implementation of the ServiceStore port interface.
type ServiceRepo struct {
	db *DB
}

// NewServiceRepo creates a new ServiceRepo backed by the given DB.
func NewServiceRepo(db *DB) *ServiceRepo {
	return &ServiceRepo{db: db}
}

// ListByHost returns all services persisted for the host, ordered by name.
func (r *ServiceRepo) ListByHost(ctx context.Context, hostID int64) ([]model.Service, error) {
	const query = `
		SELECT id, host_id, name, status, created_at, updated_at
		FROM services
		WHERE host_id = ?
		ORDER BY name
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("query services for host %d: %w", hostID, err)
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, *svc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}

	return services, nil
}

// ApplyInventory atomically applies one reconciliation's updates and inserts.
// An update that matches no row (the service was removed concurrently with its
// host) aborts the whole transaction. Inserts upsert on (host_id, name) so a
// racing writer can never produce a second row for the same name.
func (r *ServiceRepo) ApplyInventory(ctx context.Context, hostID int64, changes driven.InventoryChanges) ([]model.Service, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const updateQuery = `UPDATE services SET status = ?, updated_at = ? WHERE id = ? AND host_id = ?`

	for _, svc := range changes.Updates {
		result, err := tx.ExecContext(ctx, updateQuery, svc.Status, svc.UpdatedAt.UTC(), svc.ID, hostID)
		if err != nil {
			return nil, fmt.Errorf("update service %q for host %d: %w", svc.Name, hostID, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("check rows affected: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("update service %q for host %d: row %d no longer exists", svc.Name, hostID, svc.ID)
		}
	}

	const insertQuery = `
		INSERT INTO services (host_id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(host_id, name) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`

	inserted := make([]model.Service, 0, len(changes.Inserts))
	for _, svc := range changes.Inserts {
		var createdAt string
		err := tx.QueryRowContext(ctx, insertQuery,
			hostID, svc.Name, svc.Status, svc.CreatedAt.UTC(), svc.UpdatedAt.UTC(),
		).Scan(&svc.ID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("insert service %q for host %d: %w", svc.Name, hostID, err)
		}

		svc.HostID = hostID
		svc.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for service %q: %w", svc.Name, err)
		}

		inserted = append(inserted, svc)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit inventory for host %d: %w", hostID, err)
	}

	return inserted, nil
}

func scanService(s scanner) (*model.Service, error) {
	var svc model.Service
	var createdAt, updatedAt string

	err := s.Scan(&svc.ID, &svc.HostID, &svc.Name, &svc.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	svc.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	svc.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &svc, nil
}
