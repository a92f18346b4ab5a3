package driven

import (
	"context"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
)

// InventoryChanges is the write set of one reconciliation. Updates carry
// existing rows (ID set) whose status was overwritten; Inserts carry rows
// observed for the first time (ID zero).
type InventoryChanges struct {
	Updates []model.Service
	Inserts []model.Service
}

// Empty reports whether there is nothing to write.
func (c InventoryChanges) Empty() bool {
	return len(c.Updates) == 0 && len(c.Inserts) == 0
}

// ServiceStore defines the driven port for the per-host service inventory.
type ServiceStore interface {
	// ListByHost returns every persisted service for the host, ordered by name.
	ListByHost(ctx context.Context, hostID int64) ([]model.Service, error)

	// ApplyInventory writes all updates and inserts for a host in a single
	// transaction. Either every change is applied or none is. The returned
	// slice holds the inserted rows with their assigned IDs and timestamps,
	// in the order of changes.Inserts.
	ApplyInventory(ctx context.Context, hostID int64, changes InventoryChanges) ([]model.Service, error)
}
