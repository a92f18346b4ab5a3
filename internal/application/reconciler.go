// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/im7mortal/kmutex"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

// Reconciler merges freshly observed service lists into the persisted
// inventory. Reconciliations for the same host are serialized; different
// hosts proceed in parallel.
type Reconciler struct {
	store driven.ServiceStore
	locks *kmutex.Kmutex
	now   func() time.Time
}

// NewReconciler creates a Reconciler backed by the given ServiceStore.
func NewReconciler(store driven.ServiceStore) *Reconciler {
	return &Reconciler{
		store: store,
		locks: kmutex.New(),
		now:   time.Now,
	}
}

// Reconcile matches observed entries to persisted rows by name. Matches have
// their status overwritten in place (last observation wins); unseen names
// become new rows. The result lists the row for every observed entry, in
// observed order. Persisted rows absent from observed are neither modified
// nor returned. All writes commit atomically or not at all.
func (r *Reconciler) Reconcile(ctx context.Context, hostID int64, observed []model.ObservedService) ([]model.Service, error) {
	r.locks.Lock(hostID)
	defer r.locks.Unlock(hostID)

	existing, err := r.store.ListByHost(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("load inventory for host %d: %w", hostID, err)
	}

	plan := planInventory(hostID, existing, observed, r.now().UTC())

	if !plan.changes.Empty() {
		inserted, err := r.store.ApplyInventory(ctx, hostID, plan.changes)
		if err != nil {
			return nil, fmt.Errorf("apply inventory for host %d: %w", hostID, err)
		}
		if len(inserted) != len(plan.changes.Inserts) {
			return nil, fmt.Errorf("apply inventory for host %d: stored %d of %d new services", hostID, len(inserted), len(plan.changes.Inserts))
		}
		for i, svc := range inserted {
			plan.rows[plan.insertSlots[i]] = svc
		}
	}

	result := make([]model.Service, len(observed))
	for i, slot := range plan.order {
		result[i] = plan.rows[slot]
	}
	return result, nil
}

// inventoryPlan is the outcome of merging one observation against storage.
// rows holds one entry per distinct observed name; order maps each observed
// position to its row; insertSlots maps each insert to its row.
type inventoryPlan struct {
	rows        []model.Service
	order       []int
	insertSlots []int
	changes     driven.InventoryChanges
}

// planInventory is the pure merge step of Reconcile. A name observed twice
// in one list resolves to a single row carrying the later status.
func planInventory(hostID int64, existing []model.Service, observed []model.ObservedService, now time.Time) inventoryPlan {
	byName := make(map[string]model.Service, len(existing))
	for _, svc := range existing {
		byName[svc.Name] = svc
	}

	var plan inventoryPlan
	plan.order = make([]int, len(observed))

	slotByName := make(map[string]int, len(observed))
	isInsert := make(map[int]bool)

	for i, obs := range observed {
		slot, seen := slotByName[obs.Name]
		if !seen {
			slot = len(plan.rows)
			slotByName[obs.Name] = slot

			if stored, ok := byName[obs.Name]; ok {
				plan.rows = append(plan.rows, stored)
			} else {
				plan.rows = append(plan.rows, model.Service{
					HostID:    hostID,
					Name:      obs.Name,
					CreatedAt: now,
				})
				isInsert[slot] = true
			}
		}

		plan.rows[slot].Status = obs.Status
		plan.rows[slot].UpdatedAt = now
		plan.order[i] = slot
	}

	for slot, row := range plan.rows {
		if isInsert[slot] {
			plan.insertSlots = append(plan.insertSlots, slot)
			plan.changes.Inserts = append(plan.changes.Inserts, row)
		} else {
			plan.changes.Updates = append(plan.changes.Updates, row)
		}
	}

	return plan
}
