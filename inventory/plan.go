package inventory

import (
	"fmt"

	"github.com/google/uuid"
)

// StatusChange is one item status write the coordinator must apply inside
// the same transaction as the obligation write.
type StatusChange struct {
	ItemID uuid.UUID
	From   ItemStatus
	To     ItemStatus
}

// ReleaseSkip records a release whose target item was not in the expected
// hold state. It is informational, never an error: another obligation or a
// manual staff edit owns the status and must win.
type ReleaseSkip struct {
	ItemID   uuid.UUID
	Status   ItemStatus
	Expected ItemStatus
}

// Plan is the set of item status writes resulting from one obligation
// create, update or delete. Holds have already passed the availability
// check; an unavailable item never produces a plan, it produces an error.
type Plan struct {
	Holds    []StatusChange
	Releases []StatusChange
	Skips    []ReleaseSkip
}

// IsEmpty reports whether the plan carries no status writes and no skips.
func (p Plan) IsEmpty() bool {
	return len(p.Holds) == 0 && len(p.Releases) == 0 && len(p.Skips) == 0
}

// PlanChange computes the item status writes for one obligation mutation.
//
// before is nil for a create, after is nil for a delete; an update supplies
// both. snaps must contain a Snapshot for every item referenced by before or
// after, gathered under the same transaction that will apply the plan.
//
// Rules:
//   - items the obligation starts holding are availability-checked and held
//     with the kind's hold label; the first unavailable item aborts with
//     ErrItemUnavailable and no partial plan is ever returned
//   - items the obligation stops holding are released back to instock, but
//     only when their current status still equals the kind's hold label;
//     otherwise the release is recorded as a skip
//   - the post-mutation terminal state decides: a terminal after holds
//     nothing and releases every item it references, a reopened obligation
//     (terminal before, live after) re-validates and re-holds everything
//   - booking obligations never touch item status and yield an empty plan
func PlanChange(before, after *ObligationView, snaps map[uuid.UUID]Snapshot) (Plan, error) {
	kind := changeKind(before, after)

	holdStatus, holds := kind.HoldStatus()
	if !holds {
		return Plan{}, nil
	}

	toHold, toRelease := diffHeldItems(before, after)

	plan := Plan{}

	for _, itemID := range toHold {
		snap, known := snaps[itemID]
		if !known {
			return Plan{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
		}

		if !Available(snap) {
			return Plan{}, fmt.Errorf("%w: %s", ErrItemUnavailable, itemID)
		}

		plan.Holds = append(plan.Holds, StatusChange{ItemID: itemID, From: snap.Item.Status, To: holdStatus})
	}

	for _, itemID := range toRelease {
		snap, known := snaps[itemID]
		if !known {
			return Plan{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
		}

		if snap.Item.Status != holdStatus {
			plan.Skips = append(plan.Skips, ReleaseSkip{ItemID: itemID, Status: snap.Item.Status, Expected: holdStatus})
			continue
		}

		plan.Releases = append(plan.Releases, StatusChange{ItemID: itemID, From: holdStatus, To: StatusInStock})
	}

	return plan, nil
}

func changeKind(before, after *ObligationView) ObligationKind {
	if after != nil {
		return after.Kind
	}

	if before != nil {
		return before.Kind
	}

	return ""
}

// diffHeldItems computes which items start and stop being held by this
// mutation. Terminal obligations hold nothing, so the effective item set of
// a terminal image is empty: a rental returned in the same update releases
// everything, and a reopened one re-holds everything.
func diffHeldItems(before, after *ObligationView) (toHold, toRelease []uuid.UUID) {
	var heldBefore, heldAfter []uuid.UUID

	if before != nil && !before.Terminal {
		heldBefore = dedupe(before.ItemIDs)
	}

	if after != nil && !after.Terminal {
		heldAfter = dedupe(after.ItemIDs)
	}

	beforeSet := asSet(heldBefore)
	afterSet := asSet(heldAfter)

	for _, itemID := range heldAfter {
		if !beforeSet[itemID] {
			toHold = append(toHold, itemID)
		}
	}

	for _, itemID := range heldBefore {
		if !afterSet[itemID] {
			toRelease = append(toRelease, itemID)
		}
	}

	return toHold, toRelease
}

// dedupe removes duplicate item references, keeping first-occurrence order.
func dedupe(itemIDs []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(itemIDs))
	result := make([]uuid.UUID, 0, len(itemIDs))

	for _, itemID := range itemIDs {
		if seen[itemID] {
			continue
		}

		seen[itemID] = true
		result = append(result, itemID)
	}

	return result
}

func asSet(itemIDs []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(itemIDs))

	for _, itemID := range itemIDs {
		set[itemID] = true
	}

	return set
}
