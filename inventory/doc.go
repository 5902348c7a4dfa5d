// Package inventory provides the core types and pure algorithms for a
// physical lending-library inventory: items with a finite copy count,
// obligations (rentals, reservations, bookings) that claim those copies,
// an availability calculator, the hold/release planner used by the
// transactional coordinator engines, and the lane assignment algorithm
// used to present overlapping bookings.
//
// This package contains no I/O. The engines (see the postgresengine and
// memoryengine subpackages) gather a consistent view of the affected items
// inside a transaction, delegate every decision to the pure functions in
// this package, and apply the resulting plan atomically together with the
// obligation write itself.
//
// Key types:
//   - Item / ItemStatus: the resource record and its display status label
//   - Rental / Reservation / Booking: the three obligation kinds
//   - Snapshot: an item plus its live obligation counts, as seen inside a transaction
//   - Plan: the status writes a coordinator must apply atomically
//
// Common usage pattern (inside an engine transaction):
//
//	snaps := lockAndSnapshotItems(tx, itemIDs)
//	plan, err := inventory.PlanChange(before, after, snaps)
//	if err != nil {
//		// availability conflict - abort the whole transaction
//	}
//	// persist the obligation write and plan.Holds/plan.Releases atomically
package inventory
