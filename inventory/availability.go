package inventory

// Snapshot is the consistent view of one item that an engine gathers inside
// a transaction: the item record plus the number of live rentals and live
// reservations currently referencing it.
type Snapshot struct {
	Item               Item
	ActiveRentals      int
	ActiveReservations int
}

// Available decides whether at least one copy of the item is free.
//
// For single-copy items the status label is authoritative: the item is
// available iff its status is instock. For multi-copy items the label is
// ignored and availability is computed from the live obligation counts.
func Available(snap Snapshot) bool {
	if snap.Item.Copies <= 1 {
		return snap.Item.Status == StatusInStock
	}

	return FreeCopies(snap) > 0
}

// FreeCopies returns the number of copies not claimed by a live rental or
// reservation. Only meaningful for multi-copy items; it can go negative if
// historical data already violates the copy bound.
func FreeCopies(snap Snapshot) int {
	return snap.Item.Copies - snap.ActiveRentals - snap.ActiveReservations
}
