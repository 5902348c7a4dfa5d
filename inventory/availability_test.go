package inventory_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/shelfwise/inventory-coordinator-go/inventory"
)

func snapshotWith(copies int, status inventory.ItemStatus, rentals, reservations int) inventory.Snapshot {
	return inventory.Snapshot{
		Item: inventory.Item{
			ID:     uuid.New(),
			Title:  "some title",
			Copies: copies,
			Status: status,
		},
		ActiveRentals:      rentals,
		ActiveReservations: reservations,
	}
}

func Test_Available_SingleCopy_StatusLabelIsAuthoritative(t *testing.T) {
	tests := []struct {
		name      string
		status    inventory.ItemStatus
		rentals   int
		available bool
	}{
		{name: "instock_is_available", status: inventory.StatusInStock, rentals: 0, available: true},
		{name: "outofstock_is_unavailable", status: inventory.StatusOutOfStock, rentals: 1, available: false},
		{name: "reserved_is_unavailable", status: inventory.StatusReserved, rentals: 0, available: false},
		{name: "lost_is_unavailable", status: inventory.StatusLost, rentals: 0, available: false},
		{name: "repairing_is_unavailable", status: inventory.StatusRepairing, rentals: 0, available: false},
		// The label decides even when the counts disagree with it.
		{name: "instock_wins_over_stale_counts", status: inventory.StatusInStock, rentals: 1, available: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := snapshotWith(1, tc.status, tc.rentals, 0)

			assert.Equal(t, tc.available, inventory.Available(snap))
		})
	}
}

func Test_Available_MultiCopy_CountsDecideAndLabelIsIgnored(t *testing.T) {
	tests := []struct {
		name         string
		copies       int
		status       inventory.ItemStatus
		rentals      int
		reservations int
		available    bool
	}{
		{name: "all_copies_free", copies: 3, status: inventory.StatusInStock, available: true},
		{name: "one_copy_left", copies: 3, status: inventory.StatusInStock, rentals: 1, reservations: 1, available: true},
		{name: "no_copy_left", copies: 3, status: inventory.StatusInStock, rentals: 2, reservations: 1, available: false},
		{name: "oversubscribed", copies: 2, status: inventory.StatusInStock, rentals: 2, reservations: 1, available: false},
		// A stale outofstock label cannot hide free copies.
		{name: "label_ignored_when_copies_free", copies: 2, status: inventory.StatusOutOfStock, rentals: 1, available: true},
		{name: "lost_label_ignored_when_copies_free", copies: 2, status: inventory.StatusLost, available: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := snapshotWith(tc.copies, tc.status, tc.rentals, tc.reservations)

			assert.Equal(t, tc.available, inventory.Available(snap))
		})
	}
}

func Test_FreeCopies_GoesNegativeWhenDataViolatesCopyBound(t *testing.T) {
	snap := snapshotWith(2, inventory.StatusInStock, 3, 1)

	assert.Equal(t, -2, inventory.FreeCopies(snap))
}

func Test_FreeCopies_SubtractsLiveObligations(t *testing.T) {
	snap := snapshotWith(5, inventory.StatusInStock, 2, 1)

	assert.Equal(t, 2, inventory.FreeCopies(snap))
}
