package inventory_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/inventory-coordinator-go/inventory"
)

func rentalView(terminal bool, itemIDs ...uuid.UUID) *inventory.ObligationView {
	return &inventory.ObligationView{Kind: inventory.KindRental, ItemIDs: itemIDs, Terminal: terminal}
}

func reservationView(terminal bool, itemIDs ...uuid.UUID) *inventory.ObligationView {
	return &inventory.ObligationView{Kind: inventory.KindReservation, ItemIDs: itemIDs, Terminal: terminal}
}

func snapsFor(snaps ...inventory.Snapshot) map[uuid.UUID]inventory.Snapshot {
	result := make(map[uuid.UUID]inventory.Snapshot, len(snaps))
	for _, snap := range snaps {
		result[snap.Item.ID] = snap
	}

	return result
}

func availableItem(copies int) inventory.Snapshot {
	return inventory.Snapshot{
		Item: inventory.Item{ID: uuid.New(), Title: "some title", Copies: copies, Status: inventory.StatusInStock},
	}
}

func Test_PlanChange_Create_HoldsEveryReferencedItem(t *testing.T) {
	// arrange
	first := availableItem(1)
	second := availableItem(3)
	after := rentalView(false, first.Item.ID, second.Item.ID)

	// act
	plan, err := inventory.PlanChange(nil, after, snapsFor(first, second))

	// assert
	require.NoError(t, err)
	require.Len(t, plan.Holds, 2)
	assert.Equal(t, inventory.StatusOutOfStock, plan.Holds[0].To)
	assert.Equal(t, inventory.StatusOutOfStock, plan.Holds[1].To)
	assert.Empty(t, plan.Releases)
	assert.Empty(t, plan.Skips)
}

func Test_PlanChange_Create_ReservationUsesReservedLabel(t *testing.T) {
	snap := availableItem(1)

	plan, err := inventory.PlanChange(nil, reservationView(false, snap.Item.ID), snapsFor(snap))

	require.NoError(t, err)
	require.Len(t, plan.Holds, 1)
	assert.Equal(t, inventory.StatusReserved, plan.Holds[0].To)
}

func Test_PlanChange_Create_AbortsWhenAnyItemIsUnavailable(t *testing.T) {
	// arrange: second item has no free copy left
	free := availableItem(1)
	taken := inventory.Snapshot{
		Item:          inventory.Item{ID: uuid.New(), Copies: 2, Status: inventory.StatusInStock},
		ActiveRentals: 2,
	}
	after := rentalView(false, free.Item.ID, taken.Item.ID)

	// act
	plan, err := inventory.PlanChange(nil, after, snapsFor(free, taken))

	// assert: no partial plan survives the conflict
	assert.ErrorIs(t, err, inventory.ErrItemUnavailable)
	assert.True(t, plan.IsEmpty())
}

func Test_PlanChange_Create_TerminalObligationHoldsNothing(t *testing.T) {
	snap := availableItem(1)

	plan, err := inventory.PlanChange(nil, rentalView(true, snap.Item.ID), snapsFor(snap))

	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
}

func Test_PlanChange_Create_UnknownItemFails(t *testing.T) {
	after := rentalView(false, uuid.New())

	_, err := inventory.PlanChange(nil, after, snapsFor())

	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
}

func Test_PlanChange_Update_DiffsHeldItems(t *testing.T) {
	// arrange: kept stays untouched, dropped is released, added is held
	kept := availableItem(1)
	dropped := inventory.Snapshot{
		Item: inventory.Item{ID: uuid.New(), Copies: 1, Status: inventory.StatusOutOfStock},
	}
	added := availableItem(1)

	before := rentalView(false, kept.Item.ID, dropped.Item.ID)
	after := rentalView(false, kept.Item.ID, added.Item.ID)

	// act
	plan, err := inventory.PlanChange(before, after, snapsFor(kept, dropped, added))

	// assert
	require.NoError(t, err)
	require.Len(t, plan.Holds, 1)
	assert.Equal(t, added.Item.ID, plan.Holds[0].ItemID)
	require.Len(t, plan.Releases, 1)
	assert.Equal(t, dropped.Item.ID, plan.Releases[0].ItemID)
	assert.Equal(t, inventory.StatusInStock, plan.Releases[0].To)
	assert.Empty(t, plan.Skips)
}

func Test_PlanChange_Update_TerminalAfterReleasesEverything(t *testing.T) {
	// arrange: rental returned in the same update
	first := inventory.Snapshot{
		Item: inventory.Item{ID: uuid.New(), Copies: 1, Status: inventory.StatusOutOfStock},
	}
	second := inventory.Snapshot{
		Item: inventory.Item{ID: uuid.New(), Copies: 1, Status: inventory.StatusOutOfStock},
	}

	before := rentalView(false, first.Item.ID, second.Item.ID)
	after := rentalView(true, first.Item.ID, second.Item.ID)

	// act
	plan, err := inventory.PlanChange(before, after, snapsFor(first, second))

	// assert
	require.NoError(t, err)
	assert.Empty(t, plan.Holds)
	assert.Len(t, plan.Releases, 2)
}

func Test_PlanChange_Update_ReopeningRevalidatesAndReholds(t *testing.T) {
	// arrange: terminal before, live after, item currently free
	snap := availableItem(1)

	before := rentalView(true, snap.Item.ID)
	after := rentalView(false, snap.Item.ID)

	// act
	plan, err := inventory.PlanChange(before, after, snapsFor(snap))

	// assert
	require.NoError(t, err)
	require.Len(t, plan.Holds, 1)
	assert.Equal(t, snap.Item.ID, plan.Holds[0].ItemID)
}

func Test_PlanChange_Update_ReopeningFailsWhenItemWasTakenMeanwhile(t *testing.T) {
	taken := inventory.Snapshot{
		Item: inventory.Item{ID: uuid.New(), Copies: 1, Status: inventory.StatusOutOfStock},
	}

	before := rentalView(true, taken.Item.ID)
	after := rentalView(false, taken.Item.ID)

	_, err := inventory.PlanChange(before, after, snapsFor(taken))

	assert.ErrorIs(t, err, inventory.ErrItemUnavailable)
}

func Test_PlanChange_Release_SkipsWhenStatusIsOwnedElsewhere(t *testing.T) {
	// arrange: item went lost while the rental was out
	lost := inventory.Snapshot{
		Item: inventory.Item{ID: uuid.New(), Copies: 1, Status: inventory.StatusLost},
	}

	before := rentalView(false, lost.Item.ID)

	// act
	plan, err := inventory.PlanChange(before, nil, snapsFor(lost))

	// assert: the manual status wins, the release is recorded as a skip
	require.NoError(t, err)
	assert.Empty(t, plan.Releases)
	require.Len(t, plan.Skips, 1)
	assert.Equal(t, inventory.StatusLost, plan.Skips[0].Status)
	assert.Equal(t, inventory.StatusOutOfStock, plan.Skips[0].Expected)
}

func Test_PlanChange_Release_SkipsWhenAnotherKindHoldsTheLabel(t *testing.T) {
	// arrange: a reservation label sits on the item, a rental release must not clear it
	reserved := inventory.Snapshot{
		Item: inventory.Item{ID: uuid.New(), Copies: 1, Status: inventory.StatusReserved},
	}

	before := rentalView(false, reserved.Item.ID)

	plan, err := inventory.PlanChange(before, nil, snapsFor(reserved))

	require.NoError(t, err)
	assert.Empty(t, plan.Releases)
	require.Len(t, plan.Skips, 1)
}

func Test_PlanChange_Release_AlreadyInStockIsANoErrorSkip(t *testing.T) {
	// arrange: the item was already released by some other path
	instock := availableItem(1)

	before := rentalView(false, instock.Item.ID)

	plan, err := inventory.PlanChange(before, nil, snapsFor(instock))

	require.NoError(t, err)
	assert.Empty(t, plan.Releases)
	require.Len(t, plan.Skips, 1)
	assert.Equal(t, inventory.StatusInStock, plan.Skips[0].Status)
}

func Test_PlanChange_Delete_ReleasesMatchingHolds(t *testing.T) {
	held := inventory.Snapshot{
		Item: inventory.Item{ID: uuid.New(), Copies: 1, Status: inventory.StatusOutOfStock},
	}

	before := rentalView(false, held.Item.ID)

	plan, err := inventory.PlanChange(before, nil, snapsFor(held))

	require.NoError(t, err)
	require.Len(t, plan.Releases, 1)
	assert.Equal(t, inventory.StatusInStock, plan.Releases[0].To)
}

func Test_PlanChange_Delete_TerminalObligationReleasesNothing(t *testing.T) {
	snap := availableItem(1)

	plan, err := inventory.PlanChange(rentalView(true, snap.Item.ID), nil, snapsFor(snap))

	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
}

func Test_PlanChange_Booking_NeverTouchesItemStatus(t *testing.T) {
	snap := availableItem(1)
	after := &inventory.ObligationView{Kind: inventory.KindBooking, ItemIDs: []uuid.UUID{snap.Item.ID}}

	plan, err := inventory.PlanChange(nil, after, snapsFor(snap))

	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
}

func Test_PlanChange_DuplicateItemReferencesAreHeldOnce(t *testing.T) {
	snap := availableItem(1)
	after := rentalView(false, snap.Item.ID, snap.Item.ID)

	plan, err := inventory.PlanChange(nil, after, snapsFor(snap))

	require.NoError(t, err)
	assert.Len(t, plan.Holds, 1)
}
