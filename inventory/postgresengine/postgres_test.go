package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/inventory-coordinator-go/inventory"
	"github.com/shelfwise/inventory-coordinator-go/inventory/postgresengine"
	"github.com/shelfwise/inventory-coordinator-go/testutil/postgresengine/config"
	"github.com/shelfwise/inventory-coordinator-go/testutil/postgresengine/pgtesthelpers"
)

func setup(t *testing.T, options ...postgresengine.Option) (context.Context, *postgresengine.Coordinator) {
	t.Helper()

	ctx := context.Background()

	connectCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, config.PostgresTestDSN())
	if err != nil {
		t.Skipf("skipping, could not create pool: %v", err)
	}

	if pingErr := pool.Ping(connectCtx); pingErr != nil {
		pool.Close()
		t.Skipf("skipping, test database not reachable: %v", pingErr)
	}

	t.Cleanup(pool.Close)

	pgtesthelpers.CreateSchema(t, ctx, pool)
	pgtesthelpers.CleanUp(t, ctx, pool)

	coordinator, err := postgresengine.NewCoordinatorFromPGXPool(pool, options...)
	require.NoError(t, err)

	return ctx, coordinator
}

func givenItem(t *testing.T, ctx context.Context, coordinator *postgresengine.Coordinator, copies int) inventory.Item {
	t.Helper()

	item, err := inventory.BuildItem(uuid.New(), "some title", copies)
	require.NoError(t, err)
	require.NoError(t, coordinator.AddItem(ctx, item))

	return item
}

func givenRental(itemIDs ...uuid.UUID) inventory.Rental {
	return inventory.Rental{
		ID:         uuid.New(),
		ItemIDs:    itemIDs,
		RentedOn:   time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC),
		ExpectedOn: time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC),
	}
}

func Test_Coordinator_ItemRoundTrip(t *testing.T) {
	ctx, coordinator := setup(t)
	item := givenItem(t, ctx, coordinator, 3)

	stored, err := coordinator.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, stored.ID)
	assert.Equal(t, 3, stored.Copies)
	assert.Equal(t, inventory.StatusInStock, stored.Status)
}

func Test_Coordinator_GetItem_NotFound(t *testing.T) {
	ctx, coordinator := setup(t)

	_, err := coordinator.GetItem(ctx, uuid.New())
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
}

func Test_Coordinator_RentalLifecycle_SingleCopy(t *testing.T) {
	// arrange
	ctx, coordinator := setup(t)
	item := givenItem(t, ctx, coordinator, 1)
	rental := givenRental(item.ID)

	// act: rent
	require.NoError(t, coordinator.CreateRental(ctx, rental))

	// assert: held
	stored, err := coordinator.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusOutOfStock, stored.Status)
	assert.False(t, coordinator.IsAvailable(ctx, item.ID))

	// act: return
	returned := time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC)
	rental.ReturnedOn = &returned
	require.NoError(t, coordinator.UpdateRental(ctx, rental))

	// assert: released
	stored, err = coordinator.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusInStock, stored.Status)
	assert.True(t, coordinator.IsAvailable(ctx, item.ID))

	loaded, err := coordinator.GetRental(ctx, rental.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ReturnedOn)
	assert.True(t, loaded.ReturnedOn.Equal(returned))
}

func Test_Coordinator_CreateRental_ConflictRollsBackEverything(t *testing.T) {
	// arrange: one free item, one fully claimed item
	ctx, coordinator := setup(t)
	free := givenItem(t, ctx, coordinator, 1)
	taken := givenItem(t, ctx, coordinator, 1)
	require.NoError(t, coordinator.CreateRental(ctx, givenRental(taken.ID)))

	failing := givenRental(free.ID, taken.ID)

	// act
	err := coordinator.CreateRental(ctx, failing)

	// assert: conflict, and neither the rental row nor any status write exists
	assert.ErrorIs(t, err, inventory.ErrItemUnavailable)

	_, getErr := coordinator.GetRental(ctx, failing.ID)
	assert.ErrorIs(t, getErr, inventory.ErrObligationNotFound)

	stored, itemErr := coordinator.GetItem(ctx, free.ID)
	require.NoError(t, itemErr)
	assert.Equal(t, inventory.StatusInStock, stored.Status)
}

func Test_Coordinator_MultiCopy_LabelIsIgnoredForAvailability(t *testing.T) {
	// arrange: two copies, one rented, staff set a stale outofstock label
	ctx, coordinator := setup(t)
	item := givenItem(t, ctx, coordinator, 2)
	require.NoError(t, coordinator.CreateRental(ctx, givenRental(item.ID)))
	require.NoError(t, coordinator.SetItemStatus(ctx, item.ID, inventory.StatusOutOfStock))

	// assert: one copy is still free regardless of the label
	assert.True(t, coordinator.IsAvailable(ctx, item.ID))
}

func Test_Coordinator_ReservationLifecycle(t *testing.T) {
	// arrange
	ctx, coordinator := setup(t)
	item := givenItem(t, ctx, coordinator, 1)
	reservation := inventory.Reservation{
		ID:      uuid.New(),
		ItemIDs: []uuid.UUID{item.ID},
		Pickup:  time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC),
	}

	// act + assert: reserve
	require.NoError(t, coordinator.CreateReservation(ctx, reservation))

	stored, err := coordinator.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusReserved, stored.Status)

	// act + assert: pick up
	reservation.Done = true
	require.NoError(t, coordinator.UpdateReservation(ctx, reservation))

	stored, err = coordinator.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusInStock, stored.Status)
}

func Test_Coordinator_DeleteReservation_SkipsReleaseWhenStatusOwnedElsewhere(t *testing.T) {
	// arrange: reserve, then staff marks the item repairing
	ctx, coordinator := setup(t)
	item := givenItem(t, ctx, coordinator, 1)
	reservation := inventory.Reservation{
		ID:      uuid.New(),
		ItemIDs: []uuid.UUID{item.ID},
		Pickup:  time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, coordinator.CreateReservation(ctx, reservation))
	require.NoError(t, coordinator.SetItemStatus(ctx, item.ID, inventory.StatusRepairing))

	// act
	require.NoError(t, coordinator.DeleteReservation(ctx, reservation.ID))

	// assert: the manual status survives the delete
	stored, err := coordinator.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusRepairing, stored.Status)
}

func Test_Coordinator_BookingGateAndLanes(t *testing.T) {
	// arrange
	ctx, coordinator := setup(t)
	item := givenItem(t, ctx, coordinator, 2)

	makeBooking := func(startDay, endDay int) inventory.Booking {
		return inventory.Booking{
			ID:        uuid.New(),
			ItemID:    item.ID,
			StartDate: time.Date(2026, time.April, startDay, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, time.April, endDay, 0, 0, 0, 0, time.UTC),
		}
	}

	first := makeBooking(1, 5)
	second := makeBooking(3, 7)
	third := makeBooking(4, 9)

	// act + assert: two bookings fit the two copies, the third is rejected
	require.NoError(t, coordinator.CreateBooking(ctx, first))
	require.NoError(t, coordinator.CreateBooking(ctx, second))
	assert.ErrorIs(t, coordinator.CreateBooking(ctx, third), inventory.ErrItemUnavailable)

	// bookings never drive the item status
	stored, err := coordinator.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusInStock, stored.Status)

	// lanes lay the two live bookings out without overlap
	assignments, err := coordinator.ItemLanes(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.NotEqual(t, assignments[0].Lane, assignments[1].Lane)

	// returning one frees a slot for the third
	require.NoError(t, coordinator.CompleteBooking(ctx, first.ID))
	require.NoError(t, coordinator.CreateBooking(ctx, third))
}

func Test_Coordinator_BeforeCommitHookAbortsTransaction(t *testing.T) {
	// arrange
	registry := inventory.NewHookRegistry()
	registry.OnBeforeCommit(inventory.KindRental, func(_ context.Context, _ inventory.Change) error {
		return assert.AnError
	})

	ctx, coordinator := setup(t, postgresengine.WithHooks(registry))

	item := givenItem(t, ctx, coordinator, 1)
	rental := givenRental(item.ID)

	// act
	err := coordinator.CreateRental(ctx, rental)

	// assert: hook rejected, nothing persisted
	assert.ErrorIs(t, err, inventory.ErrBeforeCommitHookFailed)

	_, getErr := coordinator.GetRental(ctx, rental.ID)
	assert.ErrorIs(t, getErr, inventory.ErrObligationNotFound)

	stored, itemErr := coordinator.GetItem(ctx, item.ID)
	require.NoError(t, itemErr)
	assert.Equal(t, inventory.StatusInStock, stored.Status)
}

func Test_Coordinator_SetItemStatus_UnknownItem(t *testing.T) {
	ctx, coordinator := setup(t)

	err := coordinator.SetItemStatus(ctx, uuid.New(), inventory.StatusLost)
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
}
