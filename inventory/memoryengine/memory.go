package memoryengine

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/shelfwise/inventory-coordinator-go/inventory"
)

// CommitInterceptor runs at the commit point of a mutation, after hooks and
// planning and before any state is written. Returning an error aborts the
// mutation with nothing applied, simulating a failed commit.
type CommitInterceptor func(ctx context.Context, change inventory.Change) error

// Option defines a functional option for configuring a Coordinator.
type Option func(*Coordinator) error

// WithHooks sets the hook registry whose typed before-commit and
// after-commit callbacks the Coordinator dispatches around every obligation
// mutation.
func WithHooks(registry *inventory.HookRegistry) Option {
	return func(c *Coordinator) error {
		c.hooks = registry
		return nil
	}
}

// WithLogger sets the logger for the Coordinator.
func WithLogger(logger inventory.Logger) Option {
	return func(c *Coordinator) error {
		c.logger = logger
		return nil
	}
}

// WithCommitInterceptor sets the commit interceptor. Intended for tests that
// need to observe or fail the commit point.
func WithCommitInterceptor(interceptor CommitInterceptor) Option {
	return func(c *Coordinator) error {
		c.commitInterceptor = interceptor
		return nil
	}
}

// Coordinator is the in-memory availability and consistency coordinator.
// All state lives behind one mutex; each operation is atomic with respect to
// every other operation, matching the transactional guarantees of the
// Postgres engine.
type Coordinator struct {
	mu                sync.Mutex
	items             map[uuid.UUID]inventory.Item
	rentals           map[uuid.UUID]inventory.Rental
	reservations      map[uuid.UUID]inventory.Reservation
	bookings          map[uuid.UUID]inventory.Booking
	hooks             *inventory.HookRegistry
	logger            inventory.Logger
	commitInterceptor CommitInterceptor
}

// NewCoordinator creates an empty in-memory Coordinator with optional
// configuration.
func NewCoordinator(options ...Option) (*Coordinator, error) {
	c := &Coordinator{
		items:        make(map[uuid.UUID]inventory.Item),
		rentals:      make(map[uuid.UUID]inventory.Rental),
		reservations: make(map[uuid.UUID]inventory.Reservation),
		bookings:     make(map[uuid.UUID]inventory.Booking),
	}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

/***** item operations *****/

// AddItem inserts a new item record.
func (c *Coordinator) AddItem(_ context.Context, item inventory.Item) error {
	if item.Copies < 1 {
		return inventory.ErrInvalidCopyCount
	}

	if !item.Status.IsValid() {
		item.Status = inventory.StatusInStock
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[item.ID] = item

	return nil
}

// GetItem retrieves one item record.
func (c *Coordinator) GetItem(_ context.Context, itemID uuid.UUID) (inventory.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[itemID]
	if !found {
		return inventory.Item{}, inventory.ErrItemNotFound
	}

	return item, nil
}

// SetItemStatus applies a staff-driven manual status edit. These edits are
// out-of-band: the coordinator's release logic will not overwrite them.
func (c *Coordinator) SetItemStatus(_ context.Context, itemID uuid.UUID, status inventory.ItemStatus) error {
	if !status.IsValid() {
		return inventory.ErrItemNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[itemID]
	if !found {
		return inventory.ErrItemNotFound
	}

	item.Status = status
	c.items[itemID] = item

	return nil
}

/***** availability *****/

// IsAvailable decides whether at least one copy of the item is free right
// now. It fails closed: an unknown item yields false.
func (c *Coordinator) IsAvailable(_ context.Context, itemID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.snapshotLocked(itemID)
	if err != nil {
		return false
	}

	return inventory.Available(snap)
}

/***** lane assignment *****/

// ItemLanes assigns the item's live bookings to copy lanes for display.
func (c *Coordinator) ItemLanes(_ context.Context, itemID uuid.UUID) ([]inventory.LaneAssignment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[itemID]
	if !found {
		return nil, inventory.ErrItemNotFound
	}

	live := make([]inventory.Booking, 0)

	for _, booking := range c.bookings {
		if booking.ItemID == itemID && !booking.IsTerminal() {
			live = append(live, booking)
		}
	}

	return inventory.AssignLanes(item.Copies, live), nil
}

/***** rentals *****/

// CreateRental validates availability for every referenced item, stores the
// rental and marks the items outofstock, atomically.
func (c *Coordinator) CreateRental(ctx context.Context, rental inventory.Rental) error {
	after := rental.View()

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.applyChangeLocked(ctx, nil, &after, func() {
		c.rentals[rental.ID] = cloneRental(rental)
	})
}

// UpdateRental applies an edited rental with symmetric hold and release
// semantics; a rental returned in the same update releases everything.
func (c *Coordinator) UpdateRental(ctx context.Context, rental inventory.Rental) error {
	after := rental.View()

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, found := c.rentals[rental.ID]
	if !found {
		return inventory.ErrObligationNotFound
	}

	before := existing.View()

	return c.applyChangeLocked(ctx, &before, &after, func() {
		c.rentals[rental.ID] = cloneRental(rental)
	})
}

// DeleteRental removes the rental record and releases every item it was
// holding.
func (c *Coordinator) DeleteRental(ctx context.Context, rentalID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, found := c.rentals[rentalID]
	if !found {
		return inventory.ErrObligationNotFound
	}

	before := existing.View()

	return c.applyChangeLocked(ctx, &before, nil, func() {
		delete(c.rentals, rentalID)
	})
}

// GetRental retrieves one rental record.
func (c *Coordinator) GetRental(_ context.Context, rentalID uuid.UUID) (inventory.Rental, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rental, found := c.rentals[rentalID]
	if !found {
		return inventory.Rental{}, inventory.ErrObligationNotFound
	}

	return cloneRental(rental), nil
}

/***** reservations *****/

// CreateReservation validates availability for every referenced item, stores
// the reservation and marks the items reserved, atomically.
func (c *Coordinator) CreateReservation(ctx context.Context, reservation inventory.Reservation) error {
	after := reservation.View()

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.applyChangeLocked(ctx, nil, &after, func() {
		c.reservations[reservation.ID] = cloneReservation(reservation)
	})
}

// UpdateReservation applies an edited reservation; marking it done releases
// every item.
func (c *Coordinator) UpdateReservation(ctx context.Context, reservation inventory.Reservation) error {
	after := reservation.View()

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, found := c.reservations[reservation.ID]
	if !found {
		return inventory.ErrObligationNotFound
	}

	before := existing.View()

	return c.applyChangeLocked(ctx, &before, &after, func() {
		c.reservations[reservation.ID] = cloneReservation(reservation)
	})
}

// DeleteReservation removes the reservation record and releases every item
// it was holding.
func (c *Coordinator) DeleteReservation(ctx context.Context, reservationID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, found := c.reservations[reservationID]
	if !found {
		return inventory.ErrObligationNotFound
	}

	before := existing.View()

	return c.applyChangeLocked(ctx, &before, nil, func() {
		delete(c.reservations, reservationID)
	})
}

// GetReservation retrieves one reservation record.
func (c *Coordinator) GetReservation(_ context.Context, reservationID uuid.UUID) (inventory.Reservation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reservation, found := c.reservations[reservationID]
	if !found {
		return inventory.Reservation{}, inventory.ErrObligationNotFound
	}

	return cloneReservation(reservation), nil
}

/***** bookings *****/

// CreateBooking validates the booking once against the live-booking count of
// its item and stores it. Bookings never drive item status.
func (c *Coordinator) CreateBooking(ctx context.Context, booking inventory.Booking) error {
	if booking.Status == "" {
		booking.Status = inventory.BookingReserved
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[booking.ItemID]
	if !found {
		return inventory.ErrItemNotFound
	}

	if !booking.IsTerminal() {
		liveBookings := 0

		for _, existing := range c.bookings {
			if existing.ItemID == booking.ItemID && !existing.IsTerminal() {
				liveBookings++
			}
		}

		if liveBookings >= item.Copies {
			return inventory.ErrItemUnavailable
		}
	}

	after := booking.View()
	change := inventory.Change{Kind: inventory.KindBooking, After: &after}

	if err := c.hooks.RunBeforeCommit(ctx, change); err != nil {
		return err
	}

	if err := c.intercept(ctx, change); err != nil {
		return err
	}

	c.bookings[booking.ID] = booking
	c.hooks.RunAfterCommit(ctx, change)

	return nil
}

// SetBookingStatus moves a booking through its lifecycle. Plain status
// update, no item status synchronization.
func (c *Coordinator) SetBookingStatus(_ context.Context, bookingID uuid.UUID, status inventory.BookingStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	booking, found := c.bookings[bookingID]
	if !found {
		return inventory.ErrObligationNotFound
	}

	booking.Status = status
	c.bookings[bookingID] = booking

	return nil
}

// CompleteBooking marks a booking returned, ending its claim on the item.
func (c *Coordinator) CompleteBooking(ctx context.Context, bookingID uuid.UUID) error {
	return c.SetBookingStatus(ctx, bookingID, inventory.BookingReturned)
}

// GetBooking retrieves one booking record.
func (c *Coordinator) GetBooking(_ context.Context, bookingID uuid.UUID) (inventory.Booking, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	booking, found := c.bookings[bookingID]
	if !found {
		return inventory.Booking{}, inventory.ErrObligationNotFound
	}

	return booking, nil
}

/***** shared mutation flow *****/

// applyChangeLocked is the in-memory counterpart of the Postgres transaction
// flow: snapshot, plan, hooks, commit point, then apply. Nothing is written
// before the commit point, so any error leaves state untouched. Must be
// called with the mutex held.
func (c *Coordinator) applyChangeLocked(
	ctx context.Context,
	before, after *inventory.ObligationView,
	write func(),
) error {

	snaps, err := c.snapshotAffectedLocked(before, after)
	if err != nil {
		return err
	}

	plan, err := inventory.PlanChange(before, after, snaps)
	if err != nil {
		return err
	}

	kind := inventory.ObligationKind("")
	if after != nil {
		kind = after.Kind
	} else if before != nil {
		kind = before.Kind
	}

	change := inventory.Change{Kind: kind, Before: before, After: after, Plan: plan}

	if hookErr := c.hooks.RunBeforeCommit(ctx, change); hookErr != nil {
		return hookErr
	}

	if commitErr := c.intercept(ctx, change); commitErr != nil {
		return commitErr
	}

	write()

	for _, statusChange := range plan.Holds {
		c.setStatusLocked(statusChange.ItemID, statusChange.To)
	}

	for _, statusChange := range plan.Releases {
		c.setStatusLocked(statusChange.ItemID, statusChange.To)
	}

	c.hooks.RunAfterCommit(ctx, change)

	if c.logger != nil {
		for _, skip := range plan.Skips {
			c.logger.Info("release skipped, item status owned elsewhere",
				"item_id", skip.ItemID.String(),
				"status", string(skip.Status),
				"expected_status", string(skip.Expected))
		}
	}

	return nil
}

func (c *Coordinator) intercept(ctx context.Context, change inventory.Change) error {
	if c.commitInterceptor == nil {
		return nil
	}

	if err := c.commitInterceptor(ctx, change); err != nil {
		return errors.Join(inventory.ErrTransactionFailed, err)
	}

	return nil
}

func (c *Coordinator) setStatusLocked(itemID uuid.UUID, status inventory.ItemStatus) {
	item, found := c.items[itemID]
	if !found {
		return
	}

	item.Status = status
	c.items[itemID] = item
}

func (c *Coordinator) snapshotAffectedLocked(before, after *inventory.ObligationView) (map[uuid.UUID]inventory.Snapshot, error) {
	snaps := make(map[uuid.UUID]inventory.Snapshot)

	collect := func(view *inventory.ObligationView) error {
		if view == nil {
			return nil
		}

		for _, itemID := range view.ItemIDs {
			if _, done := snaps[itemID]; done {
				continue
			}

			snap, err := c.snapshotLocked(itemID)
			if err != nil {
				return err
			}

			snaps[itemID] = snap
		}

		return nil
	}

	if err := collect(before); err != nil {
		return nil, err
	}

	if err := collect(after); err != nil {
		return nil, err
	}

	return snaps, nil
}

func (c *Coordinator) snapshotLocked(itemID uuid.UUID) (inventory.Snapshot, error) {
	item, found := c.items[itemID]
	if !found {
		return inventory.Snapshot{}, inventory.ErrItemNotFound
	}

	snap := inventory.Snapshot{Item: item}

	for _, rental := range c.rentals {
		if !rental.IsTerminal() && references(rental.ItemIDs, itemID) {
			snap.ActiveRentals++
		}
	}

	for _, reservation := range c.reservations {
		if !reservation.IsTerminal() && references(reservation.ItemIDs, itemID) {
			snap.ActiveReservations++
		}
	}

	return snap, nil
}

func references(itemIDs []uuid.UUID, itemID uuid.UUID) bool {
	for _, id := range itemIDs {
		if id == itemID {
			return true
		}
	}

	return false
}

func cloneRental(rental inventory.Rental) inventory.Rental {
	clone := rental
	clone.ItemIDs = append([]uuid.UUID(nil), rental.ItemIDs...)

	if rental.ReturnedOn != nil {
		returned := *rental.ReturnedOn
		clone.ReturnedOn = &returned
	}

	return clone
}

func cloneReservation(reservation inventory.Reservation) inventory.Reservation {
	clone := reservation
	clone.ItemIDs = append([]uuid.UUID(nil), reservation.ItemIDs...)

	return clone
}
