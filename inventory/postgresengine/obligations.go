package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/shelfwise/inventory-coordinator-go/inventory"
	"github.com/shelfwise/inventory-coordinator-go/inventory/postgresengine/internal/adapters"
)

const (
	opCreateRental      = "create_rental"
	opUpdateRental      = "update_rental"
	opDeleteRental      = "delete_rental"
	opGetRental         = "get_rental"
	opCreateReservation = "create_reservation"
	opUpdateReservation = "update_reservation"
	opDeleteReservation = "delete_reservation"
	opGetReservation    = "get_reservation"
	opCreateBooking     = "create_booking"
)

// beforeLoader loads the pre-write image of an obligation inside the
// transaction, locking its row. It is nil for a create.
type beforeLoader func(ctx context.Context, tx adapters.DBTx) (*inventory.ObligationView, error)

// txWrite persists the obligation write itself inside the transaction.
type txWrite func(ctx context.Context, tx adapters.DBTx) error

/***** rentals *****/

// CreateRental validates availability for every referenced item, persists
// the rental and marks the items outofstock, all in one transaction. An
// unavailable item aborts the whole transaction with ErrItemUnavailable and
// nothing is persisted.
func (c *Coordinator) CreateRental(ctx context.Context, rental inventory.Rental) error {
	after := rental.View()

	return c.applyObligationChange(ctx, opCreateRental, rental.ID, nil, &after,
		func(ctx context.Context, tx adapters.DBTx) error {
			return c.insertRental(ctx, tx, rental)
		})
}

// UpdateRental applies an edited rental: released items go back to instock
// (unless another owner took the status), newly referenced items are
// availability-checked and held, and a rental returned in the same update
// releases everything. The post-update terminal state decides the holds.
func (c *Coordinator) UpdateRental(ctx context.Context, rental inventory.Rental) error {
	after := rental.View()

	return c.applyObligationChange(ctx, opUpdateRental, rental.ID,
		func(ctx context.Context, tx adapters.DBTx) (*inventory.ObligationView, error) {
			before, err := c.loadRentalForUpdate(ctx, tx, rental.ID)
			if err != nil {
				return nil, err
			}

			view := before.View()

			return &view, nil
		},
		&after,
		func(ctx context.Context, tx adapters.DBTx) error {
			return c.updateRental(ctx, tx, rental)
		})
}

// DeleteRental removes the rental record and releases every item it was
// holding. Deletion is an explicit staff action; held capacity must never
// leak.
func (c *Coordinator) DeleteRental(ctx context.Context, rentalID uuid.UUID) error {
	return c.applyObligationChange(ctx, opDeleteRental, rentalID,
		func(ctx context.Context, tx adapters.DBTx) (*inventory.ObligationView, error) {
			before, err := c.loadRentalForUpdate(ctx, tx, rentalID)
			if err != nil {
				return nil, err
			}

			view := before.View()

			return &view, nil
		},
		nil,
		func(ctx context.Context, tx adapters.DBTx) error {
			return c.deleteByID(ctx, tx, c.table(tableRentals), rentalID, opDeleteRental)
		})
}

// GetRental retrieves one rental record.
func (c *Coordinator) GetRental(ctx context.Context, rentalID uuid.UUID) (inventory.Rental, error) {
	sqlQuery, _, toSQLErr := builder().
		From(c.table(tableRentals)).
		Select(colID, colItemIDs, colRentedOn, colExpectedOn, colReturnedOn).
		Where(goqu.C(colID).Eq(rentalID.String())).
		ToSQL()
	if toSQLErr != nil {
		return inventory.Rental{}, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := c.executeQuery(ctx, c.db, sqlQuery, opGetRental)
	if err != nil {
		return inventory.Rental{}, err
	}
	defer c.closeRows(ctx, rows)

	if !rows.Next() {
		return inventory.Rental{}, inventory.ErrObligationNotFound
	}

	return scanRental(rows)
}

func (c *Coordinator) insertRental(ctx context.Context, tx adapters.DBTx, rental inventory.Rental) error {
	itemIDsJSON, err := marshalItemIDs(rental.ItemIDs)
	if err != nil {
		return err
	}

	sqlQuery, _, toSQLErr := builder().
		Insert(c.table(tableRentals)).
		Rows(goqu.Record{
			colID:         rental.ID.String(),
			colItemIDs:    goqu.L(castJsonb, itemIDsJSON),
			colRentedOn:   rental.RentedOn,
			colExpectedOn: rental.ExpectedOn,
			colReturnedOn: nullableTime(rental.ReturnedOn),
		}).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	_, err = c.executeExec(ctx, tx, sqlQuery, opCreateRental)

	return err
}

func (c *Coordinator) updateRental(ctx context.Context, tx adapters.DBTx, rental inventory.Rental) error {
	itemIDsJSON, err := marshalItemIDs(rental.ItemIDs)
	if err != nil {
		return err
	}

	sqlQuery, _, toSQLErr := builder().
		Update(c.table(tableRentals)).
		Set(goqu.Record{
			colItemIDs:    goqu.L(castJsonb, itemIDsJSON),
			colRentedOn:   rental.RentedOn,
			colExpectedOn: rental.ExpectedOn,
			colReturnedOn: nullableTime(rental.ReturnedOn),
		}).
		Where(goqu.C(colID).Eq(rental.ID.String())).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	_, err = c.executeExec(ctx, tx, sqlQuery, opUpdateRental)

	return err
}

func (c *Coordinator) loadRentalForUpdate(ctx context.Context, tx adapters.DBTx, rentalID uuid.UUID) (inventory.Rental, error) {
	sqlQuery, _, toSQLErr := builder().
		From(c.table(tableRentals)).
		Select(colID, colItemIDs, colRentedOn, colExpectedOn, colReturnedOn).
		Where(goqu.C(colID).Eq(rentalID.String())).
		ForUpdate(exp.Wait).
		ToSQL()
	if toSQLErr != nil {
		return inventory.Rental{}, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := c.executeQuery(ctx, tx, sqlQuery, opGetRental)
	if err != nil {
		return inventory.Rental{}, err
	}
	defer c.closeRows(ctx, rows)

	if !rows.Next() {
		return inventory.Rental{}, inventory.ErrObligationNotFound
	}

	return scanRental(rows)
}

func scanRental(rows adapters.DBRows) (inventory.Rental, error) {
	var idString string
	var itemIDsRaw []byte
	var rentedOn, expectedOn time.Time
	var returnedOn sql.NullTime

	if err := rows.Scan(&idString, &itemIDsRaw, &rentedOn, &expectedOn, &returnedOn); err != nil {
		return inventory.Rental{}, errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	rentalID, err := uuid.Parse(idString)
	if err != nil {
		return inventory.Rental{}, errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	itemIDs, err := unmarshalItemIDs(itemIDsRaw)
	if err != nil {
		return inventory.Rental{}, err
	}

	rental := inventory.Rental{
		ID:         rentalID,
		ItemIDs:    itemIDs,
		RentedOn:   rentedOn,
		ExpectedOn: expectedOn,
	}

	if returnedOn.Valid {
		returned := returnedOn.Time
		rental.ReturnedOn = &returned
	}

	return rental, nil
}

/***** reservations *****/

// CreateReservation validates availability for every referenced item,
// persists the reservation and marks the items reserved, all in one
// transaction.
func (c *Coordinator) CreateReservation(ctx context.Context, reservation inventory.Reservation) error {
	after := reservation.View()

	return c.applyObligationChange(ctx, opCreateReservation, reservation.ID, nil, &after,
		func(ctx context.Context, tx adapters.DBTx) error {
			return c.insertReservation(ctx, tx, reservation)
		})
}

// UpdateReservation applies an edited reservation with the same hold and
// release semantics as UpdateRental; marking it done releases every item.
func (c *Coordinator) UpdateReservation(ctx context.Context, reservation inventory.Reservation) error {
	after := reservation.View()

	return c.applyObligationChange(ctx, opUpdateReservation, reservation.ID,
		func(ctx context.Context, tx adapters.DBTx) (*inventory.ObligationView, error) {
			before, err := c.loadReservationForUpdate(ctx, tx, reservation.ID)
			if err != nil {
				return nil, err
			}

			view := before.View()

			return &view, nil
		},
		&after,
		func(ctx context.Context, tx adapters.DBTx) error {
			return c.updateReservation(ctx, tx, reservation)
		})
}

// DeleteReservation removes the reservation record and releases every item
// it was holding.
func (c *Coordinator) DeleteReservation(ctx context.Context, reservationID uuid.UUID) error {
	return c.applyObligationChange(ctx, opDeleteReservation, reservationID,
		func(ctx context.Context, tx adapters.DBTx) (*inventory.ObligationView, error) {
			before, err := c.loadReservationForUpdate(ctx, tx, reservationID)
			if err != nil {
				return nil, err
			}

			view := before.View()

			return &view, nil
		},
		nil,
		func(ctx context.Context, tx adapters.DBTx) error {
			return c.deleteByID(ctx, tx, c.table(tableReservations), reservationID, opDeleteReservation)
		})
}

// GetReservation retrieves one reservation record.
func (c *Coordinator) GetReservation(ctx context.Context, reservationID uuid.UUID) (inventory.Reservation, error) {
	sqlQuery, _, toSQLErr := builder().
		From(c.table(tableReservations)).
		Select(colID, colItemIDs, colPickup, colDone).
		Where(goqu.C(colID).Eq(reservationID.String())).
		ToSQL()
	if toSQLErr != nil {
		return inventory.Reservation{}, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := c.executeQuery(ctx, c.db, sqlQuery, opGetReservation)
	if err != nil {
		return inventory.Reservation{}, err
	}
	defer c.closeRows(ctx, rows)

	if !rows.Next() {
		return inventory.Reservation{}, inventory.ErrObligationNotFound
	}

	return scanReservation(rows)
}

func (c *Coordinator) insertReservation(ctx context.Context, tx adapters.DBTx, reservation inventory.Reservation) error {
	itemIDsJSON, err := marshalItemIDs(reservation.ItemIDs)
	if err != nil {
		return err
	}

	sqlQuery, _, toSQLErr := builder().
		Insert(c.table(tableReservations)).
		Rows(goqu.Record{
			colID:      reservation.ID.String(),
			colItemIDs: goqu.L(castJsonb, itemIDsJSON),
			colPickup:  reservation.Pickup,
			colDone:    reservation.Done,
		}).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	_, err = c.executeExec(ctx, tx, sqlQuery, opCreateReservation)

	return err
}

func (c *Coordinator) updateReservation(ctx context.Context, tx adapters.DBTx, reservation inventory.Reservation) error {
	itemIDsJSON, err := marshalItemIDs(reservation.ItemIDs)
	if err != nil {
		return err
	}

	sqlQuery, _, toSQLErr := builder().
		Update(c.table(tableReservations)).
		Set(goqu.Record{
			colItemIDs: goqu.L(castJsonb, itemIDsJSON),
			colPickup:  reservation.Pickup,
			colDone:    reservation.Done,
		}).
		Where(goqu.C(colID).Eq(reservation.ID.String())).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	_, err = c.executeExec(ctx, tx, sqlQuery, opUpdateReservation)

	return err
}

func (c *Coordinator) loadReservationForUpdate(ctx context.Context, tx adapters.DBTx, reservationID uuid.UUID) (inventory.Reservation, error) {
	sqlQuery, _, toSQLErr := builder().
		From(c.table(tableReservations)).
		Select(colID, colItemIDs, colPickup, colDone).
		Where(goqu.C(colID).Eq(reservationID.String())).
		ForUpdate(exp.Wait).
		ToSQL()
	if toSQLErr != nil {
		return inventory.Reservation{}, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := c.executeQuery(ctx, tx, sqlQuery, opGetReservation)
	if err != nil {
		return inventory.Reservation{}, err
	}
	defer c.closeRows(ctx, rows)

	if !rows.Next() {
		return inventory.Reservation{}, inventory.ErrObligationNotFound
	}

	return scanReservation(rows)
}

func scanReservation(rows adapters.DBRows) (inventory.Reservation, error) {
	var idString string
	var itemIDsRaw []byte
	var pickup time.Time
	var done bool

	if err := rows.Scan(&idString, &itemIDsRaw, &pickup, &done); err != nil {
		return inventory.Reservation{}, errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	reservationID, err := uuid.Parse(idString)
	if err != nil {
		return inventory.Reservation{}, errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	itemIDs, err := unmarshalItemIDs(itemIDsRaw)
	if err != nil {
		return inventory.Reservation{}, err
	}

	return inventory.Reservation{
		ID:      reservationID,
		ItemIDs: itemIDs,
		Pickup:  pickup,
		Done:    done,
	}, nil
}

/***** bookings *****/

// CreateBooking validates the booking once against the live-booking count of
// its item and persists it. Bookings are an independent, lower-priority
// allocation view: no item status synchronization is performed for them, at
// creation or later.
func (c *Coordinator) CreateBooking(ctx context.Context, booking inventory.Booking) error {
	start := time.Now()
	ctx, span := c.startSpan(ctx, opCreateBooking)

	err := c.createBooking(ctx, booking)

	c.finishObligationOperation(ctx, span, opCreateBooking, start, err)

	return err
}

func (c *Coordinator) createBooking(ctx context.Context, booking inventory.Booking) error {
	if booking.Status == "" {
		booking.Status = inventory.BookingReserved
	}

	tx, beginErr := c.db.BeginTx(ctx)
	if beginErr != nil {
		return errors.Join(inventory.ErrTransactionFailed, beginErr)
	}

	committed := false
	defer c.rollbackUnlessCommitted(ctx, tx, &committed)

	item, err := c.getItem(ctx, tx, booking.ItemID, true)
	if err != nil {
		return err
	}

	if !booking.IsTerminal() {
		liveBookings, countErr := c.countLiveBookings(ctx, tx, booking.ItemID)
		if countErr != nil {
			return countErr
		}

		if liveBookings >= item.Copies {
			c.logOperation(ctx, logMsgAvailabilityConflict,
				logAttrKind, string(inventory.KindBooking),
				logAttrItemID, booking.ItemID.String())
			c.incrementCounter(ctx, metricAvailabilityConflict, map[string]string{logAttrKind: string(inventory.KindBooking)})

			return inventory.ErrItemUnavailable
		}
	}

	after := booking.View()
	change := inventory.Change{Kind: inventory.KindBooking, After: &after}

	if hookErr := c.hooks.RunBeforeCommit(ctx, change); hookErr != nil {
		return hookErr
	}

	if insertErr := c.insertBooking(ctx, tx, booking); insertErr != nil {
		return insertErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return errors.Join(inventory.ErrTransactionFailed, commitErr)
	}

	committed = true
	c.hooks.RunAfterCommit(ctx, change)

	return nil
}

// SetBookingStatus moves a booking through its lifecycle (reserved, active,
// overdue, returned). Plain status update, no item status synchronization.
func (c *Coordinator) SetBookingStatus(ctx context.Context, bookingID uuid.UUID, status inventory.BookingStatus) error {
	sqlQuery, _, toSQLErr := builder().
		Update(c.table(tableBookings)).
		Set(goqu.Record{colStatus: string(status)}).
		Where(goqu.C(colID).Eq(bookingID.String())).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	result, err := c.executeExec(ctx, c.db, sqlQuery, opSetBooking)
	if err != nil {
		return err
	}

	if affected, affectedErr := result.RowsAffected(); affectedErr == nil && affected == 0 {
		return inventory.ErrObligationNotFound
	}

	return nil
}

// CompleteBooking marks a booking returned, ending its claim on the item.
func (c *Coordinator) CompleteBooking(ctx context.Context, bookingID uuid.UUID) error {
	return c.SetBookingStatus(ctx, bookingID, inventory.BookingReturned)
}

// GetBooking retrieves one booking record.
func (c *Coordinator) GetBooking(ctx context.Context, bookingID uuid.UUID) (inventory.Booking, error) {
	sqlQuery, _, toSQLErr := builder().
		From(c.table(tableBookings)).
		Select(colID, colItemID, colStartDate, colEndDate, colStatus).
		Where(goqu.C(colID).Eq(bookingID.String())).
		ToSQL()
	if toSQLErr != nil {
		return inventory.Booking{}, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := c.executeQuery(ctx, c.db, sqlQuery, opGetBooking)
	if err != nil {
		return inventory.Booking{}, err
	}
	defer c.closeRows(ctx, rows)

	if !rows.Next() {
		return inventory.Booking{}, inventory.ErrObligationNotFound
	}

	return scanBooking(rows)
}

func (c *Coordinator) insertBooking(ctx context.Context, tx adapters.DBTx, booking inventory.Booking) error {
	sqlQuery, _, toSQLErr := builder().
		Insert(c.table(tableBookings)).
		Rows(goqu.Record{
			colID:        booking.ID.String(),
			colItemID:    booking.ItemID.String(),
			colStartDate: booking.StartDate,
			colEndDate:   booking.EndDate,
			colStatus:    string(booking.Status),
		}).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	_, err := c.executeExec(ctx, tx, sqlQuery, opCreateBooking)

	return err
}

func (c *Coordinator) countLiveBookings(ctx context.Context, runner dbRunner, itemID uuid.UUID) (int, error) {
	sqlQuery, _, toSQLErr := builder().
		From(c.table(tableBookings)).
		Select(goqu.COUNT(goqu.Star())).
		Where(
			goqu.C(colItemID).Eq(itemID.String()),
			goqu.C(colStatus).Neq(string(inventory.BookingReturned)),
		).
		ToSQL()
	if toSQLErr != nil {
		return 0, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	return c.queryCount(ctx, runner, sqlQuery)
}

/***** shared mutation flow *****/

// applyObligationChange is the coordinator core: it executes one obligation
// create, update or delete inside a single transaction together with every
// item status write the change requires.
//
// Inside the transaction it locks the affected item rows, recomputes live
// obligation counts, lets the pure planner decide holds and releases, runs
// the before-commit hooks, persists the obligation write and the status
// writes, and commits. Any error on the way rolls everything back: no
// partial state is ever visible outside the transaction boundary.
func (c *Coordinator) applyObligationChange(
	ctx context.Context,
	operation string,
	obligationID uuid.UUID,
	loadBefore beforeLoader,
	after *inventory.ObligationView,
	write txWrite,
) error {

	start := time.Now()
	ctx, span := c.startSpan(ctx, operation)

	err := c.applyObligationChangeInTx(ctx, operation, obligationID, loadBefore, after, write)

	c.finishObligationOperation(ctx, span, operation, start, err)

	return err
}

func (c *Coordinator) applyObligationChangeInTx(
	ctx context.Context,
	operation string,
	obligationID uuid.UUID,
	loadBefore beforeLoader,
	after *inventory.ObligationView,
	write txWrite,
) error {

	tx, beginErr := c.db.BeginTx(ctx)
	if beginErr != nil {
		return errors.Join(inventory.ErrTransactionFailed, beginErr)
	}

	committed := false
	defer c.rollbackUnlessCommitted(ctx, tx, &committed)

	var before *inventory.ObligationView

	if loadBefore != nil {
		loaded, loadErr := loadBefore(ctx, tx)
		if loadErr != nil {
			return loadErr
		}

		before = loaded
	}

	snaps, snapErr := c.snapshotAffectedItems(ctx, tx, before, after)
	if snapErr != nil {
		return snapErr
	}

	plan, planErr := inventory.PlanChange(before, after, snaps)
	if planErr != nil {
		if errors.Is(planErr, inventory.ErrItemUnavailable) {
			c.logOperation(ctx, logMsgAvailabilityConflict,
				logAttrOperation, operation,
				logAttrObligationID, obligationID.String())
			c.incrementCounter(ctx, metricAvailabilityConflict, map[string]string{logAttrOperation: operation})
		}

		return planErr
	}

	change := inventory.Change{Kind: changeKindOf(before, after), Before: before, After: after, Plan: plan}

	if hookErr := c.hooks.RunBeforeCommit(ctx, change); hookErr != nil {
		return hookErr
	}

	if writeErr := write(ctx, tx); writeErr != nil {
		return writeErr
	}

	if statusErr := c.applyStatusWrites(ctx, tx, plan); statusErr != nil {
		return statusErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return errors.Join(inventory.ErrTransactionFailed, commitErr)
	}

	committed = true
	c.hooks.RunAfterCommit(ctx, change)
	c.logReleaseSkips(ctx, operation, plan)
	c.logOperation(ctx, operation,
		logAttrObligationID, obligationID.String(),
		"holds", len(plan.Holds),
		"releases", len(plan.Releases))

	return nil
}

// snapshotAffectedItems locks every item referenced by the pre-write or
// post-write image and gathers its live obligation counts, all inside the
// transaction.
func (c *Coordinator) snapshotAffectedItems(
	ctx context.Context,
	tx adapters.DBTx,
	before, after *inventory.ObligationView,
) (map[uuid.UUID]inventory.Snapshot, error) {

	affected := affectedItemIDs(before, after)
	if len(affected) == 0 {
		return map[uuid.UUID]inventory.Snapshot{}, nil
	}

	items, err := c.lockItems(ctx, tx, affected, true)
	if err != nil {
		return nil, err
	}

	snaps := make(map[uuid.UUID]inventory.Snapshot, len(items))

	for itemID, item := range items {
		snap, snapErr := c.snapshotCounts(ctx, tx, item)
		if snapErr != nil {
			return nil, snapErr
		}

		snaps[itemID] = snap
	}

	return snaps, nil
}

func (c *Coordinator) applyStatusWrites(ctx context.Context, tx adapters.DBTx, plan inventory.Plan) error {
	for _, statusChange := range append(append([]inventory.StatusChange{}, plan.Holds...), plan.Releases...) {
		sqlQuery, _, toSQLErr := builder().
			Update(c.table(tableItems)).
			Set(goqu.Record{colStatus: string(statusChange.To)}).
			Where(goqu.C(colID).Eq(statusChange.ItemID.String())).
			ToSQL()
		if toSQLErr != nil {
			return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
		}

		if _, err := c.executeExec(ctx, tx, sqlQuery, opSetItemStatus); err != nil {
			return err
		}
	}

	return nil
}

func (c *Coordinator) rollbackUnlessCommitted(ctx context.Context, tx adapters.DBTx, committed *bool) {
	if *committed {
		return
	}

	if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
		c.logWarn(ctx, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
	}
}

func (c *Coordinator) logReleaseSkips(ctx context.Context, operation string, plan inventory.Plan) {
	for _, skip := range plan.Skips {
		c.logOperation(ctx, logMsgReleaseSkipped,
			logAttrOperation, operation,
			logAttrItemID, skip.ItemID.String(),
			logAttrStatus, string(skip.Status),
			logAttrExpected, string(skip.Expected))
		c.incrementCounter(ctx, metricReleaseSkips, map[string]string{logAttrOperation: operation})
	}
}

// finishObligationOperation records duration metrics and finishes the span
// with a status of ok, conflict or error.
func (c *Coordinator) finishObligationOperation(
	ctx context.Context,
	span inventory.SpanContext,
	operation string,
	start time.Time,
	err error,
) {

	status := statusOK

	switch {
	case err == nil:
	case errors.Is(err, inventory.ErrItemUnavailable):
		status = statusConflict
	default:
		status = statusError
	}

	c.recordDuration(ctx, operation, status, time.Since(start))

	attrs := map[string]string{spanAttrOperation: operation}
	if err != nil {
		attrs[spanAttrErrorType] = errorTypeOf(err)
	}

	c.finishSpan(span, status, attrs)
}

func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, inventory.ErrItemUnavailable):
		return "availability_conflict"
	case errors.Is(err, inventory.ErrItemNotFound), errors.Is(err, inventory.ErrObligationNotFound):
		return "not_found"
	case errors.Is(err, inventory.ErrBeforeCommitHookFailed):
		return "hook_rejected"
	case errors.Is(err, inventory.ErrTransactionFailed):
		return "transaction_failed"
	default:
		return "database_error"
	}
}

func changeKindOf(before, after *inventory.ObligationView) inventory.ObligationKind {
	if after != nil {
		return after.Kind
	}

	if before != nil {
		return before.Kind
	}

	return ""
}

func affectedItemIDs(before, after *inventory.ObligationView) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	affected := make([]uuid.UUID, 0)

	appendIDs := func(view *inventory.ObligationView) {
		if view == nil {
			return
		}

		for _, itemID := range view.ItemIDs {
			if seen[itemID] {
				continue
			}

			seen[itemID] = true
			affected = append(affected, itemID)
		}
	}

	appendIDs(before)
	appendIDs(after)

	return affected
}

func (c *Coordinator) deleteByID(ctx context.Context, tx adapters.DBTx, tableName string, id uuid.UUID, action string) error {
	sqlQuery, _, toSQLErr := builder().
		Delete(tableName).
		Where(goqu.C(colID).Eq(id.String())).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	_, err := c.executeExec(ctx, tx, sqlQuery, action)

	return err
}

/***** jsonb helpers *****/

// marshalItemIDs serializes the referenced item IDs as a jsonb array so live
// obligations can be counted per item with the @> containment operator.
func marshalItemIDs(itemIDs []uuid.UUID) (string, error) {
	ids := make([]string, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		ids = append(ids, itemID.String())
	}

	data, err := jsoniter.ConfigFastest.Marshal(ids)
	if err != nil {
		return "", errors.Join(inventory.ErrBuildingQueryFailed, err)
	}

	return string(data), nil
}

func unmarshalItemIDs(data []byte) ([]uuid.UUID, error) {
	var ids []string

	if err := jsoniter.ConfigFastest.Unmarshal(data, &ids); err != nil {
		return nil, errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	itemIDs := make([]uuid.UUID, 0, len(ids))

	for _, id := range ids {
		itemID, parseErr := uuid.Parse(id)
		if parseErr != nil {
			return nil, errors.Join(inventory.ErrScanningDBRowFailed, parseErr)
		}

		itemIDs = append(itemIDs, itemID)
	}

	return itemIDs, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return *t
}
