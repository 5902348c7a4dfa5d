package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/shelfwise/inventory-coordinator-go/inventory"
	"github.com/shelfwise/inventory-coordinator-go/inventory/postgresengine/internal/adapters"
)

const (
	tableItems        = "items"
	tableRentals      = "rentals"
	tableReservations = "reservations"
	tableBookings     = "bookings"

	colID         = "id"
	colTitle      = "title"
	colCopies     = "copies"
	colStatus     = "status"
	colItemID     = "item_id"
	colItemIDs    = "item_ids"
	colRentedOn   = "rented_on"
	colExpectedOn = "expected_on"
	colReturnedOn = "returned_on"
	colPickup     = "pickup"
	colDone       = "done"
	colStartDate  = "start_date"
	colEndDate    = "end_date"

	dialectPostgres = "postgres"
	castJsonb       = "?::jsonb"

	opAddItem       = "add_item"
	opGetItem       = "get_item"
	opSetItemStatus = "set_item_status"
	opIsAvailable   = "is_available"
	opItemLanes     = "item_lanes"
	opGetBooking    = "get_booking"
	opSetBooking    = "set_booking_status"
)

type sqlQueryString = string

// dbRunner is satisfied by both the pooled adapter and a transaction,
// so read helpers can run in either scope.
type dbRunner interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// Coordinator is the availability and consistency coordinator backed by
// Postgres. Every create, update and delete of a rental or reservation runs
// inside one transaction that locks the affected item rows, recomputes
// availability from live obligation counts, and applies the obligation write
// together with every item status write atomically.
//
// The Coordinator is the only writer of item status as a side effect of
// obligation changes. Manual staff statuses (lost, repairing, forsale,
// deleted, onbackorder) are never overwritten by a release.
type Coordinator struct {
	db               adapters.DBAdapter
	tablePrefix      string
	hooks            *inventory.HookRegistry
	logger           Logger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
	contextualLogger ContextualLogger
}

// NewCoordinatorFromPGXPool creates a new Coordinator using a pgx pool with optional configuration.
func NewCoordinatorFromPGXPool(db *pgxpool.Pool, options ...Option) (*Coordinator, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newCoordinator(adapters.NewPGXAdapter(db), options...)
}

// NewCoordinatorFromSQLDB creates a new Coordinator using a sql.DB with optional configuration.
func NewCoordinatorFromSQLDB(db *sql.DB, options ...Option) (*Coordinator, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newCoordinator(adapters.NewSQLAdapter(db), options...)
}

// NewCoordinatorFromSQLX creates a new Coordinator using a sqlx.DB with optional configuration.
func NewCoordinatorFromSQLX(db *sqlx.DB, options ...Option) (*Coordinator, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newCoordinator(adapters.NewSQLXAdapter(db), options...)
}

func newCoordinator(db adapters.DBAdapter, options ...Option) (*Coordinator, error) {
	c := &Coordinator{db: db}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Coordinator) table(name string) string {
	return c.tablePrefix + name
}

func builder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

/***** item operations *****/

// AddItem inserts a new item record. Inventory management is an external
// collaborator; this exists so embedders and tests can seed items.
func (c *Coordinator) AddItem(ctx context.Context, item inventory.Item) error {
	if item.Copies < 1 {
		return inventory.ErrInvalidCopyCount
	}

	if !item.Status.IsValid() {
		item.Status = inventory.StatusInStock
	}

	sqlQuery, _, toSQLErr := builder().
		Insert(c.table(tableItems)).
		Rows(goqu.Record{
			colID:     item.ID.String(),
			colTitle:  item.Title,
			colCopies: item.Copies,
			colStatus: string(item.Status),
		}).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	if _, err := c.executeExec(ctx, c.db, sqlQuery, opAddItem); err != nil {
		return err
	}

	return nil
}

// GetItem retrieves one item record.
func (c *Coordinator) GetItem(ctx context.Context, itemID uuid.UUID) (inventory.Item, error) {
	return c.getItem(ctx, c.db, itemID, false)
}

// SetItemStatus applies a staff-driven manual status edit. These edits are
// out-of-band: the coordinator's release logic will not overwrite them.
func (c *Coordinator) SetItemStatus(ctx context.Context, itemID uuid.UUID, status inventory.ItemStatus) error {
	if !status.IsValid() {
		return inventory.ErrItemNotFound
	}

	sqlQuery, _, toSQLErr := builder().
		Update(c.table(tableItems)).
		Set(goqu.Record{colStatus: string(status)}).
		Where(goqu.C(colID).Eq(itemID.String())).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	result, err := c.executeExec(ctx, c.db, sqlQuery, opSetItemStatus)
	if err != nil {
		return err
	}

	if affected, affectedErr := result.RowsAffected(); affectedErr == nil && affected == 0 {
		return inventory.ErrItemNotFound
	}

	return nil
}

/***** availability *****/

// IsAvailable decides whether at least one copy of the item is free right
// now, recomputed from live obligation counts.
//
// It fails closed: when the backing store is unreachable or the item is
// unknown, the error is logged and false is returned, so callers default to
// the safe state instead of handling an error path.
func (c *Coordinator) IsAvailable(ctx context.Context, itemID uuid.UUID) bool {
	snap, err := c.snapshotItem(ctx, c.db, itemID, false)
	if err != nil {
		c.logError(ctx, logMsgOperation+opIsAvailable, err, logAttrItemID, itemID.String())
		return false
	}

	return inventory.Available(snap)
}

/***** lane assignment *****/

// ItemLanes loads the item's live bookings and assigns them to copy lanes
// for display. Read-only and downstream of committed bookings; an overlap
// that exceeds the copy count surfaces as an Overflow marker, never an error.
func (c *Coordinator) ItemLanes(ctx context.Context, itemID uuid.UUID) ([]inventory.LaneAssignment, error) {
	item, err := c.getItem(ctx, c.db, itemID, false)
	if err != nil {
		return nil, err
	}

	sqlQuery, _, toSQLErr := builder().
		From(c.table(tableBookings)).
		Select(colID, colItemID, colStartDate, colEndDate, colStatus).
		Where(
			goqu.C(colItemID).Eq(itemID.String()),
			goqu.C(colStatus).Neq(string(inventory.BookingReturned)),
		).
		Order(goqu.I(colStartDate).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := c.executeQuery(ctx, c.db, sqlQuery, opItemLanes)
	if err != nil {
		return nil, err
	}
	defer c.closeRows(ctx, rows)

	bookings := make([]inventory.Booking, 0)

	for rows.Next() {
		booking, scanErr := scanBooking(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		bookings = append(bookings, booking)
	}

	return inventory.AssignLanes(item.Copies, bookings), nil
}

/***** shared read/scan helpers *****/

func (c *Coordinator) getItem(ctx context.Context, runner dbRunner, itemID uuid.UUID, forUpdate bool) (inventory.Item, error) {
	items, err := c.lockItems(ctx, runner, []uuid.UUID{itemID}, forUpdate)
	if err != nil {
		return inventory.Item{}, err
	}

	item, found := items[itemID]
	if !found {
		return inventory.Item{}, inventory.ErrItemNotFound
	}

	return item, nil
}

// lockItems reads the given item rows, with FOR UPDATE when requested, so a
// concurrent transaction cannot change availability between the check and
// the write. IDs are sorted to keep the locking order deterministic.
func (c *Coordinator) lockItems(ctx context.Context, runner dbRunner, itemIDs []uuid.UUID, forUpdate bool) (map[uuid.UUID]inventory.Item, error) {
	ids := make([]string, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		ids = append(ids, itemID.String())
	}
	sort.Strings(ids)

	selectStmt := builder().
		From(c.table(tableItems)).
		Select(colID, colTitle, colCopies, colStatus).
		Where(goqu.C(colID).In(ids))

	if forUpdate {
		selectStmt = selectStmt.ForUpdate(exp.Wait)
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := c.executeQuery(ctx, runner, sqlQuery, opGetItem)
	if err != nil {
		return nil, err
	}
	defer c.closeRows(ctx, rows)

	items := make(map[uuid.UUID]inventory.Item, len(itemIDs))

	for rows.Next() {
		var idString string
		item := inventory.Item{}
		var status string

		if scanErr := rows.Scan(&idString, &item.Title, &item.Copies, &status); scanErr != nil {
			return nil, errors.Join(inventory.ErrScanningDBRowFailed, scanErr)
		}

		itemID, parseErr := uuid.Parse(idString)
		if parseErr != nil {
			return nil, errors.Join(inventory.ErrScanningDBRowFailed, parseErr)
		}

		item.ID = itemID
		item.Status = inventory.ItemStatus(status)
		items[itemID] = item
	}

	return items, nil
}

// snapshotItem gathers one item plus its live rental and reservation counts.
func (c *Coordinator) snapshotItem(ctx context.Context, runner dbRunner, itemID uuid.UUID, forUpdate bool) (inventory.Snapshot, error) {
	item, err := c.getItem(ctx, runner, itemID, forUpdate)
	if err != nil {
		return inventory.Snapshot{}, err
	}

	return c.snapshotCounts(ctx, runner, item)
}

func (c *Coordinator) snapshotCounts(ctx context.Context, runner dbRunner, item inventory.Item) (inventory.Snapshot, error) {
	activeRentals, err := c.countLiveListObligations(ctx, runner, c.table(tableRentals), goqu.C(colReturnedOn).IsNull(), item.ID)
	if err != nil {
		return inventory.Snapshot{}, err
	}

	activeReservations, err := c.countLiveListObligations(ctx, runner, c.table(tableReservations), goqu.C(colDone).IsFalse(), item.ID)
	if err != nil {
		return inventory.Snapshot{}, err
	}

	return inventory.Snapshot{
		Item:               item,
		ActiveRentals:      activeRentals,
		ActiveReservations: activeReservations,
	}, nil
}

// countLiveListObligations counts live obligations whose jsonb item_ids list
// contains the item, using the same containment operator the filters use.
func (c *Coordinator) countLiveListObligations(
	ctx context.Context,
	runner dbRunner,
	tableName string,
	liveCondition goqu.Expression,
	itemID uuid.UUID,
) (int, error) {

	sqlQuery, _, toSQLErr := builder().
		From(tableName).
		Select(goqu.COUNT(goqu.Star())).
		Where(
			goqu.L(colItemIDs+` @> '["`+itemID.String()+`"]'`),
			liveCondition,
		).
		ToSQL()
	if toSQLErr != nil {
		return 0, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	return c.queryCount(ctx, runner, sqlQuery)
}

func (c *Coordinator) queryCount(ctx context.Context, runner dbRunner, sqlQuery string) (int, error) {
	rows, err := c.executeQuery(ctx, runner, sqlQuery, "count")
	if err != nil {
		return 0, err
	}
	defer c.closeRows(ctx, rows)

	count := 0

	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			return 0, errors.Join(inventory.ErrScanningDBRowFailed, scanErr)
		}
	}

	return count, nil
}

func scanBooking(rows adapters.DBRows) (inventory.Booking, error) {
	var idString, itemIDString, status string
	var startDate, endDate time.Time

	if err := rows.Scan(&idString, &itemIDString, &startDate, &endDate, &status); err != nil {
		return inventory.Booking{}, errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	bookingID, err := uuid.Parse(idString)
	if err != nil {
		return inventory.Booking{}, errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	itemID, err := uuid.Parse(itemIDString)
	if err != nil {
		return inventory.Booking{}, errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	return inventory.Booking{
		ID:        bookingID,
		ItemID:    itemID,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    inventory.BookingStatus(status),
	}, nil
}

/***** execution helpers *****/

// executeQuery executes a SQL query with timing, logging and error metrics.
func (c *Coordinator) executeQuery(ctx context.Context, runner dbRunner, sqlQuery sqlQueryString, action string) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := runner.Query(ctx, sqlQuery)
	duration := time.Since(start)
	c.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if queryErr != nil {
		c.logError(ctx, logMsgOperation+action, queryErr, logAttrQuery, sqlQuery)
		c.incrementCounter(ctx, metricDatabaseErrors, map[string]string{logAttrOperation: action, logAttrStatus: statusError})

		return nil, errors.Join(inventory.ErrQueryFailed, queryErr)
	}

	return rows, nil
}

// executeExec executes a SQL statement with timing, logging and error metrics.
func (c *Coordinator) executeExec(ctx context.Context, runner dbRunner, sqlQuery sqlQueryString, action string) (adapters.DBResult, error) {
	start := time.Now()
	result, execErr := runner.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	c.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if execErr != nil {
		c.logError(ctx, logMsgOperation+action, execErr, logAttrQuery, sqlQuery)
		c.incrementCounter(ctx, metricDatabaseErrors, map[string]string{logAttrOperation: action, logAttrStatus: statusError})

		return nil, errors.Join(inventory.ErrExecFailed, execErr)
	}

	return result, nil
}

// closeRows safely closes database rows and logs any errors.
func (c *Coordinator) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		c.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}
