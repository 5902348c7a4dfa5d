package inventory

import (
	"time"

	"github.com/google/uuid"
)

// ObligationKind identifies one of the three obligation record types that
// claim item copies: rentals, reservations and bookings.
type ObligationKind string

const (
	KindRental      ObligationKind = "rental"
	KindReservation ObligationKind = "reservation"
	KindBooking     ObligationKind = "booking"
)

// HoldStatus returns the display status label this obligation kind writes
// onto an item while holding it, and whether the kind holds at all.
// Bookings are a lower-priority allocation view and never drive item status.
func (k ObligationKind) HoldStatus() (ItemStatus, bool) {
	switch k {
	case KindRental:
		return StatusOutOfStock, true
	case KindReservation:
		return StatusReserved, true
	default:
		return "", false
	}
}

// Rental is an immediate lending of one or more items.
// It is live (counts against availability) until the items are returned.
type Rental struct {
	ID         uuid.UUID
	ItemIDs    []uuid.UUID
	RentedOn   time.Time
	ExpectedOn time.Time
	ReturnedOn *time.Time
}

// IsTerminal reports whether the rental has been returned.
func (r Rental) IsTerminal() bool {
	return r.ReturnedOn != nil
}

// View converts the rental into the kind-agnostic shape the planner works on.
func (r Rental) View() ObligationView {
	return ObligationView{
		Kind:     KindRental,
		ItemIDs:  r.ItemIDs,
		Terminal: r.IsTerminal(),
	}
}

// Reservation is a future-pickup claim on one or more items.
// It is live until it is marked done (picked up or cancelled).
type Reservation struct {
	ID      uuid.UUID
	ItemIDs []uuid.UUID
	Pickup  time.Time
	Done    bool
}

// IsTerminal reports whether the reservation has been completed.
func (r Reservation) IsTerminal() bool {
	return r.Done
}

// View converts the reservation into the kind-agnostic shape the planner works on.
func (r Reservation) View() ObligationView {
	return ObligationView{
		Kind:     KindReservation,
		ItemIDs:  r.ItemIDs,
		Terminal: r.IsTerminal(),
	}
}

// BookingStatus is the lifecycle state of a calendar booking.
type BookingStatus string

const (
	BookingReserved BookingStatus = "reserved"
	BookingActive   BookingStatus = "active"
	BookingReturned BookingStatus = "returned"
	BookingOverdue  BookingStatus = "overdue"
)

// Booking is a calendar claim on exactly one item for a date window.
// It is live until its status becomes returned.
type Booking struct {
	ID        uuid.UUID
	ItemID    uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Status    BookingStatus
}

// IsTerminal reports whether the booking has been returned.
func (b Booking) IsTerminal() bool {
	return b.Status == BookingReturned
}

// View converts the booking into the kind-agnostic shape the planner works on.
func (b Booking) View() ObligationView {
	return ObligationView{
		Kind:     KindBooking,
		ItemIDs:  []uuid.UUID{b.ItemID},
		Terminal: b.IsTerminal(),
	}
}

// ObligationView is the kind-agnostic image of an obligation record that the
// planner operates on: which items it references and whether its terminal
// condition has been reached. An obligation is live iff it is not terminal.
type ObligationView struct {
	Kind     ObligationKind
	ItemIDs  []uuid.UUID
	Terminal bool
}
