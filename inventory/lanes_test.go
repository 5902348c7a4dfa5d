package inventory_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/shelfwise/inventory-coordinator-go/inventory"
)

func day(d int) time.Time {
	return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC)
}

func bookingOn(start, end int) inventory.Booking {
	return inventory.Booking{
		ID:        uuid.New(),
		ItemID:    uuid.New(),
		StartDate: day(start),
		EndDate:   day(end),
		Status:    inventory.BookingActive,
	}
}

func Test_AssignLanes_ReusesFreedLanes(t *testing.T) {
	// arrange: Jan 1-5 and Jan 3-7 overlap, Jan 6-10 fits back on lane 0
	first := bookingOn(1, 5)
	second := bookingOn(3, 7)
	third := bookingOn(6, 10)

	// act
	assignments := inventory.AssignLanes(2, []inventory.Booking{third, first, second})

	// assert
	require.Len(t, assignments, 3)
	assert.Equal(t, first.ID, assignments[0].Booking.ID)
	assert.Equal(t, 0, assignments[0].Lane)
	assert.Equal(t, second.ID, assignments[1].Booking.ID)
	assert.Equal(t, 1, assignments[1].Lane)
	assert.Equal(t, third.ID, assignments[2].Booking.ID)
	assert.Equal(t, 0, assignments[2].Lane)

	for _, assignment := range assignments {
		assert.False(t, assignment.Overflow)
	}
}

func Test_AssignLanes_TouchingEndpointsShareNoLane(t *testing.T) {
	// arrange: second starts on the exact day the first ends
	first := bookingOn(1, 5)
	second := bookingOn(5, 9)

	assignments := inventory.AssignLanes(2, []inventory.Booking{first, second})

	require.Len(t, assignments, 2)
	assert.NotEqual(t, assignments[0].Lane, assignments[1].Lane)
}

func Test_AssignLanes_OverflowIsForcedOntoLaneZeroWithoutClaimingIt(t *testing.T) {
	// arrange: three overlapping bookings on a two-copy item
	first := bookingOn(1, 10)
	second := bookingOn(2, 10)
	third := bookingOn(3, 10)
	fourth := bookingOn(11, 15)

	// act
	assignments := inventory.AssignLanes(2, []inventory.Booking{first, second, third, fourth})

	// assert: third overflows onto lane 0, fourth still lands on lane 0 normally
	require.Len(t, assignments, 4)
	assert.Equal(t, 0, assignments[2].Lane)
	assert.True(t, assignments[2].Overflow)
	assert.Equal(t, 0, assignments[3].Lane)
	assert.False(t, assignments[3].Overflow)
}

func Test_AssignLanes_CopyCountBelowOneIsTreatedAsOne(t *testing.T) {
	booking := bookingOn(1, 5)

	assignments := inventory.AssignLanes(0, []inventory.Booking{booking})

	require.Len(t, assignments, 1)
	assert.Equal(t, 0, assignments[0].Lane)
	assert.False(t, assignments[0].Overflow)
}

func Test_AssignLanes_EmptyInput(t *testing.T) {
	assert.Empty(t, inventory.AssignLanes(3, nil))
}

func Test_AssignLanes_IsDeterministicRegardlessOfInputOrder(t *testing.T) {
	bookings := []inventory.Booking{
		bookingOn(1, 4), bookingOn(2, 6), bookingOn(5, 9), bookingOn(7, 12), bookingOn(3, 3),
	}

	reversed := make([]inventory.Booking, len(bookings))
	for i, booking := range bookings {
		reversed[len(bookings)-1-i] = booking
	}

	assert.Equal(t, inventory.AssignLanes(3, bookings), inventory.AssignLanes(3, reversed))
}

func Test_AssignLanes_Property_NoOverlapWithinALane(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		copies := rapid.IntRange(1, 4).Draw(t, "copies")
		count := rapid.IntRange(0, 20).Draw(t, "count")

		bookings := make([]inventory.Booking, 0, count)
		for i := 0; i < count; i++ {
			start := rapid.IntRange(1, 25).Draw(t, "start")
			length := rapid.IntRange(0, 10).Draw(t, "length")
			bookings = append(bookings, bookingOn(start, start+length))
		}

		assignments := inventory.AssignLanes(copies, bookings)

		if len(assignments) != len(bookings) {
			t.Fatalf("expected %d assignments, got %d", len(bookings), len(assignments))
		}

		// Non-overflow bookings sharing a lane must not overlap, endpoints included.
		byLane := make(map[int][]inventory.Booking)
		for _, assignment := range assignments {
			if assignment.Overflow {
				continue
			}

			if assignment.Lane < 0 || assignment.Lane >= copies {
				t.Fatalf("lane %d out of range for %d copies", assignment.Lane, copies)
			}

			byLane[assignment.Lane] = append(byLane[assignment.Lane], assignment.Booking)
		}

		for lane, laneBookings := range byLane {
			for i := 0; i < len(laneBookings); i++ {
				for j := i + 1; j < len(laneBookings); j++ {
					a, b := laneBookings[i], laneBookings[j]
					if !a.EndDate.Before(b.StartDate) && !b.EndDate.Before(a.StartDate) {
						t.Fatalf("lane %d holds overlapping bookings %s and %s", lane, a.ID, b.ID)
					}
				}
			}
		}
	})
}
