package inventory

import (
	"sort"
	"time"
)

// LaneAssignment maps one booking onto a presentation lane. A lane
// represents one physical copy's booking timeline. Overflow marks a booking
// that could not be placed without overlap because the data already violates
// the copy bound; it is rendered visibly instead of being dropped.
type LaneAssignment struct {
	Booking  Booking
	Lane     int
	Overflow bool
}

// AssignLanes distributes the bookings of one item onto copies parallel
// lanes so that no two bookings sharing a lane overlap in time.
//
// This is the classical greedy interval partitioning: bookings are sorted by
// start date and each one goes to the first lane whose last end date lies
// strictly before its start date. The optimal lane count equals the maximum
// number of simultaneously overlapping bookings, so validly created data
// never needs more than copies lanes.
//
// When no lane qualifies the booking is force-assigned to lane 0 with the
// Overflow marker set. The function is presentation-only: it never gates
// whether a booking may be created and it never fails on bad historical data.
func AssignLanes(copies int, bookings []Booking) []LaneAssignment {
	if copies < 1 {
		copies = 1
	}

	ordered := make([]Booking, len(bookings))
	copy(ordered, bookings)

	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].StartDate.Equal(ordered[j].StartDate) {
			return ordered[i].StartDate.Before(ordered[j].StartDate)
		}

		if !ordered[i].EndDate.Equal(ordered[j].EndDate) {
			return ordered[i].EndDate.Before(ordered[j].EndDate)
		}

		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	laneEnds := make([]time.Time, copies)
	assignments := make([]LaneAssignment, 0, len(ordered))

	for _, booking := range ordered {
		lane := freeLane(laneEnds, booking.StartDate)

		if lane < 0 {
			// Data already violates the copy bound; keep the booking visible on lane 0
			// without claiming the lane, so valid bookings still lay out correctly.
			assignments = append(assignments, LaneAssignment{Booking: booking, Lane: 0, Overflow: true})
			continue
		}

		laneEnds[lane] = booking.EndDate
		assignments = append(assignments, LaneAssignment{Booking: booking, Lane: lane})
	}

	return assignments
}

// freeLane returns the leftmost lane whose last end date is strictly before
// start, or -1 when every lane is still occupied at that date.
func freeLane(laneEnds []time.Time, start time.Time) int {
	for lane, lastEnd := range laneEnds {
		if lastEnd.IsZero() || lastEnd.Before(start) {
			return lane
		}
	}

	return -1
}
