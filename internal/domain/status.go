package domain

import (
	"time"

	"github.com/google/uuid"
)

// SeatState is the externally visible status of a seat for one event.
// Blocked is derived from the catalog; it is never stored.
type SeatState string

const (
	SeatAvailable SeatState = "AVAILABLE"
	SeatReserved  SeatState = "RESERVED"
	SeatBooked    SeatState = "BOOKED"
	SeatBlocked   SeatState = "BLOCKED"
)

// EventSeatStatus is the stored row for one (event, seat) pair. The row is
// created lazily by the first successful hold; absence of a row means the
// seat is available. A Reserved row whose ReservedUntil has passed counts
// as absent for every operation.
type EventSeatStatus struct {
	EventID          uuid.UUID
	SeatID           string
	State            SeatState
	Holder           uuid.UUID
	ReservedUntil    time.Time
	BookingReference string
}

// Expired reports whether a Reserved row has lapsed at the given instant.
// Booked rows never expire.
func (s EventSeatStatus) Expired(now time.Time) bool {
	return s.State == SeatReserved && !s.ReservedUntil.After(now)
}

// HeldBy reports whether the row is a live reservation owned by holder.
func (s EventSeatStatus) HeldBy(holder uuid.UUID, now time.Time) bool {
	return s.State == SeatReserved && s.Holder == holder && s.ReservedUntil.After(now)
}
