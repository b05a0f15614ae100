package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/seatwise/internal/domain"
)

// AvailabilityStore is the durable keyed storage for per-(event, seat)
// status rows. It is the sole arbiter of truth: every mutating method is
// a conditional write evaluated against the stored row at write time and
// reports via its bool result whether the condition held. A false result
// is a lost race or failed precondition, never a storage error.
type AvailabilityStore interface {
	// GetStatuses returns the stored rows for the given seats. Seats
	// with no row are absent from the map.
	GetStatuses(ctx context.Context, eventID uuid.UUID, seatIDs []string) (map[string]domain.EventSeatStatus, error)

	// AcquireSeat atomically reserves the seat for holder until the
	// given deadline. It succeeds only if the row is absent, expired at
	// now, or already a live reservation by the same holder (refresh).
	AcquireSeat(ctx context.Context, eventID uuid.UUID, seatID string, holder uuid.UUID, until, now time.Time) (bool, error)

	// ConfirmSeat transitions Reserved to Booked. It succeeds only if
	// the row is a live reservation by holder at now.
	ConfirmSeat(ctx context.Context, eventID uuid.UUID, seatID string, holder uuid.UUID, reference string, now time.Time) (bool, error)

	// ReleaseSeat clears a reservation held by holder. Booked rows and
	// reservations by other holders are untouched.
	ReleaseSeat(ctx context.Context, eventID uuid.UUID, seatID string, holder uuid.UUID) (bool, error)

	// ReleaseSeatOverride clears the row regardless of state, including
	// Booked. Callers must gate this behind privileged authorization.
	ReleaseSeatOverride(ctx context.Context, eventID uuid.UUID, seatID string) (bool, error)
}

// Catalog is the read-only seat/venue reference data. The engine only
// consults the Blocked flag; everything else is for the projector.
type Catalog interface {
	SeatsForVenue(ctx context.Context, venueID uuid.UUID) (map[string]domain.SeatRecord, error)
	SeatsForEvent(ctx context.Context, eventID uuid.UUID) (map[string]domain.SeatRecord, error)
}

// Pricing resolves a tier to its display price. Not used by transition
// logic; consumed by the projector only.
type Pricing interface {
	Lookup(ctx context.Context, tier string) (domain.PriceTier, error)
}
