package domain

// DenialReason explains a per-seat denial. Reasons are informational;
// callers that only care about the outcome can ignore them.
type DenialReason string

const (
	DeniedBlocked  DenialReason = "blocked"
	DeniedHeld     DenialReason = "held"
	DeniedBooked   DenialReason = "booked"
	DeniedExpired  DenialReason = "expired"
	DeniedUnknown  DenialReason = "unknown_seat"
	DeniedRaceLost DenialReason = "race_lost"
)

// HoldResult is the per-seat outcome of a hold request. A request for N
// seats never fails as a whole on contention; contested seats land in
// Denied and the rest in Granted.
type HoldResult struct {
	Granted []string
	Denied  map[string]DenialReason
}

// ConfirmResult itemizes which held seats became bookings and which
// failed their precondition.
type ConfirmResult struct {
	Confirmed []string
	Failed    map[string]DenialReason
}

// ReleaseResult lists the seats whose reservations were actually
// cleared. Seats not held by the caller, or already booked, are skipped
// silently under ordinary release.
type ReleaseResult struct {
	Released []string
	Skipped  []string
}
