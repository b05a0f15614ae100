package domain

import "github.com/google/uuid"

// SeatRecord is the immutable catalog entry for one physical seat in a
// venue. The engine only reads Blocked; the rest is display metadata
// carried through to the availability view.
type SeatRecord struct {
	VenueID    uuid.UUID
	SeatID     string
	Section    string
	Row        string
	Number     string
	X          float64
	Y          float64
	Tier       string
	Accessible bool
	Blocked    bool
}

// PriceTier is the pricing lookup result for a tier. Display only; it
// never participates in transition logic.
type PriceTier struct {
	Tier         string
	Price        float64
	DisplayColor string
}
