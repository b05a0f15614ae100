package engine_test

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/seatwise/internal/domain"
)

// memStore implements the availability store in memory. Each mutating
// method evaluates its guard and writes under one lock, mirroring the
// atomicity of the SQL store's single-statement conditional writes.
type memStore struct {
	mu   sync.Mutex
	rows map[string]domain.EventSeatStatus

	failNext error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]domain.EventSeatStatus)}
}

func key(eventID uuid.UUID, seatID string) string {
	return eventID.String() + "/" + seatID
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) GetStatuses(_ context.Context, eventID uuid.UUID, seatIDs []string) (map[string]domain.EventSeatStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	out := make(map[string]domain.EventSeatStatus)
	for _, id := range seatIDs {
		if row, ok := m.rows[key(eventID, id)]; ok {
			out[id] = row
		}
	}
	return out, nil
}

func (m *memStore) AcquireSeat(_ context.Context, eventID uuid.UUID, seatID string, holder uuid.UUID, until, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return false, err
	}
	k := key(eventID, seatID)
	row, ok := m.rows[k]
	if ok {
		if row.State != domain.SeatReserved {
			return false, nil
		}
		if row.ReservedUntil.After(now) && row.Holder != holder {
			return false, nil
		}
	}
	m.rows[k] = domain.EventSeatStatus{
		EventID:       eventID,
		SeatID:        seatID,
		State:         domain.SeatReserved,
		Holder:        holder,
		ReservedUntil: until,
	}
	return true, nil
}

func (m *memStore) ConfirmSeat(_ context.Context, eventID uuid.UUID, seatID string, holder uuid.UUID, reference string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return false, err
	}
	k := key(eventID, seatID)
	row, ok := m.rows[k]
	if !ok || !row.HeldBy(holder, now) {
		return false, nil
	}
	row.State = domain.SeatBooked
	row.BookingReference = reference
	row.ReservedUntil = time.Time{}
	m.rows[k] = row
	return true, nil
}

func (m *memStore) ReleaseSeat(_ context.Context, eventID uuid.UUID, seatID string, holder uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return false, err
	}
	k := key(eventID, seatID)
	row, ok := m.rows[k]
	if !ok || row.State != domain.SeatReserved || row.Holder != holder {
		return false, nil
	}
	delete(m.rows, k)
	return true, nil
}

func (m *memStore) ReleaseSeatOverride(_ context.Context, eventID uuid.UUID, seatID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return false, err
	}
	k := key(eventID, seatID)
	if _, ok := m.rows[k]; !ok {
		return false, nil
	}
	delete(m.rows, k)
	return true, nil
}

func (m *memStore) row(eventID uuid.UUID, seatID string) (domain.EventSeatStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[key(eventID, seatID)]
	return row, ok
}

// memCatalog serves a fixed venue shared by every event.
type memCatalog struct {
	venueID uuid.UUID
	seats   map[string]domain.SeatRecord
	tiers   map[string]domain.PriceTier
}

func newMemCatalog(venueID uuid.UUID, seatIDs ...string) *memCatalog {
	seats := make(map[string]domain.SeatRecord, len(seatIDs))
	for _, id := range seatIDs {
		seats[id] = domain.SeatRecord{VenueID: venueID, SeatID: id, Section: "Main", Row: "A", Number: id, Tier: "standard"}
	}
	return &memCatalog{
		venueID: venueID,
		seats:   seats,
		tiers:   map[string]domain.PriceTier{"standard": {Tier: "standard", Price: 50, DisplayColor: "#3366cc"}},
	}
}

func (c *memCatalog) block(seatID string) {
	rec := c.seats[seatID]
	rec.Blocked = true
	c.seats[seatID] = rec
}

func (c *memCatalog) SeatsForVenue(_ context.Context, venueID uuid.UUID) (map[string]domain.SeatRecord, error) {
	if venueID != c.venueID {
		return nil, errors.Wrap(domain.ErrNotFound, "venue")
	}
	return c.seats, nil
}

func (c *memCatalog) SeatsForEvent(_ context.Context, _ uuid.UUID) (map[string]domain.SeatRecord, error) {
	return c.seats, nil
}

func (c *memCatalog) Lookup(_ context.Context, tier string) (domain.PriceTier, error) {
	t, ok := c.tiers[tier]
	if !ok {
		return domain.PriceTier{}, errors.Wrap(domain.ErrNotFound, tier)
	}
	return t, nil
}
