package projector_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/seatwise/internal/domain"
	"github.com/robertarktes/seatwise/internal/engine"
	"github.com/robertarktes/seatwise/internal/observability"
	"github.com/robertarktes/seatwise/internal/projector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStore struct {
	rows map[string]domain.EventSeatStatus
}

func (f *fixedStore) GetStatuses(_ context.Context, _ uuid.UUID, seatIDs []string) (map[string]domain.EventSeatStatus, error) {
	out := make(map[string]domain.EventSeatStatus)
	for _, id := range seatIDs {
		if row, ok := f.rows[id]; ok {
			out[id] = row
		}
	}
	return out, nil
}

func (f *fixedStore) AcquireSeat(context.Context, uuid.UUID, string, uuid.UUID, time.Time, time.Time) (bool, error) {
	return false, nil
}

func (f *fixedStore) ConfirmSeat(context.Context, uuid.UUID, string, uuid.UUID, string, time.Time) (bool, error) {
	return false, nil
}

func (f *fixedStore) ReleaseSeat(context.Context, uuid.UUID, string, uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fixedStore) ReleaseSeatOverride(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}

type fixedCatalog struct {
	seats map[string]domain.SeatRecord
	tiers map[string]domain.PriceTier
}

func (c *fixedCatalog) SeatsForVenue(context.Context, uuid.UUID) (map[string]domain.SeatRecord, error) {
	return c.seats, nil
}

func (c *fixedCatalog) SeatsForEvent(context.Context, uuid.UUID) (map[string]domain.SeatRecord, error) {
	return c.seats, nil
}

func (c *fixedCatalog) Lookup(_ context.Context, tier string) (domain.PriceTier, error) {
	t, ok := c.tiers[tier]
	if !ok {
		return domain.PriceTier{}, errors.Wrap(domain.ErrNotFound, tier)
	}
	return t, nil
}

func TestView_MergesStatusCatalogAndPricing(t *testing.T) {
	eventID := uuid.New()
	holder := uuid.New()

	catalog := &fixedCatalog{
		seats: map[string]domain.SeatRecord{
			"A1": {SeatID: "A1", Section: "Main", Row: "A", Number: "1", Tier: "vip", Accessible: true},
			"A2": {SeatID: "A2", Section: "Main", Row: "A", Number: "2", Tier: "standard"},
			"A3": {SeatID: "A3", Section: "Main", Row: "A", Number: "3", Tier: "standard", Blocked: true},
		},
		tiers: map[string]domain.PriceTier{
			"vip":      {Tier: "vip", Price: 120, DisplayColor: "#ffd700"},
			"standard": {Tier: "standard", Price: 45, DisplayColor: "#3366cc"},
		},
	}
	store := &fixedStore{rows: map[string]domain.EventSeatStatus{
		"A1": {EventID: eventID, SeatID: "A1", State: domain.SeatReserved, Holder: holder, ReservedUntil: time.Now().Add(10 * time.Minute)},
	}}

	eng := engine.New(store, catalog, 15*time.Minute)
	proj := projector.New(eng, catalog, catalog, nil, observability.NewLogger())

	view, err := proj.View(context.Background(), eventID, []string{"A1", "A2", "A3"})
	require.NoError(t, err)

	assert.Equal(t, domain.SeatReserved, view["A1"].Status)
	assert.Equal(t, 120.0, view["A1"].Price)
	assert.Equal(t, "#ffd700", view["A1"].DisplayColor)
	assert.True(t, view["A1"].Accessible)

	assert.Equal(t, domain.SeatAvailable, view["A2"].Status)
	assert.Equal(t, 45.0, view["A2"].Price)

	assert.Equal(t, domain.SeatBlocked, view["A3"].Status)
}

func TestView_UnknownTierIsNotFatal(t *testing.T) {
	eventID := uuid.New()
	catalog := &fixedCatalog{
		seats: map[string]domain.SeatRecord{
			"A1": {SeatID: "A1", Section: "Main", Row: "A", Number: "1", Tier: "mystery"},
		},
		tiers: map[string]domain.PriceTier{},
	}
	store := &fixedStore{rows: map[string]domain.EventSeatStatus{}}

	eng := engine.New(store, catalog, 15*time.Minute)
	proj := projector.New(eng, catalog, catalog, nil, observability.NewLogger())

	view, err := proj.View(context.Background(), eventID, []string{"A1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SeatAvailable, view["A1"].Status)
	assert.Zero(t, view["A1"].Price)
}
