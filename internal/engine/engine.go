package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/seatwise/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Engine owns all status-transition logic for event seats. It carries no
// locks and no in-memory state: concurrent conflicting attempts are
// resolved by the store's conditional writes, so exactly one caller wins
// each seat without coordination.
type Engine struct {
	store      AvailabilityStore
	catalog    Catalog
	defaultTTL time.Duration
	now        func() time.Time
}

func New(store AvailabilityStore, catalog Catalog, defaultTTL time.Duration) *Engine {
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}
	return &Engine{
		store:      store,
		catalog:    catalog,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// WithClock overrides the wall clock. Tests only.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Resolve reports the current status of each seat for the event. It is a
// pure read: expired reservations resolve to Available without being
// rewritten, so concurrent resolves are side-effect-free.
func (e *Engine) Resolve(ctx context.Context, eventID uuid.UUID, seatIDs []string) (map[string]domain.SeatState, error) {
	if err := validateSeatRequest(eventID, seatIDs); err != nil {
		return nil, err
	}

	records, err := e.catalog.SeatsForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for _, id := range seatIDs {
		if _, ok := records[id]; !ok {
			return nil, errors.Wrapf(domain.ErrNotFound, "seat %s", id)
		}
	}

	rows, err := e.store.GetStatuses(ctx, eventID, seatIDs)
	if err != nil {
		return nil, errors.Wrap(domain.ErrStorageFailure, err.Error())
	}

	now := e.now()
	out := make(map[string]domain.SeatState, len(seatIDs))
	for _, id := range seatIDs {
		out[id] = deriveState(records[id], rows, id, now)
	}
	return out, nil
}

func deriveState(rec domain.SeatRecord, rows map[string]domain.EventSeatStatus, seatID string, now time.Time) domain.SeatState {
	if rec.Blocked {
		return domain.SeatBlocked
	}
	row, ok := rows[seatID]
	if !ok {
		return domain.SeatAvailable
	}
	switch {
	case row.State == domain.SeatBooked:
		return domain.SeatBooked
	case row.State == domain.SeatReserved && row.ReservedUntil.After(now):
		return domain.SeatReserved
	default:
		return domain.SeatAvailable
	}
}

// AcquireHold attempts a time-boxed reservation of each seat for holder.
// Seats are evaluated independently; a contested seat is denied, not
// retried, and never fails the rest of the batch. The grant itself is a
// single conditional write per seat, so two callers racing for a seat
// resolve to exactly one winner.
func (e *Engine) AcquireHold(ctx context.Context, eventID, venueID uuid.UUID, seatIDs []string, holder uuid.UUID, ttl time.Duration) (domain.HoldResult, error) {
	result := domain.HoldResult{Denied: make(map[string]domain.DenialReason)}

	if err := validateSeatRequest(eventID, seatIDs); err != nil {
		return result, err
	}
	if venueID == uuid.Nil || holder == uuid.Nil {
		return result, errors.Wrap(domain.ErrInvalidArgument, "venue and holder are required")
	}
	if ttl <= 0 {
		ttl = e.defaultTTL
	}

	records, err := e.catalog.SeatsForVenue(ctx, venueID)
	if err != nil {
		return result, err
	}

	now := e.now()
	until := now.Add(ttl)

	rows, err := e.store.GetStatuses(ctx, eventID, seatIDs)
	if err != nil {
		return result, errors.Wrap(domain.ErrStorageFailure, err.Error())
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, seatID := range seatIDs {
		seatID := seatID
		g.Go(func() error {
			reason, granted, err := e.acquireOne(gctx, eventID, seatID, holder, until, now, records, rows)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if granted {
				result.Granted = append(result.Granted, seatID)
			} else {
				result.Denied[seatID] = reason
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.HoldResult{Denied: make(map[string]domain.DenialReason)}, err
	}
	return result, nil
}

// acquireOne decides one seat. The reads of records and rows are advisory
// (cheap denials with a reason); the grant is the store's conditional
// write, which re-checks the acceptance condition atomically.
func (e *Engine) acquireOne(ctx context.Context, eventID uuid.UUID, seatID string, holder uuid.UUID, until, now time.Time, records map[string]domain.SeatRecord, rows map[string]domain.EventSeatStatus) (domain.DenialReason, bool, error) {
	rec, ok := records[seatID]
	if !ok {
		return domain.DeniedUnknown, false, nil
	}
	if rec.Blocked {
		return domain.DeniedBlocked, false, nil
	}
	if row, ok := rows[seatID]; ok {
		if row.State == domain.SeatBooked {
			return domain.DeniedBooked, false, nil
		}
		if row.State == domain.SeatReserved && row.ReservedUntil.After(now) && row.Holder != holder {
			return domain.DeniedHeld, false, nil
		}
	}

	granted, err := e.store.AcquireSeat(ctx, eventID, seatID, holder, until, now)
	if err != nil {
		return "", false, errors.Wrap(domain.ErrStorageFailure, err.Error())
	}
	if !granted {
		return domain.DeniedRaceLost, false, nil
	}
	return "", true, nil
}

// Confirm converts live holds owned by holder into permanent bookings.
// Each seat is checked and written in one conditional update; seats
// failing the precondition are itemized, never a whole-batch error.
// Compensation for a partially confirmed batch is the caller's concern.
func (e *Engine) Confirm(ctx context.Context, eventID uuid.UUID, seatIDs []string, holder uuid.UUID, reference string) (domain.ConfirmResult, error) {
	result := domain.ConfirmResult{Failed: make(map[string]domain.DenialReason)}

	if err := validateSeatRequest(eventID, seatIDs); err != nil {
		return result, err
	}
	if holder == uuid.Nil || reference == "" {
		return result, errors.Wrap(domain.ErrInvalidArgument, "holder and booking reference are required")
	}

	now := e.now()
	rows, err := e.store.GetStatuses(ctx, eventID, seatIDs)
	if err != nil {
		return result, errors.Wrap(domain.ErrStorageFailure, err.Error())
	}

	for _, seatID := range seatIDs {
		ok, err := e.store.ConfirmSeat(ctx, eventID, seatID, holder, reference, now)
		if err != nil {
			return result, errors.Wrap(domain.ErrStorageFailure, err.Error())
		}
		if ok {
			result.Confirmed = append(result.Confirmed, seatID)
			continue
		}
		result.Failed[seatID] = confirmFailureReason(rows, seatID, holder, now)
	}
	return result, nil
}

func confirmFailureReason(rows map[string]domain.EventSeatStatus, seatID string, holder uuid.UUID, now time.Time) domain.DenialReason {
	row, ok := rows[seatID]
	if !ok {
		return domain.DeniedExpired
	}
	switch {
	case row.State == domain.SeatBooked:
		return domain.DeniedBooked
	case row.State == domain.SeatReserved && row.ReservedUntil.After(now) && row.Holder != holder:
		return domain.DeniedHeld
	case row.Expired(now):
		return domain.DeniedExpired
	default:
		return domain.DeniedRaceLost
	}
}

// Release clears reservations owned by holder immediately, regardless of
// their remaining TTL. Booked seats and reservations by other holders
// are skipped; exiting Booked requires ReleaseOverride.
func (e *Engine) Release(ctx context.Context, eventID uuid.UUID, seatIDs []string, holder uuid.UUID) (domain.ReleaseResult, error) {
	var result domain.ReleaseResult

	if err := validateSeatRequest(eventID, seatIDs); err != nil {
		return result, err
	}
	if holder == uuid.Nil {
		return result, errors.Wrap(domain.ErrInvalidArgument, "holder is required")
	}

	for _, seatID := range seatIDs {
		ok, err := e.store.ReleaseSeat(ctx, eventID, seatID, holder)
		if err != nil {
			return result, errors.Wrap(domain.ErrStorageFailure, err.Error())
		}
		if ok {
			result.Released = append(result.Released, seatID)
		} else {
			result.Skipped = append(result.Skipped, seatID)
		}
	}
	return result, nil
}

// ReleaseOverride clears seats regardless of state, including Booked.
// Authorization for this path is enforced by the calling layer.
func (e *Engine) ReleaseOverride(ctx context.Context, eventID uuid.UUID, seatIDs []string) (domain.ReleaseResult, error) {
	var result domain.ReleaseResult

	if err := validateSeatRequest(eventID, seatIDs); err != nil {
		return result, err
	}

	for _, seatID := range seatIDs {
		ok, err := e.store.ReleaseSeatOverride(ctx, eventID, seatID)
		if err != nil {
			return result, errors.Wrap(domain.ErrStorageFailure, err.Error())
		}
		if ok {
			result.Released = append(result.Released, seatID)
		} else {
			result.Skipped = append(result.Skipped, seatID)
		}
	}
	return result, nil
}

func validateSeatRequest(eventID uuid.UUID, seatIDs []string) error {
	if eventID == uuid.Nil {
		return errors.Wrap(domain.ErrInvalidArgument, "event is required")
	}
	if len(seatIDs) == 0 {
		return errors.Wrap(domain.ErrInvalidArgument, "at least one seat is required")
	}
	for _, id := range seatIDs {
		if id == "" {
			return errors.Wrap(domain.ErrInvalidArgument, "empty seat id")
		}
	}
	return nil
}
