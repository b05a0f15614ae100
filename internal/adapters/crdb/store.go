package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/seatwise/internal/domain"
)

const (
	SerializationFailureCode = "40001"
)

// Store is the durable availability store. Every mutating statement is
// guarded on the row's current state, so the database decides each race:
// RowsAffected == 0 means the guard did not hold at write time.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) GetStatuses(ctx context.Context, eventID uuid.UUID, seatIDs []string) (map[string]domain.EventSeatStatus, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seat_id, status, holder, reserved_until, booking_reference
		FROM event_seat_status
		WHERE event_id = $1 AND seat_id = ANY($2)
	`, eventID, seatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.EventSeatStatus, len(seatIDs))
	for rows.Next() {
		row := domain.EventSeatStatus{EventID: eventID}
		var reservedUntil *time.Time
		var reference *string
		if err := rows.Scan(&row.SeatID, &row.State, &row.Holder, &reservedUntil, &reference); err != nil {
			return nil, err
		}
		if reservedUntil != nil {
			row.ReservedUntil = *reservedUntil
		}
		if reference != nil {
			row.BookingReference = *reference
		}
		out[row.SeatID] = row
	}
	return out, rows.Err()
}

// AcquireSeat is a single conditional upsert: the insert arm covers the
// no-row case, the update arm covers take-over of an expired reservation
// and same-holder refresh. Booked rows never match the guard. Losing a
// race for the same seat yields RowsAffected 0, never a lost update.
func (s *Store) AcquireSeat(ctx context.Context, eventID uuid.UUID, seatID string, holder uuid.UUID, until, now time.Time) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		INSERT INTO event_seat_status (event_id, seat_id, status, holder, reserved_until)
		VALUES ($1, $2, 'RESERVED', $3, $4)
		ON CONFLICT (event_id, seat_id) DO UPDATE
		SET holder = excluded.holder, reserved_until = excluded.reserved_until
		WHERE event_seat_status.status = 'RESERVED'
		  AND (event_seat_status.reserved_until <= $5 OR event_seat_status.holder = excluded.holder)
	`, eventID, seatID, holder, until, now)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (s *Store) ConfirmSeat(ctx context.Context, eventID uuid.UUID, seatID string, holder uuid.UUID, reference string, now time.Time) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE event_seat_status
		SET status = 'BOOKED', booking_reference = $4, reserved_until = NULL
		WHERE event_id = $1 AND seat_id = $2
		  AND status = 'RESERVED' AND holder = $3 AND reserved_until > $5
	`, eventID, seatID, holder, reference, now)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (s *Store) ReleaseSeat(ctx context.Context, eventID uuid.UUID, seatID string, holder uuid.UUID) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM event_seat_status
		WHERE event_id = $1 AND seat_id = $2 AND status = 'RESERVED' AND holder = $3
	`, eventID, seatID, holder)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (s *Store) ReleaseSeatOverride(ctx context.Context, eventID uuid.UUID, seatID string) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM event_seat_status
		WHERE event_id = $1 AND seat_id = $2
	`, eventID, seatID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// DeleteExpired rewrites lapsed reservations to physical absence. Purely
// storage hygiene: lazy expiry already treats them as available.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM event_seat_status
		WHERE status = 'RESERVED' AND reserved_until <= $1
		LIMIT $2
	`, now, limit)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
