package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/seatwise/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/seatwise/internal/adapters/mongo"
	"github.com/robertarktes/seatwise/internal/config"
	"github.com/robertarktes/seatwise/internal/domain"
	"github.com/robertarktes/seatwise/internal/engine"
	"github.com/robertarktes/seatwise/internal/idempotency"
	"github.com/robertarktes/seatwise/internal/observability"
	"github.com/robertarktes/seatwise/internal/orderbridge"
	"github.com/robertarktes/seatwise/internal/projector"
)

type Handlers struct {
	cfg    *config.Config
	engine *engine.Engine
	proj   *projector.Projector
	store  *crdb.Store
	idemp  *idempotency.Idempotency
	audit  *mongoadapter.AuditLogger
	logger observability.Logger
}

func NewHandlers(cfg *config.Config, eng *engine.Engine, proj *projector.Projector, store *crdb.Store, idemp *idempotency.Idempotency, audit *mongoadapter.AuditLogger, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:    cfg,
		engine: eng,
		proj:   proj,
		store:  store,
		idemp:  idemp,
		audit:  audit,
		logger: logger,
	}
}

func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	eventID, err := uuid.Parse(chi.URLParam(r, "event"))
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}
	seatsParam := r.URL.Query().Get("seats")
	if seatsParam == "" {
		http.Error(w, "seats query parameter is required", http.StatusBadRequest)
		return
	}
	seats := strings.Split(seatsParam, ",")

	view, err := h.proj.View(r.Context(), eventID, seats)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.ResolveDuration.Observe(time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"seats": view})
}

func (h *Handlers) CreateHold(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		EventID    uuid.UUID `json:"event_id"`
		VenueID    uuid.UUID `json:"venue_id"`
		Seats      []string  `json:"seats"`
		HolderID   uuid.UUID `json:"holder_id"`
		TTLMinutes int       `json:"ttl_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ttl := time.Duration(req.TTLMinutes) * time.Minute
	result, err := h.engine.AcquireHold(r.Context(), req.EventID, req.VenueID, req.Seats, req.HolderID, ttl)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.countDecisions("acquire", len(result.Granted), len(result.Denied))
	h.proj.Invalidate(r.Context(), req.EventID)
	if h.audit != nil {
		effectiveTTL := ttl
		if effectiveTTL <= 0 {
			effectiveTTL = h.cfg.HoldTTL
		}
		h.audit.HoldAcquired(r.Context(), req.EventID, req.HolderID, result, time.Now().Add(effectiveTTL))
	}

	data, _ := json.Marshal(map[string]interface{}{
		"granted": emptyIfNil(result.Granted),
		"denied":  result.Denied,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusOK, Result: data})
}

func (h *Handlers) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		EventID          uuid.UUID `json:"event_id"`
		Seats            []string  `json:"seats"`
		HolderID         uuid.UUID `json:"holder_id"`
		BookingReference string    `json:"booking_reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.engine.Confirm(r.Context(), req.EventID, req.Seats, req.HolderID, req.BookingReference)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.countDecisions("confirm", len(result.Confirmed), len(result.Failed))
	h.proj.Invalidate(r.Context(), req.EventID)
	if h.audit != nil {
		h.audit.BookingConfirmed(r.Context(), req.EventID, req.HolderID, result, req.BookingReference)
	}

	if len(result.Confirmed) > 0 {
		if err := h.enqueueBookingFact(r, req.EventID, result.Confirmed, req.HolderID, req.BookingReference); err != nil {
			h.logger.Error("failed to enqueue booking fact", err)
		}
	}

	data, _ := json.Marshal(map[string]interface{}{
		"confirmed": emptyIfNil(result.Confirmed),
		"failed":    result.Failed,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusOK, Result: data})
}

// enqueueBookingFact records the confirmation in the outbox so the order
// bridge only ever sees durably committed confirmations.
func (h *Handlers) enqueueBookingFact(r *http.Request, eventID uuid.UUID, seats []string, holder uuid.UUID, reference string) error {
	fact := orderbridge.BookingFact{
		EventID:     eventID,
		Seats:       seats,
		HolderID:    holder,
		Reference:   reference,
		ConfirmedAt: time.Now(),
	}
	payload, err := json.Marshal(fact)
	if err != nil {
		return err
	}
	return h.store.WithTx(r.Context(), func(tx pgx.Tx) error {
		return h.store.InsertOutbox(r.Context(), tx, crdb.OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "booking",
			AggregateID:   eventID,
			EventType:     "booking.confirmed",
			Payload:       payload,
			DedupeKey:     reference,
		})
	})
}

func (h *Handlers) ReleaseSeats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID  uuid.UUID `json:"event_id"`
		Seats    []string  `json:"seats"`
		HolderID uuid.UUID `json:"holder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.engine.Release(r.Context(), req.EventID, req.Seats, req.HolderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.countDecisions("release", len(result.Released), len(result.Skipped))
	h.proj.Invalidate(r.Context(), req.EventID)
	if h.audit != nil {
		h.audit.SeatsReleased(r.Context(), req.EventID, req.HolderID, result, false)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"released": emptyIfNil(result.Released),
		"skipped":  emptyIfNil(result.Skipped),
	})
}

// AdminRelease is the privileged override path: it can exit Booked. The
// admin token check happens in middleware; this handler trusts it.
func (h *Handlers) AdminRelease(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID uuid.UUID `json:"event_id"`
		Seats   []string  `json:"seats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.engine.ReleaseOverride(r.Context(), req.EventID, req.Seats)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.countDecisions("override_release", len(result.Released), len(result.Skipped))
	h.proj.Invalidate(r.Context(), req.EventID)
	if h.audit != nil {
		h.audit.SeatsReleased(r.Context(), req.EventID, uuid.Nil, result, true)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"released": emptyIfNil(result.Released),
		"skipped":  emptyIfNil(result.Skipped),
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func (h *Handlers) countDecisions(operation string, positive, negative int) {
	observability.SeatDecisions.WithLabelValues(operation, "granted").Add(float64(positive))
	observability.SeatDecisions.WithLabelValues(operation, "denied").Add(float64(negative))
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
