package orderbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/seatwise/internal/adapters/rabbit"
	"github.com/robertarktes/seatwise/internal/observability"
)

// BookingFact is the confirmed-booking message shipped over the bus.
type BookingFact struct {
	EventID     uuid.UUID `json:"event_id"`
	Seats       []string  `json:"seats"`
	HolderID    uuid.UUID `json:"holder_id"`
	Reference   string    `json:"booking_reference"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// OrderSink is the capability contract of the external order system: it
// accepts confirmed booking facts and returns nothing the engine depends
// on.
type OrderSink interface {
	SubmitOrder(ctx context.Context, fact BookingFact) error
}

// Bridge consumes booking.confirmed messages and forwards them to the
// order sink. Failed submissions are requeued.
type Bridge struct {
	consumer *rabbit.Consumer
	sink     OrderSink
	logger   observability.Logger
}

func New(consumer *rabbit.Consumer, sink OrderSink, logger observability.Logger) *Bridge {
	return &Bridge{consumer: consumer, sink: sink, logger: logger}
}

func (b *Bridge) Run(ctx context.Context) error {
	deliveries, err := b.consumer.Consume(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			var fact BookingFact
			if err := json.Unmarshal(d.Body, &fact); err != nil {
				b.logger.Error("malformed booking fact", err)
				d.Nack(false, false)
				continue
			}
			if err := b.sink.SubmitOrder(ctx, fact); err != nil {
				b.logger.Error("order submission failed", err)
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}
}

// HTTPSink posts booking facts to an external order endpoint.
type HTTPSink struct {
	URL    string
	Client *http.Client
}

func (s *HTTPSink) SubmitOrder(ctx context.Context, fact BookingFact) error {
	body, err := json.Marshal(fact)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Newf("order endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// LogSink records facts without forwarding them. Used when no order
// endpoint is configured.
type LogSink struct {
	Logger observability.Logger
}

func (s *LogSink) SubmitOrder(_ context.Context, fact BookingFact) error {
	s.Logger.WithField("reference", fact.Reference).Info("booking fact received")
	return nil
}
