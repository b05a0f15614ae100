package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/seatwise/internal/domain"
	"github.com/robertarktes/seatwise/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger records seat transitions for after-the-fact review. Writes
// are best effort: a failed audit insert never fails the operation that
// produced it.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	EventID   uuid.UUID `bson:"event_id"`
	Holder    uuid.UUID `bson:"holder"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) record(ctx context.Context, action string, eventID, holder uuid.UUID, data map[string]interface{}) {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		EventID:   eventID,
		Holder:    holder,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	if _, err := a.coll.InsertOne(ctx, log); err != nil {
		a.logger.Error("failed to insert audit log", err)
	}
}

func (a *AuditLogger) HoldAcquired(ctx context.Context, eventID, holder uuid.UUID, result domain.HoldResult, until time.Time) {
	a.record(ctx, "hold.acquired", eventID, holder, map[string]interface{}{
		"granted":        result.Granted,
		"denied":         result.Denied,
		"reserved_until": until.Format(time.RFC3339),
	})
}

func (a *AuditLogger) BookingConfirmed(ctx context.Context, eventID, holder uuid.UUID, result domain.ConfirmResult, reference string) {
	a.record(ctx, "booking.confirmed", eventID, holder, map[string]interface{}{
		"confirmed": result.Confirmed,
		"failed":    result.Failed,
		"reference": reference,
	})
}

func (a *AuditLogger) SeatsReleased(ctx context.Context, eventID, holder uuid.UUID, result domain.ReleaseResult, override bool) {
	a.record(ctx, "seats.released", eventID, holder, map[string]interface{}{
		"released": result.Released,
		"skipped":  result.Skipped,
		"override": override,
	})
}
