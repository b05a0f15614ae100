package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/seatwise/internal/domain"
	"github.com/robertarktes/seatwise/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CatalogRepository serves the static seat/venue reference data. The
// engine reads the blocked flag from it; the projector reads the rest.
type CatalogRepository struct {
	venues *mongo.Collection
	events *mongo.Collection
	tiers  *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		venues: db.Collection("venues"),
		events: db.Collection("events"),
		tiers:  db.Collection("pricing_tiers"),
		logger: logger,
	}
}

type VenueDoc struct {
	ID        uuid.UUID `bson:"_id"`
	Name      string    `bson:"name"`
	Seats     []SeatDoc `bson:"seats"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type SeatDoc struct {
	SeatID     string  `bson:"seat_id"`
	Section    string  `bson:"section"`
	Row        string  `bson:"row"`
	Number     string  `bson:"number"`
	X          float64 `bson:"x"`
	Y          float64 `bson:"y"`
	Tier       string  `bson:"tier"`
	Accessible bool    `bson:"accessible"`
	Blocked    bool    `bson:"blocked"`
}

type EventDoc struct {
	ID      uuid.UUID `bson:"_id"`
	VenueID uuid.UUID `bson:"venue_id"`
	Name    string    `bson:"name"`
	Date    time.Time `bson:"date"`
}

type TierDoc struct {
	Tier         string  `bson:"_id"`
	Price        float64 `bson:"price"`
	DisplayColor string  `bson:"display_color"`
}

func (c *CatalogRepository) SeatsForVenue(ctx context.Context, venueID uuid.UUID) (map[string]domain.SeatRecord, error) {
	var venue VenueDoc
	err := c.venues.FindOne(ctx, bson.M{"_id": venueID}).Decode(&venue)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(domain.ErrNotFound, "venue %s", venueID)
	}
	if err != nil {
		c.logger.Error("failed to get venue", err)
		return nil, err
	}
	return seatRecords(venueID, venue.Seats), nil
}

func (c *CatalogRepository) SeatsForEvent(ctx context.Context, eventID uuid.UUID) (map[string]domain.SeatRecord, error) {
	var event EventDoc
	err := c.events.FindOne(ctx, bson.M{"_id": eventID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(domain.ErrNotFound, "event %s", eventID)
	}
	if err != nil {
		c.logger.Error("failed to get event", err)
		return nil, err
	}
	return c.SeatsForVenue(ctx, event.VenueID)
}

func (c *CatalogRepository) Lookup(ctx context.Context, tier string) (domain.PriceTier, error) {
	var doc TierDoc
	err := c.tiers.FindOne(ctx, bson.M{"_id": tier}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domain.PriceTier{}, errors.Wrapf(domain.ErrNotFound, "tier %s", tier)
	}
	if err != nil {
		c.logger.Error("failed to get pricing tier", err)
		return domain.PriceTier{}, err
	}
	return domain.PriceTier{Tier: doc.Tier, Price: doc.Price, DisplayColor: doc.DisplayColor}, nil
}

func (c *CatalogRepository) CreateVenue(ctx context.Context, venue VenueDoc) error {
	venue.CreatedAt = time.Now()
	venue.UpdatedAt = time.Now()
	_, err := c.venues.InsertOne(ctx, venue)
	if err != nil {
		c.logger.Error("failed to create venue", err)
		return err
	}
	return nil
}

func (c *CatalogRepository) CreateEvent(ctx context.Context, event EventDoc) error {
	_, err := c.events.InsertOne(ctx, event)
	if err != nil {
		c.logger.Error("failed to create event", err)
		return err
	}
	return nil
}

func (c *CatalogRepository) UpsertTier(ctx context.Context, doc TierDoc) error {
	_, err := c.tiers.UpdateByID(
		ctx,
		doc.Tier,
		bson.M{"$set": bson.M{"price": doc.Price, "display_color": doc.DisplayColor}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		c.logger.Error("failed to upsert pricing tier", err)
		return err
	}
	return nil
}

func seatRecords(venueID uuid.UUID, seats []SeatDoc) map[string]domain.SeatRecord {
	out := make(map[string]domain.SeatRecord, len(seats))
	for _, s := range seats {
		out[s.SeatID] = domain.SeatRecord{
			VenueID:    venueID,
			SeatID:     s.SeatID,
			Section:    s.Section,
			Row:        s.Row,
			Number:     s.Number,
			X:          s.X,
			Y:          s.Y,
			Tier:       s.Tier,
			Accessible: s.Accessible,
			Blocked:    s.Blocked,
		}
	}
	return out
}
