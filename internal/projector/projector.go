package projector

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	redisadapter "github.com/robertarktes/seatwise/internal/adapters/redis"
	"github.com/robertarktes/seatwise/internal/domain"
	"github.com/robertarktes/seatwise/internal/engine"
	"github.com/robertarktes/seatwise/internal/observability"
)

// SeatView is one display-ready seat: engine status merged with catalog
// location data and pricing.
type SeatView struct {
	Status       domain.SeatState `json:"status"`
	Section      string           `json:"section"`
	Row          string           `json:"row"`
	Number       string           `json:"number"`
	Tier         string           `json:"tier"`
	Price        float64          `json:"price"`
	DisplayColor string           `json:"display_color"`
	Accessible   bool             `json:"accessible"`
}

// Projector merges catalog, engine, and pricing output into the view the
// seat map renders. It sits outside the engine: it only reads.
type Projector struct {
	engine  *engine.Engine
	catalog engine.Catalog
	pricing engine.Pricing
	cache   *redisadapter.ViewCache
	logger  observability.Logger
}

func New(eng *engine.Engine, catalog engine.Catalog, pricing engine.Pricing, cache *redisadapter.ViewCache, logger observability.Logger) *Projector {
	return &Projector{engine: eng, catalog: catalog, pricing: pricing, cache: cache, logger: logger}
}

func (p *Projector) View(ctx context.Context, eventID uuid.UUID, seatIDs []string) (map[string]SeatView, error) {
	if p.cache != nil {
		cached, err := p.cache.Get(ctx, eventID, seatIDs)
		if err != nil {
			p.logger.Warn("view cache read failed", err)
		} else if cached != nil {
			var view map[string]SeatView
			if err := json.Unmarshal(cached, &view); err == nil {
				return view, nil
			}
		}
	}

	states, err := p.engine.Resolve(ctx, eventID, seatIDs)
	if err != nil {
		return nil, err
	}
	records, err := p.catalog.SeatsForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tiers := make(map[string]domain.PriceTier)
	view := make(map[string]SeatView, len(seatIDs))
	for _, id := range seatIDs {
		rec := records[id]
		tier, ok := tiers[rec.Tier]
		if !ok {
			tier, err = p.pricing.Lookup(ctx, rec.Tier)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			tiers[rec.Tier] = tier
		}
		view[id] = SeatView{
			Status:       states[id],
			Section:      rec.Section,
			Row:          rec.Row,
			Number:       rec.Number,
			Tier:         rec.Tier,
			Price:        tier.Price,
			DisplayColor: tier.DisplayColor,
			Accessible:   rec.Accessible,
		}
	}

	if p.cache != nil {
		if data, err := json.Marshal(view); err == nil {
			if err := p.cache.Set(ctx, eventID, seatIDs, data); err != nil {
				p.logger.Warn("view cache write failed", err)
			}
		}
	}
	return view, nil
}

// Invalidate drops cached views for the event after a mutation.
func (p *Projector) Invalidate(ctx context.Context, eventID uuid.UUID) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Invalidate(ctx, eventID); err != nil {
		p.logger.Warn("view cache invalidation failed", err)
	}
}
