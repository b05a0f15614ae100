package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/seatwise/internal/adapters/crdb"
	"github.com/robertarktes/seatwise/internal/config"
	"github.com/robertarktes/seatwise/internal/observability"
)

// The compactor physically removes expired reservation rows. It is a
// storage-hygiene job: lazy expiry already treats those rows as
// available, so the service is fully correct with this process stopped.

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	store := crdb.NewStore(pool)

	compactor := NewCompactor(store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go compactor.Run(ctx, time.Minute, 1000)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown compactor")
}

type Compactor struct {
	store  *crdb.Store
	logger observability.Logger
}

func NewCompactor(store *crdb.Store, logger observability.Logger) *Compactor {
	return &Compactor{store: store, logger: logger}
}

func (c *Compactor) Run(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.sweep(ctx, now, batchSize)
		}
	}
}

func (c *Compactor) sweep(ctx context.Context, now time.Time, batchSize int) {
	for {
		deleted, err := c.store.DeleteExpired(ctx, now, batchSize)
		if err != nil {
			c.logger.Error("compaction sweep failed", err)
			return
		}
		if deleted > 0 {
			observability.CompactedRows.Add(float64(deleted))
			c.logger.WithField("rows", deleted).Info("compacted expired reservations")
		}
		if deleted < int64(batchSize) {
			return
		}
	}
}
