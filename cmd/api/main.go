package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/seatwise/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/seatwise/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/seatwise/internal/adapters/redis"
	"github.com/robertarktes/seatwise/internal/config"
	"github.com/robertarktes/seatwise/internal/engine"
	httphandler "github.com/robertarktes/seatwise/internal/http"
	"github.com/robertarktes/seatwise/internal/idempotency"
	"github.com/robertarktes/seatwise/internal/observability"
	"github.com/robertarktes/seatwise/internal/projector"
	"github.com/robertarktes/seatwise/internal/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	store := crdb.NewStore(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("seatwise")
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	viewCache := redisadapter.NewViewCache(redisClient, cfg.ViewCacheTTL)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := ratelimit.NewRateLimiter(redisClient)

	eng := engine.New(store, catalog, cfg.HoldTTL)
	proj := projector.New(eng, catalog, catalog, viewCache, logger)

	handlers := httphandler.NewHandlers(cfg, eng, proj, store, idemp, audit, logger)
	r := httphandler.SetupRouter(handlers, logger, rl, idemp, cfg.AdminToken)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
