package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/seatwise/internal/adapters/rabbit"
	"github.com/robertarktes/seatwise/internal/config"
	"github.com/robertarktes/seatwise/internal/observability"
	"github.com/robertarktes/seatwise/internal/orderbridge"
)

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

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, "orders.q", "booking.confirmed")
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	var sink orderbridge.OrderSink
	if url := os.Getenv("ORDER_ENDPOINT"); url != "" {
		sink = &orderbridge.HTTPSink{URL: url}
	} else {
		sink = &orderbridge.LogSink{Logger: logger}
	}

	bridge := orderbridge.New(consumer, sink, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("order bridge stopped", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown order bridge")
}
