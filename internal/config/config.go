package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CRDBDSN      string
	MongoURI     string
	RedisAddr    string
	RabbitURL    string
	AdminToken   string
	HoldTTL      time.Duration
	ViewCacheTTL time.Duration
	OTLPEndpoint string
	ListenAddr   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	holdTTL, _ := time.ParseDuration(os.Getenv("HOLD_TTL"))
	if holdTTL == 0 {
		holdTTL = 15 * time.Minute
	}

	viewTTL, _ := time.ParseDuration(os.Getenv("VIEW_CACHE_TTL"))
	if viewTTL == 0 {
		viewTTL = 2 * time.Second
	}

	listen := os.Getenv("LISTEN_ADDR")
	if listen == "" {
		listen = ":8080"
	}

	return &Config{
		CRDBDSN:      os.Getenv("CRDB_DSN"),
		MongoURI:     os.Getenv("MONGO_URI"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RabbitURL:    os.Getenv("RABBIT_URL"),
		AdminToken:   os.Getenv("ADMIN_TOKEN"),
		HoldTTL:      holdTTL,
		ViewCacheTTL: viewTTL,
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ListenAddr:   listen,
	}, nil
}
