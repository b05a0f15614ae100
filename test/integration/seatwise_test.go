package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
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
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const baseURL = "http://localhost:8081"

func TestIntegration_HoldConfirmRelease(t *testing.T) {
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer crdbContainer.Terminate(ctx)

	mongoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForExec([]string{"mongosh", "--eval", "db.runCommand('ping').ok"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer mongoContainer.Terminate(ctx)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer redisContainer.Terminate(ctx)

	crdbHost, err := crdbContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	crdbPort, err := crdbContainer.MappedPort(ctx, "26257")
	if err != nil {
		t.Fatal(err)
	}
	mongoHost, err := mongoContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	mongoPort, err := mongoContainer.MappedPort(ctx, "27017")
	if err != nil {
		t.Fatal(err)
	}
	redisHost, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		CRDBDSN:      "postgresql://root@" + crdbHost + ":" + crdbPort.Port() + "/seatwise?sslmode=disable",
		MongoURI:     "mongodb://" + mongoHost + ":" + mongoPort.Port(),
		RedisAddr:    redisHost + ":" + redisPort.Port(),
		AdminToken:   "integration-admin-token",
		HoldTTL:      15 * time.Minute,
		ViewCacheTTL: time.Second,
	}

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE DATABASE IF NOT EXISTS seatwise;
		CREATE TABLE IF NOT EXISTS seatwise.event_seat_status (
			event_id UUID NOT NULL,
			seat_id TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('RESERVED', 'BOOKED')),
			holder UUID NOT NULL,
			reserved_until TIMESTAMPTZ,
			booking_reference TEXT,
			PRIMARY KEY (event_id, seat_id)
		);
		CREATE TABLE IF NOT EXISTS seatwise.outbox (
			id UUID PRIMARY KEY,
			aggregate_type TEXT,
			aggregate_id UUID,
			event_type TEXT,
			payload_json BYTES,
			created_at TIMESTAMPTZ DEFAULT now(),
			published_at TIMESTAMPTZ,
			status TEXT,
			dedupe_key TEXT
		);
	`)
	if err != nil {
		t.Fatal(err)
	}
	store := crdb.NewStore(pool)

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		t.Fatal(err)
	}
	defer mongoClient.Disconnect(ctx)
	mongoDB := mongoClient.Database("seatwise")
	logger := observability.NewLogger()
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

	srv := &http.Server{Addr: ":8081", Handler: r}
	go srv.ListenAndServe()
	defer srv.Shutdown(ctx)
	time.Sleep(100 * time.Millisecond)

	// Seed catalog: one venue with three seats, one event in it.
	venueID := uuid.New()
	eventID := uuid.New()
	holderX := uuid.New()
	holderY := uuid.New()

	err = catalog.UpsertTier(ctx, mongoadapter.TierDoc{Tier: "standard", Price: 45, DisplayColor: "#3366cc"})
	if err != nil {
		t.Fatal(err)
	}
	err = catalog.CreateVenue(ctx, mongoadapter.VenueDoc{
		ID:   venueID,
		Name: "Main Hall",
		Seats: []mongoadapter.SeatDoc{
			{SeatID: "A1", Section: "Main", Row: "A", Number: "1", Tier: "standard"},
			{SeatID: "A2", Section: "Main", Row: "A", Number: "2", Tier: "standard"},
			{SeatID: "A3", Section: "Main", Row: "A", Number: "3", Tier: "standard"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = catalog.CreateEvent(ctx, mongoadapter.EventDoc{ID: eventID, VenueID: venueID, Name: "Opening Night", Date: time.Now().Add(48 * time.Hour)})
	if err != nil {
		t.Fatal(err)
	}

	// Holder X takes A1 and A2.
	holdResp := postJSON(t, "/v1/holds", map[string]interface{}{
		"event_id":  eventID.String(),
		"venue_id":  venueID.String(),
		"seats":     []string{"A1", "A2"},
		"holder_id": holderX.String(),
	})
	assertStringSet(t, holdResp, "granted", []string{"A1", "A2"})

	// Holder Y gets A3 but is denied A2.
	holdResp = postJSON(t, "/v1/holds", map[string]interface{}{
		"event_id":  eventID.String(),
		"venue_id":  venueID.String(),
		"seats":     []string{"A2", "A3"},
		"holder_id": holderY.String(),
	})
	assertStringSet(t, holdResp, "granted", []string{"A3"})
	denied, _ := holdResp["denied"].(map[string]interface{})
	if _, ok := denied["A2"]; !ok {
		t.Errorf("expected A2 to be denied, got %v", holdResp["denied"])
	}

	// Holder X confirms both seats.
	confirmResp := postJSON(t, "/v1/bookings", map[string]interface{}{
		"event_id":          eventID.String(),
		"seats":             []string{"A1", "A2"},
		"holder_id":         holderX.String(),
		"booking_reference": "R1",
	})
	assertStringSet(t, confirmResp, "confirmed", []string{"A1", "A2"})

	// Ordinary release cannot exit Booked.
	releaseResp := postJSON(t, "/v1/releases", map[string]interface{}{
		"event_id":  eventID.String(),
		"seats":     []string{"A1"},
		"holder_id": holderX.String(),
	})
	assertStringSet(t, releaseResp, "released", nil)
	assertStringSet(t, releaseResp, "skipped", []string{"A1"})

	// Final availability view.
	req, _ := http.NewRequest("GET", baseURL+"/v1/events/"+eventID.String()+"/availability?seats=A1,A2,A3", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("availability failed: %v, status: %d", err, resp.StatusCode)
	}
	var viewResp struct {
		Seats map[string]struct {
			Status string  `json:"status"`
			Price  float64 `json:"price"`
		} `json:"seats"`
	}
	json.NewDecoder(resp.Body).Decode(&viewResp)
	if viewResp.Seats["A1"].Status != "BOOKED" || viewResp.Seats["A2"].Status != "BOOKED" {
		t.Errorf("expected A1 and A2 booked, got %v", viewResp.Seats)
	}
	if viewResp.Seats["A3"].Status != "RESERVED" {
		t.Errorf("expected A3 reserved, got %v", viewResp.Seats["A3"])
	}
	if viewResp.Seats["A1"].Price != 45 {
		t.Errorf("expected tier pricing on the view, got %v", viewResp.Seats["A1"])
	}

	// The confirmation left a booking fact in the outbox.
	records, err := store.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].EventType != "booking.confirmed" {
		t.Errorf("expected one booking.confirmed outbox record, got %v", records)
	}

	// Privileged override can exit Booked; it requires the admin token.
	body, _ := json.Marshal(map[string]interface{}{
		"event_id": eventID.String(),
		"seats":    []string{"A1"},
	})
	req, _ = http.NewRequest("POST", baseURL+"/v1/admin/releases", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected admin release without token to be forbidden, got %v %d", err, resp.StatusCode)
	}

	req, _ = http.NewRequest("POST", baseURL+"/v1/admin/releases", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", cfg.AdminToken)
	resp, err = http.DefaultClient.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("admin release failed: %v, status: %d", err, resp.StatusCode)
	}
	var adminResp map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&adminResp)
	assertStringSet(t, adminResp, "released", []string{"A1"})
}

func postJSON(t *testing.T, path string, payload map[string]interface{}) map[string]interface{} {
	t.Helper()
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", baseURL+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.New().String())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST %s returned status %d", path, resp.StatusCode)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("POST %s: bad response body: %v", path, err)
	}
	return out
}

func assertStringSet(t *testing.T, resp map[string]interface{}, field string, want []string) {
	t.Helper()
	raw, _ := resp[field].([]interface{})
	got := make(map[string]bool, len(raw))
	for _, v := range raw {
		s, _ := v.(string)
		got[s] = true
	}
	if len(got) != len(want) {
		t.Errorf("%s: expected %v, got %v", field, want, resp[field])
		return
	}
	for _, w := range want {
		if !got[w] {
			t.Errorf("%s: expected %v, got %v", field, want, resp[field])
			return
		}
	}
}
