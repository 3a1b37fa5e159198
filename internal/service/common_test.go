package service

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/DianaV2002/nft-evo-tickets/config"
	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	"github.com/DianaV2002/nft-evo-tickets/internal/assets"
	"github.com/DianaV2002/nft-evo-tickets/internal/cache"
	"github.com/DianaV2002/nft-evo-tickets/internal/clock"
	"github.com/DianaV2002/nft-evo-tickets/internal/database"
	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	"github.com/DianaV2002/nft-evo-tickets/internal/payments"
	"github.com/DianaV2002/nft-evo-tickets/internal/queue"
	"github.com/DianaV2002/nft-evo-tickets/internal/repository"
	"github.com/DianaV2002/nft-evo-tickets/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var (
	testDB  *pgxpool.Pool
	testRdb *redis.Client
	testCfg *config.Config
)

// Fixed points around a single reference event running 20:00-24:00 UTC.
var (
	eventStart  = time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)
	eventEnd    = eventStart.Add(4 * time.Hour)
	beforeStart = eventStart.Add(-6 * time.Hour)
	duringEvent = eventStart.Add(time.Hour)
	afterEnd    = eventEnd.Add(12 * time.Hour)
)

func TestMain(m *testing.M) {
	testCfg = config.LoadTestConfig()

	var err error
	testDB, err = database.InitDatabase(&testCfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize test database: %v", err)
	}

	ctx := context.Background()
	if err := testDB.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping test database: %v", err)
	}
	if err := migrations.Apply(ctx, testDB); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	testRdb, err = database.InitRedis(&testCfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize test redis: %v", err)
	}

	code := m.Run()
	testDB.Close()
	testRdb.Close()
	os.Exit(code)
}

func truncateAll(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec(context.Background(),
		"TRUNCATE events, tickets, listings, asset_units, asset_metadata, wallets, event_notifications CASCADE")
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

// serviceHarness wires the three services over the real repositories so
// tests can drive operations end to end and inspect the resulting state
// through the same adapters the services use.
type serviceHarness struct {
	events   EventService
	tickets  TicketService
	market   MarketService
	registry assets.Registry
	ledger   payments.Ledger

	eventRepo   repository.EventRepository
	ticketRepo  repository.TicketRepository
	listingRepo repository.ListingRepository
}

func newServiceHarness(clk clock.Clock) *serviceHarness {
	eventRepo := repository.NewEventRepository(testDB)
	ticketRepo := repository.NewTicketRepository(testDB)
	listingRepo := repository.NewListingRepository(testDB)
	registry := assets.NewPostgresRegistry(testDB)
	ledger := payments.NewPostgresLedger(testDB)
	gate := cache.NewRedisSupplyGate(testRdb)
	notifyQ := queue.NewMemoryNotificationQueue(16)

	return &serviceHarness{
		events:      NewEventService(testDB, eventRepo, gate, notifyQ, clk),
		tickets:     NewTicketService(testDB, ticketRepo, eventRepo, registry, ledger, gate, clk),
		market:      NewMarketService(testDB, listingRepo, ticketRepo, eventRepo, registry, ledger, clk, testCfg.Market.FeeBasisPoints),
		registry:    registry,
		ledger:      ledger,
		eventRepo:   eventRepo,
		ticketRepo:  ticketRepo,
		listingRepo: listingRepo,
	}
}

func testEventParams(eventID uint64, supply uint32) model.EventParams {
	return model.EventParams{
		EventID:       eventID,
		Name:          "Harness Event",
		CoverImageURL: "https://cdn.example.com/cover.png",
		StartTs:       eventStart,
		EndTs:         eventEnd,
		TicketSupply:  supply,
	}
}

func createHarnessEvent(t *testing.T, h *serviceHarness, authority addressing.Address, eventID uint64, supply uint32) *model.Event {
	t.Helper()
	event, err := h.events.CreateEvent(context.Background(), authority, testEventParams(eventID, supply))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	return event
}

// seedWallet writes a balance directly so tests can set up payers without
// going through Deposit's validation.
func seedWallet(t *testing.T, account addressing.Address, balance int64) {
	t.Helper()
	_, err := testDB.Exec(context.Background(), `
		INSERT INTO wallets (address, balance)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET balance = $2
	`, account, balance)
	if err != nil {
		t.Fatalf("Failed to seed wallet: %v", err)
	}
}
