package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DianaV2002/nft-evo-tickets/config"
	"github.com/DianaV2002/nft-evo-tickets/internal/assets"
	"github.com/DianaV2002/nft-evo-tickets/internal/cache"
	"github.com/DianaV2002/nft-evo-tickets/internal/clock"
	"github.com/DianaV2002/nft-evo-tickets/internal/database"
	"github.com/DianaV2002/nft-evo-tickets/internal/handler"
	"github.com/DianaV2002/nft-evo-tickets/internal/payments"
	"github.com/DianaV2002/nft-evo-tickets/internal/queue"
	"github.com/DianaV2002/nft-evo-tickets/internal/repository"
	"github.com/DianaV2002/nft-evo-tickets/internal/service"
	"github.com/DianaV2002/nft-evo-tickets/internal/worker"
	"github.com/DianaV2002/nft-evo-tickets/migrations"
	"github.com/DianaV2002/nft-evo-tickets/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.LoadConfig()
	logr := logger.WithComponent("main")

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	eventRepo := repository.NewEventRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	listingRepo := repository.NewListingRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	registry := assets.NewPostgresRegistry(pool)
	ledger := payments.NewPostgresLedger(pool)
	supplyGate := cache.NewRedisSupplyGate(rdb)
	clk := clock.NewSystem()

	consumerID := consumerName()
	notifyQ, err := queue.NewRedisStreamNotificationQueue(rdb, consumerID, nil)
	if err != nil {
		log.Fatalf("Failed to initialize notification queue: %v", err)
	}

	notificationWorker := worker.NewNotificationWorker(notificationRepo, notifyQ)
	if err := notificationWorker.Start(ctx); err != nil {
		log.Fatalf("Failed to start notification worker: %v", err)
	}

	eventService := service.NewEventService(pool, eventRepo, supplyGate, notifyQ, clk)
	ticketService := service.NewTicketService(pool, ticketRepo, eventRepo, registry, ledger, supplyGate, clk)
	marketService := service.NewMarketService(pool, listingRepo, ticketRepo, eventRepo, registry, ledger, clk, cfg.Market.FeeBasisPoints)

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.Use(handler.AuthMiddleware(cfg.Auth.JWTSecret))

	handler.NewEventHandler(eventService).RegisterRoutes(router)
	handler.NewTicketHandler(ticketService).RegisterRoutes(router)
	handler.NewMarketHandler(marketService).RegisterRoutes(router)
	handler.NewWalletHandler(ledger).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logr.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("consumer", consumerID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("shutdown incomplete", zap.Error(err))
	}
}

// consumerName identifies this process in the notification consumer
// group so pending entries can be claimed back after a crash.
func consumerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "server"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
