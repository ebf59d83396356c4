// Command server runs the portfolio service: the HTTP API, the
// websocket hub, and the Kafka trade-event consumer, backed by
// PostgreSQL and the upstream market data provider.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantfolio/portfolio-service/internal/api"
	"github.com/quantfolio/portfolio-service/internal/config"
	"github.com/quantfolio/portfolio-service/internal/costbasis"
	"github.com/quantfolio/portfolio-service/internal/database"
	"github.com/quantfolio/portfolio-service/internal/kafka"
	"github.com/quantfolio/portfolio-service/internal/marketdata"
	"github.com/quantfolio/portfolio-service/internal/stream"
)

func main() {
	cfg := config.Load()

	// Database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations applied")

	// Market data provider, with an optional Redis read-through cache.
	var provider marketdata.Provider = marketdata.NewClient(
		cfg.MarketData.BaseURL, cfg.MarketData.APIKey, cfg.MarketData.Timeout)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		provider = marketdata.NewCachedProvider(provider, rdb, cfg.Redis.CacheTTL)
		log.Printf("Market data cache enabled: %s", cfg.Redis.Addr)
	}

	// Outbound event producer
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Websocket hub for live portfolio updates
	hub := stream.NewHub()
	go hub.Run(ctx)

	method, err := costbasis.ParseMethod(cfg.Accounting.DefaultMethod)
	if err != nil {
		log.Printf("Invalid COST_BASIS_METHOD %q, using FIFO", cfg.Accounting.DefaultMethod)
		method = costbasis.FIFO
	}

	handler := api.NewHandler(db, provider, producer, hub, api.Options{
		DefaultMethod:    method,
		RiskFreeRate:     cfg.Accounting.RiskFreeRate,
		FetchConcurrency: cfg.MarketData.FetchConcurrency,
		FetchDelay:       cfg.MarketData.FetchDelay,
	})
	router := api.SetupRoutes(handler, hub.ServeWS)

	// Inbound trade-event consumer. The handler is the ingest notifier
	// so stored trades reach websocket clients without a poll cycle.
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TradesTopic, cfg.Kafka.GroupID, db, handler)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Printf("Kafka consumer stopped: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Portfolio service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM: stop the consumer and hub,
	// then drain in-flight HTTP requests.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	log.Println("Portfolio service stopped")
}
