package main

import (
	"context"
	"dinedash-backend/internal/cache"
	"dinedash-backend/internal/client"
	"dinedash-backend/internal/config"
	"dinedash-backend/internal/dto"
	"dinedash-backend/internal/event"
	"dinedash-backend/internal/logger"
	"dinedash-backend/internal/repository"
	"dinedash-backend/internal/server"
	"dinedash-backend/internal/service"
	"dinedash-backend/internal/worker"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := client.InitDBClient(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
	}

	rdb, err := client.InitRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("init redis")
	}
	trackingCache := cache.NewTrackingCache(rdb, cfg.Redis.TTL, log)

	publisher := event.NewLogPublisher(log)
	if writer := client.NewKafkaWriter(cfg.Kafka); writer != nil {
		publisher = event.NewKafkaPublisher(writer, log)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing events to kafka")
	}

	catalogRepo := repository.NewCatalogRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	catalogService := service.NewCatalogService(catalogRepo)
	if cfg.Database.SeedCatalog {
		if err := catalogService.SeedDefaults(ctx); err != nil {
			log.Fatal().Err(err).Msg("seed catalog")
		}
	}

	gateways := client.NewGatewayRouter(cfg, log)

	orderService := service.NewOrderService(db, orderRepo, catalogRepo, trackingCache, publisher, log)
	paymentService := service.NewPaymentService(db, cfg.BaseURL, gateways, orderRepo, paymentRepo, trackingCache, publisher, log)
	checkoutService := service.NewCheckoutService(
		db,
		dto.NewValidator(),
		orderService,
		paymentService,
		gateways,
		publisher,
		log,
	)

	if cfg.Sweeper.Enabled {
		go worker.NewPaymentSweeper(paymentService, cfg.Sweeper, log).Run(ctx)
	}

	// Init HTTP server
	srv := server.NewServer(cfg, log, db, server.Services{
		Orders:   orderService,
		Payments: paymentService,
		Checkout: checkoutService,
		Catalog:  catalogService,
	})

	go func() {
		if err := srv.Start(cfg.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("close event publisher")
	}
	if rdb != nil {
		rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
