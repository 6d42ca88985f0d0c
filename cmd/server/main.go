package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/damon-houk/purchase-conversion-service/internal/application/service"
	"github.com/damon-houk/purchase-conversion-service/internal/config"
	domainservice "github.com/damon-houk/purchase-conversion-service/internal/domain/service"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/api"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/db"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/events"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/handler"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/metrics"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// eventPublisher is what main needs from either publisher implementation
type eventPublisher interface {
	domainservice.EventPublisher
	Close() error
}

func main() {
	// A missing .env file is fine; real deployments use the environment
	_ = godotenv.Load()

	cfg := config.MustLoad()

	level, _ := logger.ParseLevel(cfg.Log.Level)
	log := logger.NewJSONLogger(os.Stdout, level).WithField("service", "purchase-conversion-service")

	log.Info("Starting purchase conversion service", map[string]interface{}{
		"addr":    cfg.HTTP.Addr,
		"db_path": cfg.DB.Path,
	})

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Storage
	badgerDB, err := db.Open(cfg.DB.Path, log)
	if err != nil {
		log.Fatal("Failed to open database", map[string]interface{}{"error": err.Error()})
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			log.Error("Error closing database", map[string]interface{}{"error": err.Error()})
		}
	}()

	gc, err := db.NewValueLogGC(badgerDB, cfg.DB.GCSchedule, cfg.DB.GCDiscardRatio, log)
	if err != nil {
		log.Fatal("Failed to schedule value log GC", map[string]interface{}{"error": err.Error()})
	}
	gc.Start()

	// Events
	var publisher eventPublisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		log.Info("Publishing transaction events", map[string]interface{}{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		})
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("Error closing event publisher", map[string]interface{}{"error": err.Error()})
		}
	}()

	// Exchange rates
	treasury := api.NewTreasuryAPIClient(api.Options{
		BaseURL:    cfg.Treasury.BaseURL,
		Timeout:    cfg.Treasury.Timeout,
		MaxRetries: cfg.Treasury.MaxRetries,
		RateLimit:  cfg.Treasury.RateLimit,
		RateBurst:  cfg.Treasury.RateBurst,
		Logger:     log,
	})
	rates := db.NewTreasuryExchangeRateRepository(treasury, log, m)

	// Services
	txRepo := db.NewBadgerTransactionRepository(badgerDB)
	converter := service.NewConversionService(rates, log, m)
	txService := service.NewTransactionService(txRepo, converter, publisher, log, m)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.NewRouter(txService, m, log),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": cfg.HTTP.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Error("Server failed", map[string]interface{}{"error": err.Error()})
		}
	case <-ctx.Done():
		log.Info("Shutting down", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	// Wait for a running GC pass before the database closes
	<-gc.Stop().Done()

	log.Info("Server stopped", nil)
}
