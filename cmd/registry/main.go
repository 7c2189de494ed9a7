package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"rstamp/config"
	"rstamp/internal/hashing"
	"rstamp/internal/messaging/producer"
	client "rstamp/ledger/client"
	"rstamp/ledger/client/memory"
	"rstamp/ledger/gateway"
	"rstamp/pipeline"
	"rstamp/registry/cache"
	core "rstamp/registry/service/core"
	httphandler "rstamp/registry/service/http"
	"rstamp/storage"
)

// Registry service configuration file path
const registryConfigPath = "./config/registry.defaults.yml"

func main() {
	logger := log.New(os.Stdout, "[Registry] ", log.LstdFlags|log.Lshortfile)
	logger.Println("Starting Registry Service...")

	// 1. Load registry configuration
	cfg, err := config.LoadRegistryConfig(registryConfigPath)
	if err != nil {
		logger.Fatalf("Failed to load registry configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize snapshot store
	var store storage.Store
	if cfg.Database.DSN != "" {
		logger.Println("Initializing database connection...")
		cfg.Database.LogConfiguration()
		pgStore, err := storage.NewPostgresStore(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize database store: %v", err)
		}
		store = pgStore
	} else {
		logger.Println("database.dsn not configured, using in-memory snapshot store")
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	// 3. Load the registry cache from the snapshot
	registryCache := cache.New(ctx, store, cfg.SnapshotKey, logger)
	logger.Printf("Registry cache loaded: %d records", registryCache.Len())

	// 4. Initialize ledger client
	var ledgerClient client.LedgerClient
	if cfg.LedgerClientConfigPath != "" {
		ledgerClient, err = client.NewLedgerClientFromFile(cfg.LedgerClientConfigPath, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize ledger client: %v", err)
		}
	} else {
		logger.Println("ledger_client_config_path not configured, using in-memory ledger")
		ledgerClient = memory.NewLedger(logger)
	}
	defer ledgerClient.Close()

	ledgerGateway := gateway.New(ledgerClient, logger)

	// 5. Initialize event producer
	var eventProducer producer.Producer
	if cfg.KafkaProducer.Enabled() {
		logger.Println("Initializing Kafka producer...")
		eventProducer, err = producer.NewKafkaProducer(cfg.KafkaProducer, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize Kafka producer: %v", err)
		}
	} else {
		logger.Println("kafka_producer not configured, committed-record announcements will be logged only")
		eventProducer = producer.NewMockProducer(logger)
	}

	// 6. Create core Service and HTTP handler
	engine := hashing.NewEngine(cfg.MaxUploadBytes)
	wallet := &pipeline.StaticWallet{Address: cfg.Wallet.Address}

	coreService := core.NewService(engine, ledgerGateway, registryCache, wallet, eventProducer, logger)
	defer coreService.Close() // Ensure service is closed on exit

	registryHandler := httphandler.NewRegistryHandler(coreService, logger)

	var wg sync.WaitGroup

	// 7. HTTP server
	mux := http.NewServeMux()
	registryHandler.Register(mux)

	// Use HTTP server configuration with defaults
	// Reads carry file uploads, so the default is generous
	readTimeout := cfg.HttpServer.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 120 * time.Second
	}

	writeTimeout := cfg.HttpServer.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	idleTimeout := cfg.HttpServer.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 60 * time.Second
	}

	maxHeaderBytes := cfg.HttpServer.MaxHeaderBytes
	if maxHeaderBytes == 0 {
		maxHeaderBytes = 1 << 20 // 1 MB
	}

	httpServer := &http.Server{
		Addr:           cfg.HttpListenAddr,
		Handler:        mux,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: maxHeaderBytes,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Printf("HTTP server listening on %s", cfg.HttpListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server startup failed: %v", err)
		}
		logger.Println("HTTP server stopped listening.")
	}()

	// 8. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Printf("Received shutdown signal: %s, starting graceful shutdown of Registry Service...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	logger.Println("Shutting down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server shutdown failed: %v", err)
	} else {
		logger.Println("HTTP server shutdown.")
	}

	wg.Wait()
	logger.Println("All servers stopped. Registry Service shutdown.")
}
