package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"rstamp/config"
	"rstamp/internal/messaging/consumer"
	client "rstamp/ledger/client"
	"rstamp/ledger/client/memory"
	"rstamp/ledger/gateway"
	verifier "rstamp/processing"
	"rstamp/registry/cache"
	"rstamp/storage"
)

const verifierConfigPath = "./config/verifier.defaults.yml"

func main() {
	logger := log.New(os.Stdout, "[Verifier] ", log.LstdFlags|log.Lshortfile)
	logger.Println("Starting Verifier Engine...")

	// 1. Load Verifier Config
	verifierCfg, err := config.LoadVerifierConfig(verifierConfigPath)
	if err != nil {
		logger.Fatalf("FATAL: Failed to load verifier configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize Dependencies
	var store storage.Store
	if verifierCfg.Database.DSN != "" {
		logger.Println("Initializing database connection...")
		verifierCfg.Database.LogConfiguration()
		pgStore, err := storage.NewPostgresStore(ctx, &verifierCfg.Database, logger)
		if err != nil {
			logger.Fatalf("FATAL: Failed to initialize database store: %v", err)
		}
		store = pgStore
	} else {
		logger.Println("database.dsn not configured, using in-memory snapshot store")
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	registryCache := cache.New(ctx, store, verifierCfg.SnapshotKey, logger)
	logger.Printf("Registry cache loaded: %d records", registryCache.Len())

	logger.Println("Initializing ledger client using configuration files...")
	var ledgerClient client.LedgerClient
	if verifierCfg.LedgerClientConfigPath != "" {
		ledgerClient, err = client.NewLedgerClientFromFile(verifierCfg.LedgerClientConfigPath, logger)
		if err != nil {
			logger.Fatalf("FATAL: Failed to initialize ledger client: %v", err)
		}
	} else {
		logger.Println("ledger_client_config_path not configured, using in-memory ledger")
		ledgerClient = memory.NewLedger(logger)
	}
	defer ledgerClient.Close()

	ledgerGateway := gateway.New(ledgerClient, logger)

	// 3. Initialize Multiple Consumers
	var mqConsumers []consumer.Consumer
	if len(verifierCfg.KafkaConsumer.Brokers) > 0 && verifierCfg.KafkaConsumer.Brokers[0] != "mock://local" {
		logger.Printf("Initializing %d Kafka event consumers...", verifierCfg.KafkaConsumer.Count)
		for i := 0; i < verifierCfg.KafkaConsumer.Count; i++ {
			kafkaConsumer, err := consumer.NewKafkaConsumer(verifierCfg.KafkaConsumer, logger)
			if err != nil {
				logger.Fatalf("FATAL: Failed to initialize Kafka consumer %d: %v", i, err)
			}
			mqConsumers = append(mqConsumers, kafkaConsumer)
		}
	} else {
		logger.Println("Initializing Mock event consumer...")
		mqConsumers = append(mqConsumers, consumer.NewMockConsumer(logger))
	}

	// Ensure all consumers are closed on exit
	defer func() {
		for _, c := range mqConsumers {
			c.Close()
		}
	}()

	// 4. Create and Start Multiple Verifiers
	var verifiers []*verifier.Verifier
	var wg sync.WaitGroup

	for i, cons := range mqConsumers {
		verifierInstance := verifier.New(verifierCfg.Worker, logger, registryCache, cons, ledgerGateway)
		verifiers = append(verifiers, verifierInstance)

		wg.Add(1)
		go func(verifierID int, v *verifier.Verifier) {
			defer wg.Done()
			logger.Printf("Starting verifier %d with its dedicated consumer...", verifierID)
			v.Run(ctx)
			logger.Printf("Verifier %d stopped.", verifierID)
		}(i+1, verifierInstance)
	}

	logger.Printf("Verifier Engine started with %d verifiers. Press Ctrl+C to stop.", len(verifiers))

	// 5. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Println("Received shutdown signal, initiating graceful shutdown...")
	cancel()

	// Wait for all verifiers to finish
	logger.Println("Waiting for all verifiers to finish...")
	wg.Wait()

	logger.Println("Verifier Engine shut down gracefully.")
}
