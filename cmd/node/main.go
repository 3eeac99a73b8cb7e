package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"sibyl/internal/api"
	"sibyl/internal/database"
	"sibyl/internal/ethrpc"
	"sibyl/internal/oracle"
	"sibyl/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	caller := ethrpc.NewHTTPClient(cfg.RPCURL, ethrpc.WithTimeout(cfg.RPCTimeout))

	params := oracle.DefaultParams()
	params.Blocks24h = cfg.Blocks24h
	engine := oracle.NewEngine(caller, oracle.DefaultRegistry(), params)

	// The history store is optional; the node serves signals without it.
	var db *database.DB
	if cfg.HasDatabase() {
		db, err = database.New(database.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations(context.Background()); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	} else {
		log.Printf("Signal history store not configured; running without persistence")
	}

	apiService := api.NewService(engine, db, cfg.APIPort)

	go func() {
		log.Printf("Starting API server on :%d", cfg.APIPort)
		if err := apiService.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Printf("Shutting down services...")
	if err := apiService.Stop(context.Background()); err != nil {
		log.Printf("Error during API server shutdown: %v", err)
	}
}
