package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the node's runtime settings, read from the environment.
// Per-pool addresses, decimals and thresholds are explicit values passed
// into the engine, not compiled-in constants.
type Config struct {
	RPCURL     string
	RPCTimeout time.Duration
	APIPort    int
	// Blocks24h approximates a 24h lookback as a fixed block-count offset.
	Blocks24h uint64

	// Optional signal-history store; the node runs without it.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// Load reads the config from environment variables, loading a .env file from
// the project root when one exists.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load(filepath.Join(findProjectRoot(), ".env"))

	rpcURL := strings.TrimSpace(os.Getenv("ETH_RPC_URL"))
	if rpcURL == "" {
		return nil, fmt.Errorf("ETH_RPC_URL environment variable is required")
	}

	cfg := &Config{
		RPCURL:     rpcURL,
		RPCTimeout: 10 * time.Second,
		APIPort:    8080,
		Blocks24h:  17_280,
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     5432,
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  os.Getenv("DB_SSL_MODE"),
	}

	if v := os.Getenv("RPC_TIMEOUT_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid RPC_TIMEOUT_SECONDS %q", v)
		}
		cfg.RPCTimeout = time.Duration(seconds) * time.Second
	}
	if v := os.Getenv("API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("invalid API_PORT %q", v)
		}
		cfg.APIPort = port
	}
	if v := os.Getenv("BLOCKS_24H"); v != "" {
		blocks, err := strconv.ParseUint(v, 10, 64)
		if err != nil || blocks == 0 {
			return nil, fmt.Errorf("invalid BLOCKS_24H %q", v)
		}
		cfg.Blocks24h = blocks
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("invalid DB_PORT %q", v)
		}
		cfg.DBPort = port
	}

	return cfg, nil
}

// HasDatabase reports whether the optional history store is configured.
func (c *Config) HasDatabase() bool {
	return c.DBHost != "" && c.DBName != ""
}

// findProjectRoot looks for common project root indicators
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}
