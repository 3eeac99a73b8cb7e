// Package database is the optional signal-history store. Persistence is
// host-side observability only; the analytics pipeline itself is stateless
// per invocation.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"sibyl/pkg/types"
)

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DB wraps the database connection pool
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection
func New(cfg Config) (*DB, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode,
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Set connection pool settings
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.ConnectConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// SignalRow is one persisted signal. Scaled integers are stored as text so
// no numeric driver conversion can round them.
type SignalRow struct {
	ID          int64
	Pair        string
	Block       int64
	FairPrice   string
	Confidence  int64
	MaxSafeSize string
	Flags       int64
	CreatedAt   time.Time
}

// SaveSignal persists one full-pipeline signal.
func (db *DB) SaveSignal(ctx context.Context, s *types.Signal) error {
	if s.PriceOnly {
		query := `
			INSERT INTO signals (pair, block, fair_price, confidence, max_safe_size, flags)
			VALUES ($1, $2, $3, 0, '0', 0)
		`
		if _, err := db.pool.Exec(ctx, query, s.Pair, int64(s.Block), s.SpotPrice.String()); err != nil {
			return fmt.Errorf("error inserting signal: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO signals (pair, block, fair_price, confidence, max_safe_size, flags)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := db.pool.Exec(ctx, query,
		s.Pair,
		int64(s.Block),
		s.FairPrice.String(),
		int64(s.Scores.Confidence),
		s.MaxSafeSize.String(),
		int64(s.Scores.Flags),
	)
	if err != nil {
		return fmt.Errorf("error inserting signal: %w", err)
	}
	return nil
}

// RecentSignals returns the newest persisted signals, newest first.
func (db *DB) RecentSignals(ctx context.Context, limit int) ([]SignalRow, error) {
	query := `
		SELECT id, pair, block, fair_price, confidence, max_safe_size, flags, created_at
		FROM signals
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying signals: %w", err)
	}
	defer rows.Close()

	var signals []SignalRow
	for rows.Next() {
		var row SignalRow
		if err := rows.Scan(
			&row.ID, &row.Pair, &row.Block, &row.FairPrice,
			&row.Confidence, &row.MaxSafeSize, &row.Flags, &row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning signal row: %w", err)
		}
		signals = append(signals, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal rows: %w", err)
	}
	return signals, nil
}
