package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config carries PostgreSQL connection settings
type Config struct {
	User           string
	Password       string
	Host           string
	Port           int
	Database       string
	SSLMode        string
	MaxConnections int32
	ConnectTimeout time.Duration
}

func (cfg Config) validate() error {
	if cfg.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if cfg.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.User == "" {
		return fmt.Errorf("database user is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("database port %d is out of range", cfg.Port)
	}
	return nil
}

// Connect opens a single connection for administrative statement execution.
// Connection parameters are set field by field so passwords with special
// characters never pass through URL parsing.
func Connect(ctx context.Context, cfg Config) (*pgx.Conn, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	connConfig, err := pgx.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("failed to create connection config: %w", err)
	}

	connConfig.Host = cfg.Host
	connConfig.Port = uint16(cfg.Port)
	connConfig.Database = cfg.Database
	connConfig.User = cfg.User
	connConfig.Password = cfg.Password
	connConfig.ConnectTimeout = cfg.ConnectTimeout

	if cfg.SSLMode == "disable" {
		connConfig.TLSConfig = nil
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return conn, nil
}

// PostgreSQL represents a pooled PostgreSQL connection
type PostgreSQL struct {
	pool *pgxpool.Pool
}

// NewPool creates a connection pool and verifies connectivity with a ping
func NewPool(ctx context.Context, cfg Config) (*PostgreSQL, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("failed to create connection config: %w", err)
	}

	poolConfig.ConnConfig.Host = cfg.Host
	poolConfig.ConnConfig.Port = uint16(cfg.Port)
	poolConfig.ConnConfig.Database = cfg.Database
	poolConfig.ConnConfig.User = cfg.User
	poolConfig.ConnConfig.Password = cfg.Password
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	if cfg.SSLMode == "disable" {
		poolConfig.ConnConfig.TLSConfig = nil
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgreSQL{pool: pool}, nil
}

// Pool returns the underlying pgx pool
func (p *PostgreSQL) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes the connection pool
func (p *PostgreSQL) Close() {
	p.pool.Close()
}
