package infrastructure

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/architeacher/outboxrelay/internal/config"
)

// Storage owns the Postgres connection pool the relay's repositories read
// and write through. A single pool is shared by the writer-side callers and
// the relay loop; sqlx.Tx is used for the outbox write/claim transactions.
type Storage struct {
	db *sqlx.DB
}

// NewStorage opens a lib/pq connection pool sized per cfg and verifies
// connectivity with a ping before returning.
func NewStorage(cfg config.StorageConfig) (*Storage, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, cfg.SSLMode,
		int(cfg.ConnectTimeout.Seconds()),
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &Storage{db: db}, nil
}

// GetDB returns the underlying sqlx handle used by the repository adapters.
func (s *Storage) GetDB() (*sqlx.DB, error) {
	if s.db == nil {
		return nil, fmt.Errorf("storage: database connection not initialized")
	}

	return s.db, nil
}

func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}
