package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/covionstudio/billing/internal/config"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/logger"
)

// Querier is the subset of sqlx operations the repositories need. Both
// *sqlx.DB and *sqlx.Tx satisfy it, so repository methods run the same
// whether or not a transaction is open on the context.
type Querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

// DB wraps the sqlx connection pool
type DB struct {
	*sqlx.DB
	logger *logger.Logger
}

// NewDB creates a new postgres connection pool from the configuration
func NewDB(cfg *config.Configuration, log *logger.Logger) (*DB, error) {
	db, err := sqlx.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to open postgres connection").
			Mark(ierr.ErrDatabase)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to ping postgres").
			Mark(ierr.ErrDatabase)
	}

	log.Infow("connected to postgres",
		"host", cfg.Postgres.Host,
		"port", cfg.Postgres.Port,
		"dbname", cfg.Postgres.DBName,
	)

	return &DB{DB: db, logger: log}, nil
}

// Querier returns the transaction bound to ctx if one is open,
// otherwise the pool itself.
func (db *DB) Querier(ctx context.Context) Querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db.DB
}

// Close closes the connection pool
func (db *DB) Close() error {
	return db.DB.Close()
}
