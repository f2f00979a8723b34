package db_client

import (
	"context"
	"fmt"
	decimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mufasadev/transaction-webhooks/internal/config"
	"github.com/mufasadev/transaction-webhooks/internal/infrastructure/database/migrations"
	"github.com/mufasadev/transaction-webhooks/pkg/postgresql"
)

type PGClient struct {
	cfg config.PostgreSQL
}

func NewPGClient(cfg config.PostgreSQL) *PGClient {
	return &PGClient{cfg: cfg}
}

// Connect connects to the database and returns a pgxpool.Pool.
func (c *PGClient) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	pgxConfig, err := pgxpool.ParseConfig(c.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}

	// Register decimal type
	pgxConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		decimal.Register(conn.TypeMap())
		return nil
	}

	db, err := postgresql.NewClient(ctx, pgxConfig, c.cfg.MaxConnAttemptsInt())
	if err != nil {
		return nil, fmt.Errorf("postgresql.NewClient: %w", err)
	}

	return db, nil
}

// Migrate applies the embedded schema.
func (c *PGClient) Migrate() error {
	if err := migrations.UpPostgres(c.cfg.MigrationURL()); err != nil {
		return fmt.Errorf("migrations.UpPostgres: %w", err)
	}
	return nil
}
