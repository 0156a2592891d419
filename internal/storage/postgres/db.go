package postgres

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

const connectTimeout = 10 * time.Second

// DB owns the connection pool shared by the repositories. Opening a DB
// verifies connectivity and brings the schema up to date before any
// repository sees the pool.
type DB struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

// New connects to the database, pings it, and applies pending schema
// migrations.
func New(ctx context.Context, dsn string, logger *logrus.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{pool: pool, logger: logger}
	if err := db.migrate(); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

// migrate applies any pending embedded migrations through goose.
func (d *DB) migrate() error {
	d.logger.Info("applying schema migrations")

	goose.SetLogger(d.logger)
	goose.SetBaseFS(schemaFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(d.pool)
	defer sqlDB.Close()

	if err := goose.Up(sqlDB, "migrations", goose.WithAllowMissing()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	d.logger.Info("schema up to date")
	return nil
}

// Pool exposes the underlying pool for the repositories.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

func (d *DB) Close() {
	d.pool.Close()
}
