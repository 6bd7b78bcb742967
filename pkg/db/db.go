// Package db opens the storefront's PostgreSQL connections and applies its migrations.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	_ "storefront/pkg/db/migrations"
)

const (
	// QueryTimeout bounds every read issued through this package.
	QueryTimeout = 5 * time.Second

	applicationName = "storefront"
	maxPoolConns    = 10
	minPoolConns    = 1
)

// Open connects a pgx pool to dsn and verifies it answers.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func poolConfig(dsn string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	// goose and poolers such as pgbouncer both need the simple protocol.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	if cfg.MaxConns > maxPoolConns {
		cfg.MaxConns = maxPoolConns
	}
	cfg.MinConns = minPoolConns
	cfg.MaxConnIdleTime = 5 * time.Minute
	return cfg, nil
}

func provider(pool *pgxpool.Pool, run func(*goose.Provider) error) error {
	if pool == nil {
		return errors.New("nil pool provided")
	}

	sqlDB, err := goose.OpenDBWithDriver("pgx", pool.Config().ConnConfig.ConnString())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	p, err := goose.NewProvider(goose.DialectPostgres, sqlDB, nil)
	if err != nil {
		return err
	}
	return run(p)
}

// Migrate applies every pending migration and returns what ran.
func Migrate(ctx context.Context, pool *pgxpool.Pool) ([]*goose.MigrationResult, error) {
	var results []*goose.MigrationResult
	err := provider(pool, func(p *goose.Provider) error {
		var err error
		results, err = p.Up(ctx)
		return err
	})
	return results, err
}

// MigrationStatus lists every known migration with its applied state.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool) ([]*goose.MigrationStatus, error) {
	var status []*goose.MigrationStatus
	err := provider(pool, func(p *goose.Provider) error {
		var err error
		status, err = p.Status(ctx)
		return err
	})
	return status, err
}

// Get scans the single row returned by query into dest.
func Get(ctx context.Context, pool *pgxpool.Pool, dest any, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()
	return pgxscan.Get(ctx, pool, dest, query, args...)
}

// Ping reports whether the pool can reach the database.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()
	return pool.Ping(ctx)
}

// IsNoRows reports whether err came from a Get that matched nothing.
func IsNoRows(err error) bool {
	return pgxscan.NotFound(err)
}
