// Package postgres records batch results in a Postgres table.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/profile-image-resolver/internal/results"
)

const defaultTable = "profile_image_results"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for result rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store writes result rows into Postgres.
type Store struct {
	pool  execCloser
	table string
}

// New creates a pool-backed Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("results.postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewWithPool constructs a Store from an existing pool.
func NewWithPool(pool execCloser, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		return defaultTable, nil
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Record inserts one result row.
func (s *Store) Record(ctx context.Context, r results.Result) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("results store is not configured")
	}
	if r.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	account,
	image_url,
	strategy,
	resolved,
	resolved_at
) VALUES (
	$1,$2,$3,$4,$5,$6
)`, s.table)

	if _, err := s.pool.Exec(ctx, query,
		r.RunID,
		r.Account,
		nullable(r.ImageURL),
		nullable(r.Strategy),
		r.Resolved,
		r.ResolvedAt,
	); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
