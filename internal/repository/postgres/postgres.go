// Package postgres — репозитории поверх pgx-пула.
// Схема (справочно):
//
//	users(id uuid pk, name text, login text unique, email text,
//	      password_hash text, version int, created_at bigint, updated_at bigint)
//	gallery(id bigserial pk, user_id uuid, thumbnail text, props jsonb,
//	        likes text[], created_at bigint)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fractal-gallery/internal/infra"
)

// NewPool поднимает пул соединений и сразу проверяет доступность базы.
func NewPool(ctx context.Context, cfg infra.DatabaseConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}
