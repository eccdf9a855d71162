package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fractal-gallery/internal/domain"
	"github.com/xela07ax/fractal-gallery/internal/repository"
)

const userColumns = `id, name, login, email, password_hash, version, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	var hash *string
	err := row.Scan(&u.ID, &u.Name, &u.Login, &u.Email, &hash, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if hash != nil {
		u.PasswordHash = *hash
	}
	return u, nil
}

// isUniqueViolation — 23505, занятый login.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (id, name, login, email, password_hash, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1,
		        EXTRACT(EPOCH FROM NOW())::bigint, EXTRACT(EPOCH FROM NOW())::bigint)
		RETURNING ` + userColumns

	var hash *string
	if user.PasswordHash != "" {
		hash = &user.PasswordHash
	}

	created, err := scanUser(r.pool.QueryRow(ctx, query,
		uuid.NewString(), user.Name, user.Login, user.Email, hash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("postgres: create user: %w", err)
	}
	return created, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepo) ByLogin(ctx context.Context, login string) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE login = $1`, login))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: user by login: %w", err)
	}
	return user, nil
}

// Update пишет строку целиком; version двигает сама база —
// это и есть маркер оптимистичного обновления для коллабораторов.
func (r *UserRepo) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		UPDATE users
		SET name = $1, login = $2, email = $3, password_hash = $4,
		    version = version + 1,
		    updated_at = EXTRACT(EPOCH FROM NOW())::bigint
		WHERE id = $5
		RETURNING ` + userColumns

	var hash *string
	if user.PasswordHash != "" {
		hash = &user.PasswordHash
	}

	updated, err := scanUser(r.pool.QueryRow(ctx, query,
		user.Name, user.Login, user.Email, hash, user.ID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("postgres: update user: %w", err)
	}
	return updated, nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// All — только для dev-режима (GET /user/all).
func (r *UserRepo) All(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
