package user

import (
	"context"
	"errors"
	"fmt"

	"outletradar/internal/shared/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository — Postgres реализация Repository
type PgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPgRepository создает новый репозиторий пользователей
func NewPgRepository(pool *pgxpool.Pool, log *logger.Logger) *PgRepository {
	return &PgRepository{
		pool: pool,
		log:  log,
	}
}

// FindByID находит пользователя по ID
func (r *PgRepository) FindByID(ctx context.Context, userID string) (*User, error) {
	query := `
		SELECT id, email, role, status, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u User
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&u.ID,
		&u.Email,
		&u.Role,
		&u.Status,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}

	return &u, nil
}

// FindByEmail находит пользователя по email
func (r *PgRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, role, status, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var u User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Email,
		&u.Role,
		&u.Status,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}

	return &u, nil
}

// Exists проверяет существование пользователя
func (r *PgRepository) Exists(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}

	return exists, nil
}
