package repo

import (
	"context"
	"errors"
	"fmt"

	"outletradar/internal/proximity/domain"
	"outletradar/internal/shared/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrOutletNotFound возникает, когда outlet не найден
var ErrOutletNotFound = errors.New("outlet not found")

// OutletPgRepository — Postgres реализация OutletRepository
type OutletPgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewOutletPgRepository создает новый репозиторий outlets
func NewOutletPgRepository(pool *pgxpool.Pool, log *logger.Logger) *OutletPgRepository {
	return &OutletPgRepository{
		pool: pool,
		log:  log,
	}
}

// FindAll возвращает полный набор outlets одним снапшотом
func (r *OutletPgRepository) FindAll(ctx context.Context) ([]domain.Outlet, error) {
	query := `
		SELECT id, name, address, latitude, longitude, operating_hours, navigation_link, created_at, updated_at
		FROM outlets
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query outlets: %w", err)
	}
	defer rows.Close()

	var outlets []domain.Outlet
	for rows.Next() {
		var o domain.Outlet
		if err := rows.Scan(
			&o.ID,
			&o.Name,
			&o.Address,
			&o.Latitude,
			&o.Longitude,
			&o.OperatingHours,
			&o.NavigationLink,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outlet: %w", err)
		}
		outlets = append(outlets, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outlets: %w", err)
	}

	return outlets, nil
}

// FindByID возвращает outlet по ID
func (r *OutletPgRepository) FindByID(ctx context.Context, outletID string) (*domain.Outlet, error) {
	query := `
		SELECT id, name, address, latitude, longitude, operating_hours, navigation_link, created_at, updated_at
		FROM outlets
		WHERE id = $1
	`

	var o domain.Outlet
	err := r.pool.QueryRow(ctx, query, outletID).Scan(
		&o.ID,
		&o.Name,
		&o.Address,
		&o.Latitude,
		&o.Longitude,
		&o.OperatingHours,
		&o.NavigationLink,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOutletNotFound
		}
		return nil, fmt.Errorf("query outlet by id: %w", err)
	}

	return &o, nil
}
