package out

import (
	"context"

	"outletradar/internal/proximity/domain"
)

// OutletRepository — интерфейс репозитория для работы с outlets
type OutletRepository interface {
	// FindAll возвращает полный набор outlets одним снапшотом
	FindAll(ctx context.Context) ([]domain.Outlet, error)

	// FindByID возвращает outlet по ID
	FindByID(ctx context.Context, outletID string) (*domain.Outlet, error)
}
