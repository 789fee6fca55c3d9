package in

import (
	"context"

	"outletradar/internal/proximity/domain"
)

// ListOutletsOutput — снапшот набора outlets для слоя рендеринга
type ListOutletsOutput struct {
	Outlets []domain.Outlet `json:"outlets"`
}

// ListOutletsUseCase — интерфейс use-case выдачи списка outlets
type ListOutletsUseCase interface {
	Execute(ctx context.Context) (*ListOutletsOutput, error)
}
