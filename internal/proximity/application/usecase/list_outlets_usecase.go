package usecase

import (
	"context"
	"fmt"

	"outletradar/internal/proximity/application/ports/in"
	"outletradar/internal/proximity/application/ports/out"
	"outletradar/internal/shared/logger"
)

// ListOutletsService реализует ListOutletsUseCase
type ListOutletsService struct {
	outletRepo out.OutletRepository
	log        *logger.Logger
}

// NewListOutletsService создает новый сервис выдачи outlets
func NewListOutletsService(outletRepo out.OutletRepository, log *logger.Logger) *ListOutletsService {
	return &ListOutletsService{
		outletRepo: outletRepo,
		log:        log,
	}
}

// Execute возвращает снапшот всех outlets
func (s *ListOutletsService) Execute(ctx context.Context) (*in.ListOutletsOutput, error) {
	outlets, err := s.outletRepo.FindAll(ctx)
	if err != nil {
		s.log.Error(logger.Entry{
			Action:  "list_outlets_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, fmt.Errorf("list outlets: %w", err)
	}

	return &in.ListOutletsOutput{Outlets: outlets}, nil
}
