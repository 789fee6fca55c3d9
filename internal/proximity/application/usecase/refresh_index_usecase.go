package usecase

import (
	"context"
	"fmt"

	"outletradar/internal/proximity/application/ports/in"
	"outletradar/internal/proximity/application/ports/out"
	"outletradar/internal/proximity/domain"
	"outletradar/internal/proximity/engine"
	"outletradar/internal/shared/logger"
)

// RefreshIndexService реализует RefreshIndexUseCase
type RefreshIndexService struct {
	outletRepo      out.OutletRepository
	holder          *IndexHolder
	publisher       out.EventPublisher
	defaultRadiusKm float64
	log             *logger.Logger
}

// NewRefreshIndexService создает новый сервис пересчёта индекса
func NewRefreshIndexService(
	outletRepo out.OutletRepository,
	holder *IndexHolder,
	publisher out.EventPublisher,
	defaultRadiusKm float64,
	log *logger.Logger,
) *RefreshIndexService {
	return &RefreshIndexService{
		outletRepo:      outletRepo,
		holder:          holder,
		publisher:       publisher,
		defaultRadiusKm: defaultRadiusKm,
		log:             log,
	}
}

// Execute выполняет полный пересчёт индекса пересечений
func (s *RefreshIndexService) Execute(ctx context.Context, input in.RefreshIndexInput) (*in.RefreshIndexOutput, error) {
	radiusKm := input.RadiusKm
	if radiusKm <= 0 {
		radiusKm = s.defaultRadiusKm
	}

	outlets, err := s.outletRepo.FindAll(ctx)
	if err != nil {
		s.log.Error(logger.Entry{
			Action:  "load_outlets_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, fmt.Errorf("load outlets: %w", err)
	}

	// Записи без валидных координат отфильтровываются здесь — движок
	// пересечений принимает только полные записи (контракт границы).
	valid := make([]domain.Outlet, 0, len(outlets))
	skipped := 0
	for _, o := range outlets {
		if !o.HasCoordinates() {
			skipped++
			continue
		}
		valid = append(valid, o)
	}

	if skipped > 0 {
		s.log.Warn(logger.Entry{
			Action:  "outlets_skipped",
			Message: "outlets without coordinates excluded from index",
			Additional: map[string]any{
				"skipped": skipped,
				"total":   len(outlets),
			},
		})
	}

	idx := engine.ComputeIntersections(valid, radiusKm)
	idx = s.holder.Swap(idx)

	intersections := 0
	for _, rec := range idx.Records {
		if rec.HasIntersection {
			intersections++
		}
	}

	s.log.Info(logger.Entry{
		Action:  "index_recomputed",
		Message: fmt.Sprintf("intersection index v%d", idx.Version),
		Additional: map[string]any{
			"radius_km":     radiusKm,
			"outlet_count":  len(valid),
			"intersections": intersections,
		},
	})

	if err := s.publisher.PublishIndexRecomputed(ctx, out.IndexEventData{
		Version:       idx.Version,
		RadiusKm:      radiusKm,
		OutletCount:   len(valid),
		Intersections: intersections,
	}); err != nil {
		s.log.Error(logger.Entry{
			Action:  "publish_index_event_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		// Не возвращаем ошибку, т.к. индекс уже опубликован
	}

	return &in.RefreshIndexOutput{
		Version:       idx.Version,
		RadiusKm:      radiusKm,
		OutletCount:   len(valid),
		SkippedCount:  skipped,
		Intersections: intersections,
	}, nil
}
