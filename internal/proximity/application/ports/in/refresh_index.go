package in

import "context"

// RefreshIndexInput — входные данные для пересчёта индекса
type RefreshIndexInput struct {
	RadiusKm float64 `json:"radius_km"` // 0 — использовать радиус из конфигурации
}

// RefreshIndexOutput — результат пересчёта индекса
type RefreshIndexOutput struct {
	Version       uint64  `json:"version"`
	RadiusKm      float64 `json:"radius_km"`
	OutletCount   int     `json:"outlet_count"`
	SkippedCount  int     `json:"skipped_count"` // записи без координат
	Intersections int     `json:"intersections"` // outlets с hasIntersection=true
}

// RefreshIndexUseCase — интерфейс use-case пересчёта индекса пересечений
type RefreshIndexUseCase interface {
	Execute(ctx context.Context, input RefreshIndexInput) (*RefreshIndexOutput, error)
}
