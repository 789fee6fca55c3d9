package out

import "context"

// IndexEventData — данные события пересчёта индекса
type IndexEventData struct {
	Version       uint64  `json:"version"`
	RadiusKm      float64 `json:"radius_km"`
	OutletCount   int     `json:"outlet_count"`
	Intersections int     `json:"intersections"`
}

// EventPublisher — интерфейс публикации событий индекса в RabbitMQ
type EventPublisher interface {
	// PublishIndexRecomputed публикует событие outlet.index.recomputed
	PublishIndexRecomputed(ctx context.Context, data IndexEventData) error
}
