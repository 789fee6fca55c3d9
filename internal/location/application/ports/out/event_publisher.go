package out

import (
	"context"

	"outletradar/internal/location/domain"
)

// AcquiredEventData — полезная нагрузка события полученной позиции
type AcquiredEventData struct {
	UserID   string              `json:"user_id"`
	Location domain.UserLocation `json:"location"`
}

// EventPublisher публикует события location-контекста в брокер
type EventPublisher interface {
	PublishAcquired(ctx context.Context, data AcquiredEventData) error
}
