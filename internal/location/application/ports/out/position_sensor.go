package out

import (
	"context"

	"outletradar/internal/location/domain"
)

// PositionSensor — интерфейс платформенного сенсора позиции.
// Физический сенсор живёт в браузере посетителя; сервис достаёт его
// через WebSocket-адаптер (adapter/out/out_ws).
type PositionSensor interface {
	// Supported проверяет наличие сенсора у платформы
	Supported() bool

	// RequestPosition выполняет одиночный запрос позиции с параметрами
	// политики. Возвращает типизированные ошибки domain пакета:
	// ErrPermissionDenied | ErrPositionUnavailable | ErrTimeout | UnknownError.
	RequestPosition(ctx context.Context, policy domain.AcquisitionPolicy) (domain.UserLocation, error)
}
