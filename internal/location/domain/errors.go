package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported возникает, когда платформа не имеет сенсора позиции
	ErrNotSupported = errors.New("position sensor not supported")

	// ErrPermissionDenied возникает при отказе в доступе к сенсору
	ErrPermissionDenied = errors.New("position permission denied")

	// ErrPositionUnavailable возникает, когда сенсор не смог получить fix.
	// Единственная ошибка с автоматическим retry (одна relaxed-попытка).
	ErrPositionUnavailable = errors.New("position unavailable")

	// ErrTimeout возникает при истечении бюджета ожидания сенсора.
	// Retry НЕ выполняется (поведение исходной системы сохранено как есть).
	ErrTimeout = errors.New("position request timed out")
)

// UnknownError — нетипизированный сбой сенсора с деталью платформы
type UnknownError struct {
	Detail string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown position error: %s", e.Detail)
}
