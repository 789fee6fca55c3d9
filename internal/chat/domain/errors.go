package domain

import "errors"

var (
	// ErrBusy возникает при sendMessage во время незавершённой отправки.
	// Отправки сериализованы, никогда не ставятся в очередь.
	ErrBusy = errors.New("send already in progress")

	// ErrNoActiveSession возникает при sendMessage без активной сессии
	ErrNoActiveSession = errors.New("no active session")

	// ErrCreateFailed возникает при сбое создания сессии на бэкенде
	ErrCreateFailed = errors.New("session create failed")

	// ErrSendFailed возникает при сбое отправки сообщения на бэкенд
	ErrSendFailed = errors.New("message send failed")

	// ErrDeleteFailed возникает при сбое удаления сессии на бэкенде.
	// Не блокирует локальный сброс состояния.
	ErrDeleteFailed = errors.New("session delete failed")

	// ErrPendingError возникает при sendMessage с неочищенной
	// предыдущей ошибкой; требуется явный ClearError
	ErrPendingError = errors.New("previous error not cleared")
)
