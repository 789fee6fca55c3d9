package domain

import "time"

// Status — состояние жизненного цикла чат-сессии.
// Переходы: absent → creating → active ⇄ sending → active → ending → absent.
type Status string

const (
	StatusAbsent   Status = "absent"
	StatusCreating Status = "creating"
	StatusActive   Status = "active"
	StatusSending  Status = "sending"
	StatusEnding   Status = "ending"
)

// Role — автор сообщения в транскрипте
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message — одно сообщение транскрипта. Добавляется монотонно;
// отдельные сообщения никогда не переупорядочиваются и не удаляются
// (единственная массовая мутация — полная очистка транскрипта).
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot — read-only снимок состояния сессии для потребителей
type Snapshot struct {
	SessionID  string    `json:"session_id,omitempty"`
	Status     Status    `json:"status"`
	Transcript []Message `json:"transcript"`
	LastError  string    `json:"last_error,omitempty"`
}
