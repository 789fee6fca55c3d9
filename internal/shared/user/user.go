package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User — упрощённая модель пользователя для аутентификации посетителей карты
type User struct {
	ID           string
	Email        string
	Role         string // VISITOR | ADMIN
	Status       string // ACTIVE | INACTIVE | BANNED
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive проверяет, активен ли пользователь
func (u *User) IsActive() bool {
	return u.Status == "ACTIVE"
}

// HasRole проверяет наличие роли
func (u *User) HasRole(role string) bool {
	return u.Role == role
}

// CheckPassword сверяет пароль с bcrypt-хэшем
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// HashPassword возвращает bcrypt-хэш пароля
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
