package domain

import "time"

// AcquisitionPolicy — параметры одной попытки запроса позиции
type AcquisitionPolicy struct {
	HighAccuracy bool
	Timeout      time.Duration
}

// Статическая таблица таймаутов первого fix по платформам.
// Мобильным платформам нужен больший бюджет на холодный GPS-fix;
// это справочная таблица, а не константы по месту вызова.
var firstFixTimeouts = map[string]time.Duration{
	"ios":     15 * time.Second,
	"android": 12 * time.Second,
	"desktop": 8 * time.Second,
}

const defaultFirstFixTimeout = 10 * time.Second

// FirstFixTimeout возвращает T0 для платформы (override > таблица > default)
func FirstFixTimeout(platform string, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if t, ok := firstFixTimeouts[platform]; ok {
		return t
	}
	return defaultFirstFixTimeout
}

// AttemptPolicies строит таблицу политик: по одной записи на попытку.
// Попытка 1 — highAccuracy с T0; попытка 2 (только после
// PositionUnavailable) — relaxed: без highAccuracy, таймаут
// min(T0 × 1.5, maxTimeout). Явная ограниченная таблица вместо
// рекурсивных callback'ов.
func AttemptPolicies(platform string, override, maxTimeout time.Duration) []AcquisitionPolicy {
	t0 := FirstFixTimeout(platform, override)

	relaxed := time.Duration(float64(t0) * 1.5)
	if maxTimeout > 0 && relaxed > maxTimeout {
		relaxed = maxTimeout
	}

	return []AcquisitionPolicy{
		{HighAccuracy: true, Timeout: t0},
		{HighAccuracy: false, Timeout: relaxed},
	}
}
