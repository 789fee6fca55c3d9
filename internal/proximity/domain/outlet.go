package domain

import "time"

// Outlet — точка обслуживания на карте. Иммутабельна после загрузки:
// пересчёт индекса всегда работает с целым снапшотом набора.
type Outlet struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Address        string    `json:"address" db:"address"`
	Latitude       *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64  `json:"longitude,omitempty" db:"longitude"`
	OperatingHours *string   `json:"operating_hours,omitempty" db:"operating_hours"`
	NavigationLink *string   `json:"navigation_link,omitempty" db:"navigation_link"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// HasCoordinates проверяет наличие валидных координат.
// Записи без координат отфильтровываются ДО движка пересечений —
// это контракт вызывающей стороны, движок их не терпит.
func (o *Outlet) HasCoordinates() bool {
	if o.Latitude == nil || o.Longitude == nil {
		return false
	}
	lat, lng := *o.Latitude, *o.Longitude
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
