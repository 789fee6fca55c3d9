package domain

// UserLocation — позиция посетителя. Value-тип: равенство по полям,
// не по идентичности экземпляра.
type UserLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Equal сравнивает позиции по значению (lat, lng)
func (l UserLocation) Equal(other UserLocation) bool {
	return l.Lat == other.Lat && l.Lng == other.Lng
}

// Permission — состояние разрешения на доступ к сенсору
type Permission string

const (
	PermissionUnknown Permission = "unknown"
	PermissionPrompt  Permission = "prompt"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// State — снапшот состояния получения локации.
// Инвариант: InFlight означает не более одного физического вызова сенсора
// на экземпляр Acquirer (конкурирующие acquire дедуплицируются).
// Permission меняется только явным сигналом платформы либо исходом
// успешного/отклонённого acquire.
type State struct {
	Location   *UserLocation `json:"location,omitempty"`
	Permission Permission    `json:"permission"`
	InFlight   bool          `json:"in_flight"`
}

// Equal сравнивает снапшоты состояния по значению
func (s State) Equal(other State) bool {
	if s.Permission != other.Permission || s.InFlight != other.InFlight {
		return false
	}
	if (s.Location == nil) != (other.Location == nil) {
		return false
	}
	if s.Location != nil && !s.Location.Equal(*other.Location) {
		return false
	}
	return true
}
