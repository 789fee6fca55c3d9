package engine

import (
	"math"
	"sort"

	"outletradar/internal/proximity/domain"
)

const earthRadiusKm = 6371.0

// ComputeIntersections строит симметричный индекс пересечений для набора
// outlets и радиуса radiusKm. Чистая функция: не мутирует вход, не делает
// I/O, повторный запуск на том же входе даёт структурно идентичный индекс.
//
// Сложность O(n²) по числу outlets — приемлемо на ожидаемом масштабе
// (единицы тысяч). При существенном росте набора здесь понадобится
// пространственный индекс (grid или k-d tree).
//
// Контракт вызывающей стороны: каждый outlet имеет валидные координаты
// (записи без координат отфильтрованы до вызова).
func ComputeIntersections(outlets []domain.Outlet, radiusKm float64) *domain.IntersectionIndex {
	records := make(map[string]domain.IntersectionRecord, len(outlets))

	for i := range outlets {
		a := &outlets[i]
		var neighbors []domain.Neighbor

		for j := range outlets {
			if i == j {
				continue
			}
			b := &outlets[j]
			if a.ID == b.ID {
				// дубликат id — самопересечением не считается
				continue
			}

			dist := haversineKm(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)

			// Порог сравнивается по неокруглённому значению;
			// округление — только для хранимой записи.
			if dist <= radiusKm {
				neighbors = append(neighbors, domain.Neighbor{
					OutletID:   b.ID,
					DistanceKm: math.Round(dist*100) / 100,
				})
			}
		}

		sort.Slice(neighbors, func(x, y int) bool {
			if neighbors[x].DistanceKm != neighbors[y].DistanceKm {
				return neighbors[x].DistanceKm < neighbors[y].DistanceKm
			}
			return neighbors[x].OutletID < neighbors[y].OutletID
		})

		records[a.ID] = domain.IntersectionRecord{
			HasIntersection: len(neighbors) > 0,
			Neighbors:       neighbors,
		}
	}

	return &domain.IntersectionIndex{
		RadiusKm: radiusKm,
		Records:  records,
	}
}

// haversineKm вычисляет расстояние между двумя точками (формула Haversine)
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
