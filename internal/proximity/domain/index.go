package domain

// Neighbor — сосед в радиусе пересечения. DistanceKm округлён до 2 знаков
// (display precision); сам порог сравнивался по неокруглённому значению.
type Neighbor struct {
	OutletID   string  `json:"outlet_id"`
	DistanceKm float64 `json:"distance_km"`
}

// IntersectionRecord — запись индекса для одного outlet.
// Neighbors отсортированы по возрастанию дистанции, при равенстве — по
// OutletID (детерминированный порядок).
type IntersectionRecord struct {
	HasIntersection bool       `json:"has_intersection"`
	Neighbors       []Neighbor `json:"neighbors"`
}

// IntersectionIndex — симметричный индекс пересечений сервисных радиусов.
// Пересчитывается целиком при смене набора outlets или радиуса; никогда
// не мутируется инкрементально. Version растёт монотонно и служит ключом
// кэширования для потребителей.
type IntersectionIndex struct {
	RadiusKm float64                       `json:"radius_km"`
	Version  uint64                        `json:"version"`
	Records  map[string]IntersectionRecord `json:"records"`
}

// Lookup возвращает запись по outletID.
// Второй результат false для неизвестного id.
func (idx *IntersectionIndex) Lookup(outletID string) (IntersectionRecord, bool) {
	if idx == nil {
		return IntersectionRecord{}, false
	}
	rec, ok := idx.Records[outletID]
	return rec, ok
}
