package engine

import (
	"math"
	"testing"

	"outletradar/internal/proximity/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeOutlet(id string, lat, lng float64) domain.Outlet {
	return domain.Outlet{
		ID:        id,
		Name:      "Outlet " + id,
		Latitude:  &lat,
		Longitude: &lng,
	}
}

// Три outlet: два рядом в центре KL (~0.45 км по формуле Haversine,
// R=6371), третий далеко (>10 км от первых двух).
func klFixture() []domain.Outlet {
	return []domain.Outlet{
		makeOutlet("a", 3.1570, 101.7123),
		makeOutlet("b", 3.1600, 101.7150),
		makeOutlet("c", 3.2000, 101.8000),
	}
}

func TestComputeIntersections_ThresholdScenario(t *testing.T) {
	outlets := klFixture()[:2]

	idx := ComputeIntersections(outlets, 5.0)

	recA, ok := idx.Lookup("a")
	require.True(t, ok)
	assert.True(t, recA.HasIntersection)
	require.Len(t, recA.Neighbors, 1)
	assert.Equal(t, "b", recA.Neighbors[0].OutletID)
	assert.InDelta(t, 0.448, recA.Neighbors[0].DistanceKm, 0.005)

	recB, ok := idx.Lookup("b")
	require.True(t, ok)
	assert.True(t, recB.HasIntersection)
	require.Len(t, recB.Neighbors, 1)
	assert.Equal(t, "a", recB.Neighbors[0].OutletID)

	// с радиусом меньше дистанции пересечения нет
	idxSmall := ComputeIntersections(outlets, 0.1)
	recA, _ = idxSmall.Lookup("a")
	recB, _ = idxSmall.Lookup("b")
	assert.False(t, recA.HasIntersection)
	assert.False(t, recB.HasIntersection)
	assert.Empty(t, recA.Neighbors)
	assert.Empty(t, recB.Neighbors)
}

func TestComputeIntersections_IsolationScenario(t *testing.T) {
	idx := ComputeIntersections(klFixture(), 5.0)

	recC, ok := idx.Lookup("c")
	require.True(t, ok)
	assert.False(t, recC.HasIntersection)
	assert.Empty(t, recC.Neighbors)

	recA, _ := idx.Lookup("a")
	recB, _ := idx.Lookup("b")
	for _, n := range recA.Neighbors {
		assert.NotEqual(t, "c", n.OutletID)
	}
	for _, n := range recB.Neighbors {
		assert.NotEqual(t, "c", n.OutletID)
	}
}

func TestComputeIntersections_Symmetry(t *testing.T) {
	outlets := []domain.Outlet{
		makeOutlet("a", 3.1570, 101.7123),
		makeOutlet("b", 3.1600, 101.7150),
		makeOutlet("c", 3.1700, 101.7300),
		makeOutlet("d", 3.1800, 101.7000),
		makeOutlet("e", 3.2000, 101.8000),
	}

	idx := ComputeIntersections(outlets, 5.0)

	for id, rec := range idx.Records {
		for _, n := range rec.Neighbors {
			other, ok := idx.Lookup(n.OutletID)
			require.True(t, ok)

			found := false
			for _, back := range other.Neighbors {
				if back.OutletID == id {
					found = true
					assert.InDelta(t, n.DistanceKm, back.DistanceKm, 1e-6,
						"distance %s<->%s must be symmetric", id, n.OutletID)
				}
			}
			assert.True(t, found, "%s must appear in neighbors of %s", id, n.OutletID)
		}
	}
}

func TestComputeIntersections_NoSelfNeighbor(t *testing.T) {
	idx := ComputeIntersections(klFixture(), 100.0)

	for id, rec := range idx.Records {
		for _, n := range rec.Neighbors {
			assert.NotEqual(t, id, n.OutletID, "outlet must not neighbor itself")
		}
	}
}

func TestComputeIntersections_Idempotence(t *testing.T) {
	outlets := klFixture()

	first := ComputeIntersections(outlets, 5.0)
	second := ComputeIntersections(outlets, 5.0)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.RadiusKm, second.RadiusKm)
}

func TestComputeIntersections_DoesNotMutateInput(t *testing.T) {
	outlets := klFixture()
	latBefore := *outlets[0].Latitude

	_ = ComputeIntersections(outlets, 5.0)

	assert.Equal(t, latBefore, *outlets[0].Latitude)
}

func TestComputeIntersections_NeighborOrdering(t *testing.T) {
	outlets := []domain.Outlet{
		makeOutlet("center", 3.1500, 101.7100),
		makeOutlet("near", 3.1520, 101.7110),
		makeOutlet("far", 3.1800, 101.7400),
	}

	idx := ComputeIntersections(outlets, 50.0)

	rec, ok := idx.Lookup("center")
	require.True(t, ok)
	require.Len(t, rec.Neighbors, 2)
	assert.Equal(t, "near", rec.Neighbors[0].OutletID)
	assert.Equal(t, "far", rec.Neighbors[1].OutletID)
	assert.LessOrEqual(t, rec.Neighbors[0].DistanceKm, rec.Neighbors[1].DistanceKm)
}

func TestComputeIntersections_EmptySet(t *testing.T) {
	idx := ComputeIntersections(nil, 5.0)
	assert.Empty(t, idx.Records)
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// ~0.448 км между контрольными точками (R=6371)
	d := haversineKm(3.1570, 101.7123, 3.1600, 101.7150)
	assert.InDelta(t, 0.448, d, 0.005)

	// нулевая дистанция до самой себя
	assert.Zero(t, haversineKm(3.1570, 101.7123, 3.1570, 101.7123))

	// дистанция не зависит от порядка аргументов
	d2 := haversineKm(3.1600, 101.7150, 3.1570, 101.7123)
	assert.True(t, math.Abs(d-d2) < 1e-9)
}
