package highlight

import (
	"testing"

	"outletradar/internal/proximity/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticIndex struct {
	idx *domain.IntersectionIndex
}

func (s *staticIndex) Current() *domain.IntersectionIndex { return s.idx }

func fixtureIndex() *domain.IntersectionIndex {
	return &domain.IntersectionIndex{
		RadiusKm: 5.0,
		Version:  1,
		Records: map[string]domain.IntersectionRecord{
			"a": {HasIntersection: true, Neighbors: []domain.Neighbor{
				{OutletID: "b", DistanceKm: 0.39},
				{OutletID: "c", DistanceKm: 2.15},
			}},
			"b": {HasIntersection: true, Neighbors: []domain.Neighbor{
				{OutletID: "a", DistanceKm: 0.39},
			}},
			"d": {HasIntersection: false},
		},
	}
}

func TestHighlighter_SelectKnownOutlet(t *testing.T) {
	h := NewHighlighter(&staticIndex{idx: fixtureIndex()})

	neighbors := h.Select("a")
	require.Len(t, neighbors, 2)
	assert.Equal(t, "b", neighbors[0].OutletID)
	assert.Equal(t, "a", h.Selected())
}

func TestHighlighter_SelectUnknownOutlet(t *testing.T) {
	h := NewHighlighter(&staticIndex{idx: fixtureIndex()})

	assert.Empty(t, h.Select("nope"))
	assert.Equal(t, "nope", h.Selected())
}

func TestHighlighter_SelectWithoutNeighbors(t *testing.T) {
	h := NewHighlighter(&staticIndex{idx: fixtureIndex()})
	assert.Empty(t, h.Select("d"))
}

func TestHighlighter_NilIndex(t *testing.T) {
	h := NewHighlighter(&staticIndex{})
	assert.Empty(t, h.Select("a"))
}

func TestHighlighter_Clear(t *testing.T) {
	h := NewHighlighter(&staticIndex{idx: fixtureIndex()})
	h.Select("a")
	h.Clear()
	assert.Empty(t, h.Selected())
}

func TestHighlighter_ReturnsCopy(t *testing.T) {
	idx := fixtureIndex()
	h := NewHighlighter(&staticIndex{idx: idx})

	neighbors := h.Select("a")
	neighbors[0].OutletID = "mutated"

	// исходный индекс не затронут
	assert.Equal(t, "b", idx.Records["a"].Neighbors[0].OutletID)
}
