package usecase

import (
	"sync/atomic"

	"outletradar/internal/proximity/domain"
)

// IndexHolder хранит текущий индекс пересечений. Писатель (пересчёт)
// заменяет индекс целиком одной атомарной операцией — читатели никогда не
// видят частично обновлённую структуру. Version растёт монотонно при
// каждой замене.
type IndexHolder struct {
	current atomic.Pointer[domain.IntersectionIndex]
	version atomic.Uint64
}

func NewIndexHolder() *IndexHolder {
	return &IndexHolder{}
}

// Current возвращает текущий индекс (nil до первого пересчёта).
// Возвращённый индекс read-only по договорённости.
func (h *IndexHolder) Current() *domain.IntersectionIndex {
	return h.current.Load()
}

// Swap публикует новый индекс и присваивает ему следующую версию.
func (h *IndexHolder) Swap(idx *domain.IntersectionIndex) *domain.IntersectionIndex {
	idx.Version = h.version.Add(1)
	h.current.Store(idx)
	return idx
}
