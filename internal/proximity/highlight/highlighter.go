package highlight

import (
	"sync"

	"outletradar/internal/proximity/domain"
)

// IndexProvider отдаёт текущий индекс пересечений (nil до первого пересчёта).
type IndexProvider interface {
	Current() *domain.IntersectionIndex
}

// Highlighter — тонкая read-only проекция индекса, ключом служит выбранный
// пользователем outlet. Никаких собственных вычислений: O(1) lookup плюс
// копия списка соседей. Индекс никогда не мутируется.
type Highlighter struct {
	index IndexProvider

	mu       sync.Mutex
	selected string
}

func NewHighlighter(index IndexProvider) *Highlighter {
	return &Highlighter{index: index}
}

// Select запоминает выбранный outlet и возвращает копию его списка соседей.
// Для неизвестного id возвращается пустой список.
func (h *Highlighter) Select(outletID string) []domain.Neighbor {
	h.mu.Lock()
	h.selected = outletID
	h.mu.Unlock()

	return h.Neighbors(outletID)
}

// Neighbors возвращает копию списка соседей outlet без смены выбора.
func (h *Highlighter) Neighbors(outletID string) []domain.Neighbor {
	idx := h.index.Current()
	if idx == nil {
		return nil
	}
	rec, ok := idx.Lookup(outletID)
	if !ok || len(rec.Neighbors) == 0 {
		return nil
	}
	out := make([]domain.Neighbor, len(rec.Neighbors))
	copy(out, rec.Neighbors)
	return out
}

// Clear сбрасывает выбор.
func (h *Highlighter) Clear() {
	h.mu.Lock()
	h.selected = ""
	h.mu.Unlock()
}

// Selected возвращает id выбранного outlet ("" если выбора нет).
func (h *Highlighter) Selected() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selected
}
