package market

import (
	"slices"
	"sync"

	"github.com/serverkit/addonctl/internal/catalog"
)

// SelectionSet holds the items the user picked, in the order they were
// picked. It is only changed by explicit user toggles and is independent of
// search results, so selections survive paging and new queries.
type SelectionSet struct {
	mu    sync.Mutex
	order []catalog.Key
	items map[catalog.Key]catalog.Item
}

// NewSelectionSet returns an empty selection.
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{items: make(map[catalog.Key]catalog.Item)}
}

// Toggle removes item if it is selected and adds it otherwise. It returns
// the new selection size.
func (s *SelectionSet) Toggle(item catalog.Item) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := item.Key()
	if _, ok := s.items[key]; ok {
		delete(s.items, key)
		s.order = slices.DeleteFunc(s.order, func(k catalog.Key) bool { return k == key })
		return len(s.order)
	}
	s.items[key] = item
	s.order = append(s.order, key)
	return len(s.order)
}

// Contains reports whether key is selected.
func (s *SelectionSet) Contains(key catalog.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[key]
	return ok
}

// Len returns the number of selected items.
func (s *SelectionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Items returns the selected items in insertion order.
func (s *SelectionSet) Items() []catalog.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]catalog.Item, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.items[k])
	}
	return out
}

// Clear empties the selection.
func (s *SelectionSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	clear(s.items)
}
