package market

import (
	"sync"

	"github.com/serverkit/addonctl/internal/catalog"
)

// Origin tells why an item is part of a review.
type Origin int

const (
	OriginSelected Origin = iota
	OriginRequired
	OriginOptional
)

func (o Origin) String() string {
	switch o {
	case OriginRequired:
		return "required"
	case OriginOptional:
		return "optional"
	default:
		return "selected"
	}
}

// ReviewEntry is one row of the review list.
type ReviewEntry struct {
	Item   catalog.Item
	Origin Origin
	Parent catalog.Key // zero for selected items
	Chosen bool
}

// Review is the pre-install step: the selected items plus their resolved
// dependencies, each with a user-adjustable chosen flag. By default selected
// items and required dependencies are chosen; optional dependencies follow
// the optional default.
type Review struct {
	selected   []catalog.Item
	resolved   []ResolvedDependency
	resolveErr error

	mu     sync.Mutex
	chosen map[catalog.Key]bool
}

// NewReview builds a review. resolveErr records a failed resolution pass so
// it can be shown alongside the selection.
func NewReview(selected []catalog.Item, resolved []ResolvedDependency, optionalDefault bool, resolveErr error) *Review {
	r := &Review{
		selected:   selected,
		resolved:   resolved,
		resolveErr: resolveErr,
		chosen:     make(map[catalog.Key]bool, len(selected)+len(resolved)),
	}
	for _, it := range selected {
		r.chosen[it.Key()] = true
	}
	for _, d := range resolved {
		r.chosen[d.Item.Key()] = d.Classification == Required || optionalDefault
	}
	return r
}

// ResolutionErr returns the error of the resolution pass, if it failed.
func (r *Review) ResolutionErr() error {
	return r.resolveErr
}

// Selected returns the selected items in selection order.
func (r *Review) Selected() []catalog.Item {
	return r.selected
}

// Resolved returns the resolved dependencies in discovery order.
func (r *Review) Resolved() []ResolvedDependency {
	return r.resolved
}

// Toggle flips whether key is chosen and returns the new state. Keys that
// are not part of the review are ignored.
func (r *Review) Toggle(key catalog.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.chosen[key]
	if !ok {
		return false
	}
	r.chosen[key] = !cur
	return !cur
}

// SetChosen sets the chosen flag of key. It reports whether key is part of
// the review.
func (r *Review) SetChosen(key catalog.Key, chosen bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chosen[key]; !ok {
		return false
	}
	r.chosen[key] = chosen
	return true
}

// IsChosen reports whether key will be installed on confirm.
func (r *Review) IsChosen(key catalog.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chosen[key]
}

// Entries lists every item in the review: the selection first, then the
// dependencies in discovery order.
func (r *Review) Entries() []ReviewEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ReviewEntry, 0, len(r.selected)+len(r.resolved))
	for _, it := range r.selected {
		out = append(out, ReviewEntry{Item: it, Origin: OriginSelected, Chosen: r.chosen[it.Key()]})
	}
	for _, d := range r.resolved {
		origin := OriginRequired
		if d.Classification == Optional {
			origin = OriginOptional
		}
		out = append(out, ReviewEntry{Item: d.Item, Origin: origin, Parent: d.Parent, Chosen: r.chosen[d.Item.Key()]})
	}
	return out
}

// Confirm returns the chosen items in install order: selected items in
// selection order, then dependencies in discovery order. An empty result is
// ErrEmptyConfirmation.
func (r *Review) Confirm() ([]catalog.Item, error) {
	var out []catalog.Item
	for _, e := range r.Entries() {
		if e.Chosen {
			out = append(out, e.Item)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyConfirmation
	}
	return out, nil
}
