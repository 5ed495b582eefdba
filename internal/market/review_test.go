package market

import (
	"errors"
	"slices"
	"testing"

	"github.com/serverkit/addonctl/internal/catalog"
)

func TestReviewDefaults(t *testing.T) {
	a, b, c := mr("a"), mr("b"), mr("c")
	resolved := []ResolvedDependency{
		{Item: b, Classification: Required, Parent: a.Key()},
		{Item: c, Classification: Optional, Parent: a.Key()},
	}

	r := NewReview([]catalog.Item{a}, resolved, false, nil)
	got, err := r.Confirm()
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if want := []string{"modrinth:a", "modrinth:b"}; !slices.Equal(keysOf(got), want) {
		t.Errorf("confirmed = %v, want %v", keysOf(got), want)
	}

	r = NewReview([]catalog.Item{a}, resolved, true, nil)
	if !r.IsChosen(c.Key()) {
		t.Error("optional dependency not chosen with optional default on")
	}
}

func TestReviewConfirmOrder(t *testing.T) {
	a, b, c, d := mr("a"), mr("b"), mr("c"), mr("d")
	resolved := []ResolvedDependency{
		{Item: c, Classification: Required, Parent: a.Key()},
		{Item: d, Classification: Required, Parent: b.Key()},
	}
	r := NewReview([]catalog.Item{a, b}, resolved, false, nil)

	got, err := r.Confirm()
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	want := []string{"modrinth:a", "modrinth:b", "modrinth:c", "modrinth:d"}
	if !slices.Equal(keysOf(got), want) {
		t.Errorf("confirmed = %v, want %v", keysOf(got), want)
	}
}

func TestReviewToggle(t *testing.T) {
	a, b := mr("a"), mr("b")
	r := NewReview([]catalog.Item{a}, []ResolvedDependency{{Item: b, Classification: Required, Parent: a.Key()}}, false, nil)

	if r.Toggle(b.Key()) {
		t.Error("Toggle(required) = true, want false (unchosen)")
	}
	if r.Toggle(mr("zzz").Key()) {
		t.Error("Toggle(unknown key) = true, want false")
	}
	got, _ := r.Confirm()
	if want := []string{"modrinth:a"}; !slices.Equal(keysOf(got), want) {
		t.Errorf("confirmed = %v, want %v", keysOf(got), want)
	}
}

func TestReviewEmptyConfirmation(t *testing.T) {
	a := mr("a")
	r := NewReview([]catalog.Item{a}, nil, false, nil)
	r.SetChosen(a.Key(), false)

	if _, err := r.Confirm(); !errors.Is(err, ErrEmptyConfirmation) {
		t.Errorf("Confirm err = %v, want ErrEmptyConfirmation", err)
	}
}

func TestReviewEntries(t *testing.T) {
	a, b := mr("a"), mr("b")
	r := NewReview([]catalog.Item{a}, []ResolvedDependency{{Item: b, Classification: Optional, Parent: a.Key()}}, false, nil)

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Origin != OriginSelected || !entries[0].Chosen {
		t.Errorf("entries[0] = %+v, want chosen selected", entries[0])
	}
	if entries[1].Origin != OriginOptional || entries[1].Chosen || entries[1].Parent != a.Key() {
		t.Errorf("entries[1] = %+v, want unchosen optional under a", entries[1])
	}
}
