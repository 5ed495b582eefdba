package market

import (
	"slices"
	"testing"

	"github.com/serverkit/addonctl/internal/catalog"
)

func TestSelectionToggleTwiceRestores(t *testing.T) {
	s := NewSelectionSet()
	s.Toggle(mr("a"))

	before := keysOf(s.Items())
	if n := s.Toggle(mr("b")); n != 2 {
		t.Errorf("size after add = %d, want 2", n)
	}
	if n := s.Toggle(mr("b")); n != 1 {
		t.Errorf("size after remove = %d, want 1", n)
	}
	if got := keysOf(s.Items()); !slices.Equal(got, before) {
		t.Errorf("items = %v, want %v", got, before)
	}
}

func TestSelectionKeepsInsertionOrder(t *testing.T) {
	s := NewSelectionSet()
	for _, id := range []string{"c", "a", "b"} {
		s.Toggle(mr(id))
	}
	s.Toggle(mr("a"))
	s.Toggle(mr("a"))

	want := []string{"modrinth:c", "modrinth:b", "modrinth:a"}
	if got := keysOf(s.Items()); !slices.Equal(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
}

func TestSelectionIsProviderScoped(t *testing.T) {
	s := NewSelectionSet()
	s.Toggle(mr("42"))
	s.Toggle(cf("42"))

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if !s.Contains(catalog.Key{Provider: catalog.CurseForge, ID: "42"}) {
		t.Error("curseforge:42 not selected")
	}
}

func TestSelectionClear(t *testing.T) {
	s := NewSelectionSet()
	s.Toggle(mr("a"))
	s.Clear()
	if s.Len() != 0 || len(s.Items()) != 0 {
		t.Errorf("selection not empty after Clear")
	}
	if s.Contains(mr("a").Key()) {
		t.Error("Contains after Clear = true")
	}
}
